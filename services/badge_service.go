package services

import (
	"fmt"
	"log"

	"github.com/creativetemmy/pair2pass-sub000/models"

	"gorm.io/gorm"
)

type BadgeService struct {
	DB            *gorm.DB
	Notifications *NotificationService
}

func NewBadgeService(db *gorm.DB, notifications *NotificationService) *BadgeService {
	return &BadgeService{DB: db, Notifications: notifications}
}

// SeedBadgeTypes upserts the static trigger table at boot (idempotent).
func (s *BadgeService) SeedBadgeTypes() error {
	for _, trigger := range models.BadgeTriggers {
		var existing models.BadgeType
		err := s.DB.Where("code = ?", trigger.Code).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			if err := s.DB.Create(&trigger).Error; err != nil {
				return fmt.Errorf("failed to seed badge type %s: %w", trigger.Code, err)
			}
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// AutoAwardBadges checks all badge triggers for a user after a progress
// update. New awards enter the mint queue as pending.
func (s *BadgeService) AutoAwardBadges(externalUserID string) error {
	var prof models.Profile
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&prof).Error; err != nil {
		return err
	}

	var badgeTypes []models.BadgeType
	if err := s.DB.Find(&badgeTypes).Error; err != nil {
		return err
	}

	for _, badge := range badgeTypes {
		if !s.meetsThreshold(&prof, badge.Threshold) {
			continue
		}
		var count int64
		s.DB.Model(&models.UserBadge{}).
			Where("external_user_id = ? AND badge_type_id = ?", externalUserID, badge.ID).
			Count(&count)
		if count > 0 {
			continue
		}

		userBadge := models.UserBadge{
			ExternalUserID: externalUserID,
			BadgeTypeID:    badge.ID,
			MintStatus:     models.MintPending,
		}
		if err := s.DB.Create(&userBadge).Error; err != nil {
			return err
		}
		log.Printf("🎖️ Badge awarded: %s → %s", badge.Name, externalUserID)

		s.Notifications.Notify(externalUserID, models.NotifBadgeUnlocked,
			fmt.Sprintf("Badge unlocked: %s", badge.Name),
			badge.Description,
			map[string]any{"badge_code": badge.Code, "rarity": badge.Rarity})
	}
	return nil
}

func (s *BadgeService) meetsThreshold(prof *models.Profile, req map[string]int64) bool {
	if len(req) == 0 {
		return false
	}
	for key, required := range req {
		switch key {
		case "total_sessions":
			if prof.TotalSessions < required {
				return false
			}
		case "hours_studied":
			if int64(prof.HoursStudied) < required {
				return false
			}
		case "partners_helped":
			if prof.PartnersHelped < required {
				return false
			}
		case "level":
			if int64(prof.Level) < required {
				return false
			}
		case "tier_rank":
			if int64(TierRank(prof.Tier)) < required {
				return false
			}
		default:
			return false
		}
	}
	return true
}
