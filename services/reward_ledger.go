package services

import (
	"fmt"
	"log"
	"time"

	"github.com/creativetemmy/pair2pass-sub000/models"

	"gorm.io/gorm"
)

// AwardKind identifies one entry in the fixed Pass Points table.
type AwardKind string

const (
	AwardSessionCompleted AwardKind = "SESSION_COMPLETED"
	AwardFirstSession     AwardKind = "FIRST_SESSION"
	AwardHighRating       AwardKind = "HIGH_RATING"
	AwardStreakBonus      AwardKind = "STREAK_BONUS"
	AwardProfileCompleted AwardKind = "PROFILE_COMPLETED"
	AwardReviewSubmitted  AwardKind = "REVIEW_SUBMITTED"
)

// PointAwards is the single reward table for the whole service. Pass Points
// and XP are one currency; there is deliberately no second table.
var PointAwards = map[AwardKind]int64{
	AwardSessionCompleted: 150,
	AwardFirstSession:     300,
	AwardHighRating:       100,
	AwardStreakBonus:      250,
	AwardProfileCompleted: 100,
	AwardReviewSubmitted:  50,
}

// PointsPerLevel: level = points/1000 + 1
const PointsPerLevel = 1000

// CalculateLevel derives the level from a points total.
func CalculateLevel(points int64) int {
	if points < 0 {
		points = 0
	}
	return int(points/PointsPerLevel) + 1
}

// Tier is a named points bracket with display-only benefits.
type Tier struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	MinPoints int64  `json:"min_points"`
	Benefits  string `json:"benefits"`
}

// Tiers is ordered ascending by MinPoints. TierRank is the 1-based index.
var Tiers = []Tier{
	{Code: "bronze_scholar", Name: "Bronze Scholar", MinPoints: 0, Benefits: "Session matching, basic badges"},
	{Code: "silver_scholar", Name: "Silver Scholar", MinPoints: 2500, Benefits: "Priority matching, silver badge frame"},
	{Code: "gold_scholar", Name: "Gold Scholar", MinPoints: 5000, Benefits: "Leaderboard spotlight, gold badge frame"},
	{Code: "platinum_scholar", Name: "Platinum Scholar", MinPoints: 10000, Benefits: "Early feature access, platinum badge frame"},
	{Code: "diamond_scholar", Name: "Diamond Scholar", MinPoints: 20000, Benefits: "Exclusive NFT drops, diamond badge frame"},
}

// TierForPoints returns the highest tier whose threshold the total meets.
func TierForPoints(points int64) Tier {
	current := Tiers[0]
	for _, t := range Tiers {
		if points >= t.MinPoints {
			current = t
		}
	}
	return current
}

// TierRank returns the 1-based position of a tier code, or 0 if unknown.
func TierRank(code string) int {
	for i, t := range Tiers {
		if t.Code == code {
			return i + 1
		}
	}
	return 0
}

// StreakBonusDue reports whether completing session number n earns the
// every-5th-session streak bonus. Capped at the 10th streak (50 sessions).
func StreakBonusDue(totalSessions int64) bool {
	return totalSessions > 0 && totalSessions%5 == 0 && totalSessions/5 <= 10
}

// ApplyRating folds one new rating into a running average.
func ApplyRating(avg float64, count int64, rating int) (float64, int64) {
	count++
	avg = (avg*float64(count-1) + float64(rating)) / float64(count)
	return avg, count
}

// LedgerService is the single reward-accounting module (the two divergent
// client-side point systems consolidated into one table and one interface).
type LedgerService struct {
	DB            *gorm.DB
	Notifications *NotificationService
	Mailer        *EmailClient
}

func NewLedgerService(db *gorm.DB, notifications *NotificationService, mailer *EmailClient) *LedgerService {
	return &LedgerService{DB: db, Notifications: notifications, Mailer: mailer}
}

// AwardPoints atomically adds the table amount for kind to the user's total
// and recomputes level and tier. Milestone notifications and email are
// side effects after commit; their failure never reverts the ledger.
func (s *LedgerService) AwardPoints(externalUserID string, kind AwardKind) (*models.Profile, error) {
	amount, ok := PointAwards[kind]
	if !ok {
		return nil, fmt.Errorf("unknown award kind %q", kind)
	}

	var updated *models.Profile
	var leveledUp, tieredUp bool
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var prof models.Profile
		if err := tx.Where("external_user_id = ?", externalUserID).First(&prof).Error; err != nil {
			return fmt.Errorf("profile not found for %s", externalUserID)
		}

		prof.PassPoints += amount

		newLevel := CalculateLevel(prof.PassPoints)
		if newLevel > prof.Level {
			now := time.Now()
			prof.Level = newLevel
			prof.LastLevelUpAt = &now
			leveledUp = true
		}

		newTier := TierForPoints(prof.PassPoints)
		if TierRank(newTier.Code) > TierRank(prof.Tier) {
			now := time.Now()
			prof.Tier = newTier.Code
			prof.LastTierUpAt = &now
			tieredUp = true
		}

		if err := tx.Save(&prof).Error; err != nil {
			return err
		}

		updated = &models.Profile{}
		*updated = prof
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🎓 Points awarded: %s +%d (%s) → total=%d, lvl=%d, tier=%s",
		externalUserID, amount, kind, updated.PassPoints, updated.Level, updated.Tier)

	if leveledUp {
		s.Notifications.Notify(externalUserID, models.NotifMilestoneReached,
			fmt.Sprintf("Level %d reached!", updated.Level),
			fmt.Sprintf("You reached Level %d with %d Pass Points. Keep it up!", updated.Level, updated.PassPoints),
			map[string]any{"level": updated.Level, "pass_points": updated.PassPoints})
		s.Mailer.SendAsync(updated, models.NotifMilestoneReached, map[string]string{
			"level": fmt.Sprint(updated.Level),
		})
	}
	if tieredUp {
		tier := TierForPoints(updated.PassPoints)
		s.Notifications.Notify(externalUserID, models.NotifTierUp,
			fmt.Sprintf("Welcome to %s!", tier.Name),
			fmt.Sprintf("Your new tier unlocks: %s", tier.Benefits),
			map[string]any{"tier": tier.Code})
		s.Mailer.SendAsync(updated, models.NotifTierUp, map[string]string{
			"tier": tier.Name,
		})
	}

	// Auto-award badges (fire-and-forget)
	badgeSvc := NewBadgeService(s.DB, s.Notifications)
	_ = badgeSvc.AutoAwardBadges(externalUserID)

	return updated, nil
}

// RecordSessionCompletion updates the caller's activity counters and pays
// out SESSION_COMPLETED plus any milestone bonuses due. ratingGiven is the
// 1–5 rating the caller gave their partner at check-in, if any.
func (s *LedgerService) RecordSessionCompletion(externalUserID string, durationMinutes int, ratingGiven *int) error {
	var totalSessions int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var prof models.Profile
		if err := tx.Where("external_user_id = ?", externalUserID).First(&prof).Error; err != nil {
			return fmt.Errorf("profile not found for %s", externalUserID)
		}

		prof.TotalSessions++
		prof.HoursStudied += float64(durationMinutes) / 60.0
		prof.PartnersHelped++
		totalSessions = prof.TotalSessions

		return tx.Save(&prof).Error
	})
	if err != nil {
		return err
	}

	if _, err := s.AwardPoints(externalUserID, AwardSessionCompleted); err != nil {
		return err
	}
	if totalSessions == 1 {
		if _, err := s.AwardPoints(externalUserID, AwardFirstSession); err != nil {
			return err
		}
	}
	if ratingGiven != nil && *ratingGiven == 5 {
		if _, err := s.AwardPoints(externalUserID, AwardHighRating); err != nil {
			return err
		}
	}
	if StreakBonusDue(totalSessions) {
		if _, err := s.AwardPoints(externalUserID, AwardStreakBonus); err != nil {
			return err
		}
	}
	return nil
}

// RecordRatingReceived folds a partner's rating into the reviewed user's
// running average.
func (s *LedgerService) RecordRatingReceived(externalUserID string, rating int) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var prof models.Profile
		if err := tx.Where("external_user_id = ?", externalUserID).First(&prof).Error; err != nil {
			return fmt.Errorf("profile not found for %s", externalUserID)
		}
		prof.AvgRating, prof.RatingsCount = ApplyRating(prof.AvgRating, prof.RatingsCount, rating)
		return tx.Save(&prof).Error
	})
}
