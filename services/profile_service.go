package services

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/creativetemmy/pair2pass-sub000/models"
	"github.com/creativetemmy/pair2pass-sub000/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProfileService struct {
	DB     *gorm.DB
	Ledger *LedgerService
}

func NewProfileService(db *gorm.DB, ledger *LedgerService) *ProfileService {
	return &ProfileService{DB: db, Ledger: ledger}
}

// EnsureProfile creates an empty profile row on first sight (idempotent).
func (s *ProfileService) EnsureProfile(externalUserID string) (*models.Profile, error) {
	var prof models.Profile
	err := s.DB.Where("external_user_id = ?", externalUserID).First(&prof).Error
	if err == gorm.ErrRecordNotFound {
		prof = models.Profile{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			Username:       externalUserID,
			PassPoints:     0,
			Level:          1,
			Tier:           Tiers[0].Code,
		}
		if err := s.DB.Create(&prof).Error; err != nil {
			return nil, err
		}
		return &prof, nil
	}
	if err != nil {
		return nil, err
	}
	return &prof, nil
}

// profileIsComplete mirrors the completeness gate used by the accept path.
func profileIsComplete(p *models.Profile) bool {
	return p.Username != "" && p.Email != "" && p.Bio != nil && *p.Bio != "" && p.Subjects != ""
}

// --- Handlers ---

// GetMyProfile returns the caller's profile with derived progression info.
func (s *ProfileService) GetMyProfile(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	prof, err := s.EnsureProfile(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load profile",
			"cause": err.Error(),
		})
	}

	tier := TierForPoints(prof.PassPoints)
	nextLevelAt := int64(prof.Level) * PointsPerLevel

	var badgeCount int64
	s.DB.Model(&models.UserBadge{}).Where("external_user_id = ?", userID).Count(&badgeCount)

	return c.JSON(fiber.Map{
		"profile":              prof,
		"tier":                 tier,
		"next_level_at":        nextLevelAt,
		"points_to_next_level": nextLevelAt - prof.PassPoints,
		"badge_count":          badgeCount,
	})
}

// UpdateMyProfile applies partial profile edits and re-derives the
// completeness flag. Completing the profile for the first time pays the
// one-off PROFILE_COMPLETED award.
func (s *ProfileService) UpdateMyProfile(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	prof, err := s.EnsureProfile(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load profile"})
	}

	var req struct {
		Username *string `json:"username"`
		Bio      *string `json:"bio"`
		Subjects *string `json:"subjects"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Username != nil && *req.Username != "" {
		prof.Username = *req.Username
	}
	if req.Bio != nil {
		prof.Bio = req.Bio
	}
	if req.Subjects != nil {
		prof.Subjects = *req.Subjects
	}

	wasComplete := prof.ProfileComplete
	prof.ProfileComplete = profileIsComplete(prof)

	if err := s.DB.Save(prof).Error; err != nil {
		log.Printf("DB Error updating profile for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
	}

	if prof.ProfileComplete && !wasComplete {
		if _, err := s.Ledger.AwardPoints(userID, AwardProfileCompleted); err != nil {
			log.Printf("⚠️ Profile-completion award failed for %s: %v", userID, err)
		}
	}

	return c.JSON(prof)
}

// LinkWallet attaches a validated wallet address for NFT badge minting.
func (s *ProfileService) LinkWallet(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		WalletAddress string `json:"wallet_address"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.WalletAddress == "" || !ValidWalletAddress(req.WalletAddress) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "wallet_address must be a 0x-prefixed 40-hex-char address"})
	}

	if err := s.DB.Model(&models.Profile{}).
		Where("external_user_id = ?", userID).
		Update("wallet_address", req.WalletAddress).Error; err != nil {
		log.Printf("DB Error linking wallet for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to link wallet"})
	}

	return c.JSON(fiber.Map{"message": "Wallet linked", "wallet_address": req.WalletAddress})
}

// UploadAvatar stores the avatar in R2 and saves the public URL.
func (s *ProfileService) UploadAvatar(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "avatar file is required"})
	}
	if fileHeader.Size > 5*1024*1024 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "avatar must be under 5MB"})
	}

	key := fmt.Sprintf("avatars/%s/%s", userID, fileHeader.Filename)
	url, err := utils.UploadFileToR2(fileHeader, key)
	if err != nil {
		log.Printf("R2 upload failed for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload avatar"})
	}

	if err := s.DB.Model(&models.Profile{}).
		Where("external_user_id = ?", userID).
		Update("avatar_url", url).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save avatar"})
	}

	return c.JSON(fiber.Map{"message": "Avatar uploaded", "avatar_url": url})
}

// GetLeaderboard returns the top profiles by Pass Points.
func (s *ProfileService) GetLeaderboard(c *fiber.Ctx) error {
	limit := 25
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}

	var top []models.Profile
	if err := s.DB.Order("pass_points DESC").Limit(limit).Find(&top).Error; err != nil {
		log.Printf("DB Error fetching leaderboard: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch leaderboard"})
	}

	entries := make([]fiber.Map, 0, len(top))
	for i, p := range top {
		entries = append(entries, fiber.Map{
			"rank":           i + 1,
			"username":       p.Username,
			"avatar_url":     p.AvatarURL,
			"pass_points":    p.PassPoints,
			"level":          p.Level,
			"tier":           p.Tier,
			"total_sessions": p.TotalSessions,
			"avg_rating":     p.AvgRating,
		})
	}
	return c.JSON(entries)
}

// GetMyBadges lists the caller's badges joined with their static config.
func (s *ProfileService) GetMyBadges(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var userBadges []models.UserBadge
	if err := s.DB.Where("external_user_id = ?", userID).
		Order("awarded_at DESC").
		Find(&userBadges).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to get badges"})
	}

	var response []fiber.Map
	for _, ub := range userBadges {
		var bt models.BadgeType
		if err := s.DB.First(&bt, "id = ?", ub.BadgeTypeID).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("DB Error fetching badge type %s: %v", ub.BadgeTypeID, err)
			}
			continue
		}
		response = append(response, fiber.Map{
			"id":           ub.ID,
			"code":         bt.Code,
			"name":         bt.Name,
			"description":  bt.Description,
			"icon_url":     bt.IconURL,
			"rarity":       bt.Rarity,
			"awarded_at":   ub.AwardedAt,
			"mint_status":  ub.MintStatus,
			"mint_tx_hash": ub.MintTxHash,
		})
	}
	return c.JSON(response)
}

// DiscoverSubjects groups open match requests by canonical subject slug so
// clients can browse who is looking for a partner in what.
func (s *ProfileService) DiscoverSubjects(c *fiber.Ctx) error {
	type subjectCount struct {
		SubjectSlug string `json:"subject_slug"`
		Subject     string `json:"subject"`
		Open        int64  `json:"open"`
	}
	var counts []subjectCount
	if err := s.DB.Model(&models.MatchRequest{}).
		Select("subject_slug, MAX(subject) AS subject, COUNT(*) AS open").
		Where("status = ?", models.MatchRequestPending).
		Group("subject_slug").
		Order("open DESC").
		Scan(&counts).Error; err != nil {
		log.Printf("DB Error fetching subject discovery: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch subjects"})
	}
	return c.JSON(counts)
}
