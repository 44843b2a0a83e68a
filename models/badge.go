package models

import (
	"time"
)

type MintStatus string

const (
	MintPending MintStatus = "pending"
	MintMinted  MintStatus = "minted"
	MintFailed  MintStatus = "failed"
	MintSkipped MintStatus = "skipped" // profile has no wallet linked
)

// BadgeType: static config (seeded from BadgeTriggers at boot)
type BadgeType struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Code        string `gorm:"uniqueIndex;not null"` // e.g., "FIRST_SESSION", "MENTOR"
	Name        string `gorm:"not null"`
	Description string
	IconURL     string           `gorm:"type:text"`
	Rarity      string           `gorm:"type:varchar(16);default:'common'"` // common, rare, epic, legendary
	Threshold   map[string]int64 `gorm:"type:jsonb;serializer:json"`        // e.g., {"total_sessions": 10}
	CreatedAt   time.Time        `gorm:"autoCreateTime"`
}

// UserBadge: awarded instance. Doubles as the NFT mint queue — rows start
// with mint_status=pending and the mint worker advances them.
type UserBadge struct {
	ID             string     `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string     `gorm:"index:idx_user_badge,unique;not null" json:"external_user_id"`
	BadgeTypeID    string     `gorm:"index:idx_user_badge,unique;not null" json:"badge_type_id"`
	AwardedAt      time.Time  `gorm:"autoCreateTime" json:"awarded_at"`
	MintStatus     MintStatus `gorm:"type:varchar(16);index;default:'pending'" json:"mint_status"`
	MintTxHash     *string    `json:"mint_tx_hash,omitempty"`
	MintedAt       *time.Time `json:"minted_at,omitempty"`
	Metadata       string     `gorm:"type:jsonb;default:'{}'" json:"metadata"`
}

// Predefined badge triggers, checked against profile counters after every
// progression update.
var BadgeTriggers = []BadgeType{
	{
		Code:        "FIRST_PASS",
		Name:        "First Pass",
		Description: "Completed your first study session",
		Rarity:      "common",
		Threshold:   map[string]int64{"total_sessions": 1},
	},
	{
		Code:        "STUDY_STREAK",
		Name:        "Study Streak",
		Description: "Completed 10 study sessions",
		Rarity:      "rare",
		Threshold:   map[string]int64{"total_sessions": 10},
	},
	{
		Code:        "MARATHONER",
		Name:        "Marathoner",
		Description: "Logged 50 hours of study time",
		Rarity:      "epic",
		Threshold:   map[string]int64{"hours_studied": 50},
	},
	{
		Code:        "MENTOR",
		Name:        "Mentor",
		Description: "Helped 25 different study partners",
		Rarity:      "epic",
		Threshold:   map[string]int64{"partners_helped": 25},
	},
	{
		Code:        "LEVEL_10",
		Name:        "Double Digits",
		Description: "Reached Level 10",
		Rarity:      "rare",
		Threshold:   map[string]int64{"level": 10},
	},
	{
		Code:        "GOLD_SCHOLAR",
		Name:        "Gold Scholar",
		Description: "Reached the Gold Scholar tier",
		Rarity:      "legendary",
		Threshold:   map[string]int64{"tier_rank": 3},
	},
}
