package models

import (
	"time"

	"gorm.io/gorm"
)

// Profile is the local study-partner profile. Identity fields (username,
// email, verification flags) are mirrored from the auth service by the
// profile sync worker; progression fields are owned by this service.
type Profile struct {
	ID             string  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string  `gorm:"uniqueIndex;not null" json:"external_user_id"` // auth service UUID
	Username       string  `gorm:"index;not null" json:"username"`
	Email          string  `json:"email,omitempty"`
	WalletAddress  *string `gorm:"index" json:"wallet_address,omitempty"` // 0x-prefixed, set via wallet link
	AvatarURL      *string `json:"avatar_url,omitempty"`
	Bio            *string `json:"bio,omitempty"`
	Subjects       string  `gorm:"type:text" json:"subjects"` // comma-separated study subjects

	// Pass Points ledger (denormalized for read performance)
	PassPoints int64  `json:"pass_points" gorm:"default:0"`
	Level      int    `json:"level" gorm:"default:1"`
	Tier       string `json:"tier" gorm:"type:varchar(32);default:'bronze_scholar'"`

	// Activity counters
	TotalSessions  int64   `json:"total_sessions" gorm:"default:0"`
	HoursStudied   float64 `json:"hours_studied" gorm:"default:0"`
	PartnersHelped int64   `json:"partners_helped" gorm:"default:0"`
	AvgRating      float64 `json:"avg_rating" gorm:"default:0"`
	RatingsCount   int64   `json:"ratings_count" gorm:"default:0"`

	// Verification gates for session creation
	EmailVerified   bool `json:"email_verified" gorm:"default:false"`
	ProfileComplete bool `json:"profile_complete" gorm:"default:false"`

	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`
	LastTierUpAt  *time.Time `json:"last_tier_up_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
