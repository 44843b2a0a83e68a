package models

type NotificationType string

const (
	NotifMatchRequest     NotificationType = "match_request"
	NotifMatchFound       NotificationType = "match_found"
	NotifMatchAccepted    NotificationType = "match_accepted"
	NotifMatchRejected    NotificationType = "match_rejected"
	NotifMatchExpired     NotificationType = "match_expired"
	NotifSessionReady     NotificationType = "session_ready"
	NotifSessionReminder  NotificationType = "session_reminder"
	NotifSessionComplete  NotificationType = "session_complete"
	NotifSessionCancelled NotificationType = "session_cancelled"
	NotifMilestoneReached NotificationType = "milestone_reached"
	NotifTierUp           NotificationType = "tier_up"
	NotifBadgeUnlocked    NotificationType = "badge_unlocked"
	NotifReviewReceived   NotificationType = "review_received"
)

// Notification is an in-app message addressed to one user, created as a
// side effect of lifecycle transitions and milestone awards.
type Notification struct {
	ID      string           `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID  string           `gorm:"index;not null" json:"user_id"` // external user id
	Type    NotificationType `gorm:"type:varchar(32);index;not null" json:"type"`
	Title   string           `gorm:"not null" json:"title"`
	Message string           `gorm:"type:text" json:"message"`
	Data    string           `gorm:"type:jsonb;default:'{}'" json:"data"` // free-form payload for the client
	Read    bool             `gorm:"default:false;index" json:"read"`

	Timestamps
}
