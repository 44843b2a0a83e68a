package models

// SessionReview is a 1–5 rating plus optional feedback, tied to a completed
// session. One review per session per reviewer (unique composite index).
type SessionReview struct {
	ID         string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	SessionID  string `gorm:"index:idx_session_reviewer,unique;not null" json:"session_id"`
	ReviewerID string `gorm:"index:idx_session_reviewer,unique;not null" json:"reviewer_id"`
	ReviewedID string `gorm:"index;not null" json:"reviewed_id"`

	Rating   int    `gorm:"not null;check:rating BETWEEN 1 AND 5" json:"rating"`
	Feedback string `gorm:"type:text" json:"feedback"`

	Timestamps
}
