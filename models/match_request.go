package models

import "time"

type MatchRequestStatus string

const (
	MatchRequestPending  MatchRequestStatus = "pending"
	MatchRequestAccepted MatchRequestStatus = "accepted"
	MatchRequestRejected MatchRequestStatus = "rejected"
	MatchRequestExpired  MatchRequestStatus = "expired"
)

// MatchRequest is an invitation from one student to another to study
// together. Transitions only pending → accepted/rejected/expired; every
// transition is a conditional update predicated on the prior status.
type MatchRequest struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	RequesterID string `gorm:"index;not null" json:"requester_id"`
	TargetID    string `gorm:"index;not null" json:"target_id"`

	Subject         string `gorm:"not null" json:"subject"`
	SubjectSlug     string `gorm:"index;not null" json:"subject_slug"`
	Goal            string `gorm:"type:text" json:"goal"`
	DurationMinutes int    `gorm:"not null" json:"duration_minutes"`

	Status    MatchRequestStatus `gorm:"type:varchar(16);index;default:'pending'" json:"status"`
	ExpiresAt time.Time          `gorm:"index;not null" json:"expires_at"`

	Timestamps
}

// IsExpired reports whether the request's TTL has passed. All expiry
// decisions (accept guard, list decoration, scheduler sweep) go through
// this one check.
func (r *MatchRequest) IsExpired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// RemainingTime returns the time left before expiry, floored at zero.
func (r *MatchRequest) RemainingTime(now time.Time) time.Duration {
	if r.IsExpired(now) {
		return 0
	}
	return r.ExpiresAt.Sub(now)
}
