package models

import "time"

type StudySessionStatus string

const (
	SessionWaiting   StudySessionStatus = "waiting"
	SessionActive    StudySessionStatus = "active"
	SessionOngoing   StudySessionStatus = "ongoing" // legacy alias still present in old rows
	SessionCompleted StudySessionStatus = "completed"
	SessionCancelled StudySessionStatus = "cancelled"
)

// LiveSessionStatuses are the states that count as "already in a session"
// for the duplicate-booking check.
var LiveSessionStatuses = []StudySessionStatus{SessionWaiting, SessionActive, SessionOngoing}

// StudySession pairs two students for one study block. Created exactly once
// per accepted MatchRequest. The waiting → active promotion is guarded by a
// conditional update so racing observers (SSE listener + poller) cannot
// double-trigger it.
//
// The partner columns carry explicit column tags: the lifecycle queries
// address them as partner_1_* / partner_2_*, which is not what the default
// naming strategy derives from a digit inside the field name.
type StudySession struct {
	ID             string  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	MatchRequestID *string `gorm:"uniqueIndex" json:"match_request_id,omitempty"`

	// Partner1 is the match requester, Partner2 the target.
	Partner1ID string `gorm:"column:partner_1_id;index;not null" json:"partner_1_id"`
	Partner2ID string `gorm:"column:partner_2_id;index;not null" json:"partner_2_id"`

	Subject         string `gorm:"not null" json:"subject"`
	SubjectSlug     string `gorm:"index;not null" json:"subject_slug"`
	Goal            string `gorm:"type:text" json:"goal"`
	DurationMinutes int    `gorm:"not null" json:"duration_minutes"`

	Status           StudySessionStatus `gorm:"type:varchar(16);index;default:'waiting'" json:"status"`
	Partner1Ready    bool               `gorm:"column:partner_1_ready;default:false" json:"partner_1_ready"`
	Partner2Ready    bool               `gorm:"column:partner_2_ready;default:false" json:"partner_2_ready"`
	Partner1Rewarded bool               `gorm:"column:partner_1_rewarded;default:false" json:"partner_1_rewarded"`
	Partner2Rewarded bool               `gorm:"column:partner_2_rewarded;default:false" json:"partner_2_rewarded"`
	MeetingLink      *string            `json:"meeting_link,omitempty"`

	// ReadyAt is when both flags were first observed true; StartsAt is the
	// ready-check countdown deadline.
	ReadyAt     *time.Time `json:"ready_at,omitempty"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Timestamps
}

// BothReady reports whether both partners have checked in.
func (s *StudySession) BothReady() bool {
	return s.Partner1Ready && s.Partner2Ready
}

// RewardClaimed reports whether userID's completion payout was already taken.
func (s *StudySession) RewardClaimed(userID string) bool {
	switch userID {
	case s.Partner1ID:
		return s.Partner1Rewarded
	case s.Partner2ID:
		return s.Partner2Rewarded
	}
	return false
}

// PartnerOf returns the other participant's ID, or "" if userID is not a
// participant.
func (s *StudySession) PartnerOf(userID string) string {
	switch userID {
	case s.Partner1ID:
		return s.Partner2ID
	case s.Partner2ID:
		return s.Partner1ID
	}
	return ""
}

// HasParticipant reports whether userID is one of the two partners.
func (s *StudySession) HasParticipant(userID string) bool {
	return userID == s.Partner1ID || userID == s.Partner2ID
}
