package services

import (
	"testing"
	"time"

	"github.com/creativetemmy/pair2pass-sub000/models"
)

func TestPromotionDue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Minute)

	tests := []struct {
		name    string
		session models.StudySession
		want    bool
	}{
		{
			name: "both ready, countdown elapsed",
			session: models.StudySession{
				Status: models.SessionWaiting, Partner1Ready: true, Partner2Ready: true, StartsAt: &past,
			},
			want: true,
		},
		{
			name: "countdown still running",
			session: models.StudySession{
				Status: models.SessionWaiting, Partner1Ready: true, Partner2Ready: true, StartsAt: &future,
			},
			want: false,
		},
		{
			name: "countdown never armed",
			session: models.StudySession{
				Status: models.SessionWaiting, Partner1Ready: true, Partner2Ready: true,
			},
			want: false,
		},
		{
			name: "only one partner ready",
			session: models.StudySession{
				Status: models.SessionWaiting, Partner1Ready: true, StartsAt: &past,
			},
			want: false,
		},
		{
			name: "already active",
			session: models.StudySession{
				Status: models.SessionActive, Partner1Ready: true, Partner2Ready: true, StartsAt: &past,
			},
			want: false,
		},
		{
			name: "cancelled lobby",
			session: models.StudySession{
				Status: models.SessionCancelled, Partner1Ready: true, Partner2Ready: true, StartsAt: &past,
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PromotionDue(&tt.session, now); got != tt.want {
				t.Errorf("PromotionDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidMeetingLink(t *testing.T) {
	tests := []struct {
		link string
		want bool
	}{
		{"https://meet.google.com/abc-defg-hij", true},
		{"http://zoom.us/j/123456", true},
		{"meet.google.com/abc", false}, // relative
		{"ftp://example.com/room", false},
		{"javascript:alert(1)", false},
		{"", false},
		{"https://", false}, // no host
	}
	for _, tt := range tests {
		if got := ValidMeetingLink(tt.link); got != tt.want {
			t.Errorf("ValidMeetingLink(%q) = %v, want %v", tt.link, got, tt.want)
		}
	}
}

func TestCompletionRewardClaims(t *testing.T) {
	s := &models.StudySession{Partner1ID: "user-a", Partner2ID: "user-b"}

	if got := rewardColumnFor(s, "user-a"); got != "partner_1_rewarded" {
		t.Errorf("rewardColumnFor(user-a) = %q, want partner_1_rewarded", got)
	}
	if got := rewardColumnFor(s, "user-b"); got != "partner_2_rewarded" {
		t.Errorf("rewardColumnFor(user-b) = %q, want partner_2_rewarded", got)
	}

	if s.RewardClaimed("user-a") || s.RewardClaimed("user-b") {
		t.Error("no reward should be claimed on a fresh session")
	}

	// Each partner's payout flag is independent: paying one must not mark
	// the other, and a second completion call by the same partner must see
	// the claim already taken.
	s.Partner1Rewarded = true
	if !s.RewardClaimed("user-a") {
		t.Error("user-a's claim should be recorded")
	}
	if s.RewardClaimed("user-b") {
		t.Error("user-b's claim must not be affected by user-a's payout")
	}
	if s.RewardClaimed("stranger") {
		t.Error("non-participants never hold a claim")
	}

	s.Partner2Rewarded = true
	if !s.RewardClaimed("user-b") {
		t.Error("user-b's claim should be recorded")
	}
}

func TestSessionPartnerHelpers(t *testing.T) {
	s := &models.StudySession{Partner1ID: "user-a", Partner2ID: "user-b"}

	if got := s.PartnerOf("user-a"); got != "user-b" {
		t.Errorf("PartnerOf(user-a) = %q, want user-b", got)
	}
	if got := s.PartnerOf("user-b"); got != "user-a" {
		t.Errorf("PartnerOf(user-b) = %q, want user-a", got)
	}
	if got := s.PartnerOf("stranger"); got != "" {
		t.Errorf("PartnerOf(stranger) = %q, want empty", got)
	}

	if !s.HasParticipant("user-a") || !s.HasParticipant("user-b") {
		t.Error("HasParticipant should be true for both partners")
	}
	if s.HasParticipant("stranger") {
		t.Error("HasParticipant should be false for non-participants")
	}

	if s.BothReady() {
		t.Error("BothReady should be false with no ready flags")
	}
	s.Partner1Ready = true
	if s.BothReady() {
		t.Error("BothReady should be false with one flag")
	}
	s.Partner2Ready = true
	if !s.BothReady() {
		t.Error("BothReady should be true with both flags")
	}
}
