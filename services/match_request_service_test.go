package services

import (
	"errors"
	"testing"
	"time"

	"github.com/creativetemmy/pair2pass-sub000/models"
)

func TestCanAccept(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	base := func() *models.MatchRequest {
		return &models.MatchRequest{
			RequesterID: "user-a",
			TargetID:    "user-b",
			Status:      models.MatchRequestPending,
			ExpiresAt:   now.Add(10 * time.Minute),
		}
	}

	tests := []struct {
		name    string
		mutate  func(*models.MatchRequest)
		caller  string
		wantErr error
	}{
		{
			name:   "pending request, correct target",
			mutate: func(r *models.MatchRequest) {},
			caller: "user-b",
		},
		{
			name:    "addressed to someone else",
			mutate:  func(r *models.MatchRequest) {},
			caller:  "user-c",
			wantErr: ErrNotYourRequest,
		},
		{
			name:    "requester cannot accept own request",
			mutate:  func(r *models.MatchRequest) {},
			caller:  "user-a",
			wantErr: ErrNotYourRequest,
		},
		{
			name:    "already accepted",
			mutate:  func(r *models.MatchRequest) { r.Status = models.MatchRequestAccepted },
			caller:  "user-b",
			wantErr: ErrRequestNotPending,
		},
		{
			name:    "already rejected",
			mutate:  func(r *models.MatchRequest) { r.Status = models.MatchRequestRejected },
			caller:  "user-b",
			wantErr: ErrRequestNotPending,
		},
		{
			name:    "ttl elapsed",
			mutate:  func(r *models.MatchRequest) { r.ExpiresAt = now.Add(-time.Second) },
			caller:  "user-b",
			wantErr: ErrRequestExpired,
		},
		{
			name:    "expires exactly now",
			mutate:  func(r *models.MatchRequest) { r.ExpiresAt = now },
			caller:  "user-b",
			wantErr: ErrRequestExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base()
			tt.mutate(req)
			err := CanAccept(req, tt.caller, now)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CanAccept() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidWalletAddress(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"", true}, // wallet is optional
		{"0x52908400098527886E0F7030069857D2E4169EE7", true},
		{"0xde709f2102306220921060314715629080e2fb77", true},
		{"0x52908400098527886E0F7030069857D2E4169EE", false},   // 39 chars
		{"0x52908400098527886E0F7030069857D2E4169EE77", false}, // 41 chars
		{"52908400098527886E0F7030069857D2E4169EE7", false},    // no prefix
		{"0xZZ908400098527886E0F7030069857D2E4169EE7", false},  // non-hex
	}
	for _, tt := range tests {
		if got := ValidWalletAddress(tt.addr); got != tt.want {
			t.Errorf("ValidWalletAddress(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

func TestNormalizeSubject(t *testing.T) {
	tests := []struct {
		raw      string
		wantName string
		wantSlug string
	}{
		{"linear algebra", "Linear Algebra", "linear-algebra"},
		{"  organic chemistry  ", "Organic Chemistry", "organic-chemistry"},
		{"calculus", "Calculus", "calculus"},
		{"data structures & algorithms", "Data Structures & Algorithms", "data-structures-and-algorithms"},
	}
	for _, tt := range tests {
		name, slugged := NormalizeSubject(tt.raw)
		if name != tt.wantName {
			t.Errorf("NormalizeSubject(%q) name = %q, want %q", tt.raw, name, tt.wantName)
		}
		if slugged != tt.wantSlug {
			t.Errorf("NormalizeSubject(%q) slug = %q, want %q", tt.raw, slugged, tt.wantSlug)
		}
	}
}

func TestMatchRequestRemainingTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	req := &models.MatchRequest{ExpiresAt: now.Add(7 * time.Minute)}
	if got := req.RemainingTime(now); got != 7*time.Minute {
		t.Errorf("RemainingTime = %v, want 7m", got)
	}

	expired := &models.MatchRequest{ExpiresAt: now.Add(-time.Minute)}
	if got := expired.RemainingTime(now); got != 0 {
		t.Errorf("RemainingTime on expired request = %v, want 0", got)
	}
}
