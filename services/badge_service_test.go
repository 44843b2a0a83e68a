package services

import (
	"testing"

	"github.com/creativetemmy/pair2pass-sub000/models"
)

func TestMeetsThreshold(t *testing.T) {
	svc := &BadgeService{}

	prof := &models.Profile{
		TotalSessions:  10,
		HoursStudied:   50.5,
		PartnersHelped: 10,
		Level:          3,
		Tier:           "gold_scholar",
	}

	tests := []struct {
		name      string
		threshold map[string]int64
		want      bool
	}{
		{"first session met", map[string]int64{"total_sessions": 1}, true},
		{"streak met exactly", map[string]int64{"total_sessions": 10}, true},
		{"marathoner met with fraction", map[string]int64{"hours_studied": 50}, true},
		{"mentor not yet", map[string]int64{"partners_helped": 25}, false},
		{"level short", map[string]int64{"level": 10}, false},
		{"tier rank met", map[string]int64{"tier_rank": 3}, true},
		{"tier rank short", map[string]int64{"tier_rank": 4}, false},
		{"empty threshold never fires", map[string]int64{}, false},
		{"unknown key never fires", map[string]int64{"no_such_counter": 1}, false},
		{"all conditions must hold", map[string]int64{"total_sessions": 1, "level": 10}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.meetsThreshold(prof, tt.threshold); got != tt.want {
				t.Errorf("meetsThreshold(%v) = %v, want %v", tt.threshold, got, tt.want)
			}
		})
	}
}

func TestBadgeTriggersHaveThresholds(t *testing.T) {
	seen := map[string]bool{}
	for _, trigger := range models.BadgeTriggers {
		if trigger.Code == "" || trigger.Name == "" {
			t.Errorf("trigger %+v missing code or name", trigger)
		}
		if seen[trigger.Code] {
			t.Errorf("duplicate badge code %s", trigger.Code)
		}
		seen[trigger.Code] = true
		if len(trigger.Threshold) == 0 {
			t.Errorf("badge %s has no threshold and could never be awarded", trigger.Code)
		}
	}
}
