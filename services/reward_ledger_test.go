package services

import (
	"math"
	"testing"
)

func TestCalculateLevel(t *testing.T) {
	tests := []struct {
		points int64
		want   int
	}{
		{0, 1},
		{1, 1},
		{999, 1},
		{1000, 2},
		{1999, 2},
		{2000, 3},
		{10000, 11},
		{-50, 1}, // never below level 1
	}
	for _, tt := range tests {
		if got := CalculateLevel(tt.points); got != tt.want {
			t.Errorf("CalculateLevel(%d) = %d, want %d", tt.points, got, tt.want)
		}
	}
}

func TestPointAwards(t *testing.T) {
	want := map[AwardKind]int64{
		AwardSessionCompleted: 150,
		AwardFirstSession:     300,
		AwardHighRating:       100,
		AwardStreakBonus:      250,
		AwardProfileCompleted: 100,
		AwardReviewSubmitted:  50,
	}
	if len(PointAwards) != len(want) {
		t.Fatalf("PointAwards has %d entries, want %d", len(PointAwards), len(want))
	}
	for kind, amount := range want {
		if PointAwards[kind] != amount {
			t.Errorf("PointAwards[%s] = %d, want %d", kind, PointAwards[kind], amount)
		}
	}
}

func TestTierForPoints(t *testing.T) {
	tests := []struct {
		points int64
		want   string
	}{
		{0, "bronze_scholar"},
		{2499, "bronze_scholar"},
		{2500, "silver_scholar"},
		{4999, "silver_scholar"},
		{5000, "gold_scholar"},
		{10000, "platinum_scholar"},
		{19999, "platinum_scholar"},
		{20000, "diamond_scholar"},
		{1000000, "diamond_scholar"},
	}
	for _, tt := range tests {
		if got := TierForPoints(tt.points); got.Code != tt.want {
			t.Errorf("TierForPoints(%d) = %s, want %s", tt.points, got.Code, tt.want)
		}
	}
}

func TestTierRank(t *testing.T) {
	if got := TierRank("bronze_scholar"); got != 1 {
		t.Errorf("TierRank(bronze_scholar) = %d, want 1", got)
	}
	if got := TierRank("diamond_scholar"); got != 5 {
		t.Errorf("TierRank(diamond_scholar) = %d, want 5", got)
	}
	if got := TierRank("no_such_tier"); got != 0 {
		t.Errorf("TierRank(no_such_tier) = %d, want 0", got)
	}
}

func TestTiersAscending(t *testing.T) {
	for i := 1; i < len(Tiers); i++ {
		if Tiers[i].MinPoints <= Tiers[i-1].MinPoints {
			t.Errorf("Tiers[%d] (%s) threshold %d not above Tiers[%d] (%s) threshold %d",
				i, Tiers[i].Code, Tiers[i].MinPoints, i-1, Tiers[i-1].Code, Tiers[i-1].MinPoints)
		}
	}
}

func TestStreakBonusDue(t *testing.T) {
	tests := []struct {
		sessions int64
		want     bool
	}{
		{0, false},
		{1, false},
		{4, false},
		{5, true},
		{6, false},
		{10, true},
		{50, true},  // 10th streak, last one paid
		{55, false}, // capped
		{100, false},
	}
	for _, tt := range tests {
		if got := StreakBonusDue(tt.sessions); got != tt.want {
			t.Errorf("StreakBonusDue(%d) = %v, want %v", tt.sessions, got, tt.want)
		}
	}
}

func TestApplyRating(t *testing.T) {
	avg, count := ApplyRating(0, 0, 4)
	if count != 1 || avg != 4 {
		t.Fatalf("first rating: got avg=%v count=%d, want avg=4 count=1", avg, count)
	}

	avg, count = ApplyRating(avg, count, 5)
	if count != 2 || math.Abs(avg-4.5) > 1e-9 {
		t.Fatalf("second rating: got avg=%v count=%d, want avg=4.5 count=2", avg, count)
	}

	avg, count = ApplyRating(avg, count, 3)
	if count != 3 || math.Abs(avg-4.0) > 1e-9 {
		t.Fatalf("third rating: got avg=%v count=%d, want avg=4.0 count=3", avg, count)
	}
}
