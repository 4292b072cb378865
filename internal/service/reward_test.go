package service

import "testing"

func TestReward(t *testing.T) {
	calc := NewRewardCalculator(10)

	tests := []struct {
		name       string
		score      float64
		multiplier float64
		want       int64
	}{
		// base = 65/100*10 = 6.5; 6.5*1 + 0.65 = 7.15 -> 7
		{"article score", 65, 1.0, 7},
		// base = 65/100*10 = 6.5; 6.5*1.2 + 0.65 = 8.45 -> 8
		{"course multiplier", 65, 1.2, 8},
		{"zero score", 0, 1.0, 0},
		// base = 10; 10 + 1 = 11
		{"perfect score", 100, 1.0, 11},
		// base = 5; 5 + 0.5 = 5.5 rounds half away from zero -> 6
		{"round half up", 50, 1.0, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calc.Reward(tt.score, tt.multiplier); got != tt.want {
				t.Errorf("Reward(%v, %v) = %d, want %d", tt.score, tt.multiplier, got, tt.want)
			}
		})
	}
}

func TestRewardScalesWithBaseRate(t *testing.T) {
	low := NewRewardCalculator(10)
	high := NewRewardCalculator(100)

	if l, h := low.Reward(80, 1.0), high.Reward(80, 1.0); h <= l {
		t.Errorf("higher base rate should pay more: %d vs %d", h, l)
	}
}
