package carbon

import (
	"math"
	"testing"
)

func TestRound(t *testing.T) {
	tests := []struct {
		v      float64
		places int
		want   float64
	}{
		{1.005, 2, 1.0}, // 1.005 is stored as 1.00499999...
		{0.125, 2, 0.13},
		{-0.125, 2, -0.13},
		{2.5, 0, 3},
		{-2.5, 0, -3},
		{0.00063157, 4, 0.0006},
		{123.456789, 3, 123.457},
		{math.NaN(), 2, 0},
		{math.Inf(1), 2, 0},
		{math.Inf(-1), 3, 0},
	}
	for _, tt := range tests {
		if got := Round(tt.v, tt.places); got != tt.want {
			t.Errorf("Round(%v, %d) = %v, want %v", tt.v, tt.places, got, tt.want)
		}
	}
}
