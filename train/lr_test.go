package train

import (
	"math"
	"testing"
)

// TestCosineAnnealingEndpoints verifies the schedule starts at the initial
// rate and lands exactly on the floor at the final epoch.
func TestCosineAnnealingEndpoints(t *testing.T) {
	s := NewCosineAnnealing(1e-4, 1e-6, 20)

	if got := s.LR(0); got != 1e-4 {
		t.Errorf("Expected initial LR 1e-4, got %g", got)
	}
	if got := s.LR(19); got != 1e-6 {
		t.Errorf("Expected final LR 1e-6, got %g", got)
	}
}

// TestCosineAnnealingMidpoint verifies the half-way rate sits half-way
// between the endpoints.
func TestCosineAnnealingMidpoint(t *testing.T) {
	s := NewCosineAnnealing(1e-4, 0, 11)

	got := float64(s.LR(5))
	want := 0.5e-4
	if math.Abs(got-want)/want > 1e-6 {
		t.Errorf("Expected midpoint LR %g, got %g", want, got)
	}
}

// TestCosineAnnealingMonotone verifies the rate never increases.
func TestCosineAnnealingMonotone(t *testing.T) {
	s := NewCosineAnnealing(1e-3, 1e-5, 50)

	prev := s.LR(0)
	for epoch := 1; epoch < 50; epoch++ {
		cur := s.LR(epoch)
		if cur > prev {
			t.Fatalf("LR increased at epoch %d: %g > %g", epoch, cur, prev)
		}
		prev = cur
	}
}

// TestCosineAnnealingBeyondEnd verifies epochs past the horizon clamp to the
// floor, so a resumed run extended past its original length stays stable.
func TestCosineAnnealingBeyondEnd(t *testing.T) {
	s := NewCosineAnnealing(1e-4, 1e-6, 10)

	if got := s.LR(10); got != 1e-6 {
		t.Errorf("Expected clamped LR 1e-6, got %g", got)
	}
	if got := s.LR(500); got != 1e-6 {
		t.Errorf("Expected clamped LR 1e-6, got %g", got)
	}
}

// TestCosineAnnealingSingleEpoch verifies a one-epoch run uses the initial
// rate instead of dividing by zero.
func TestCosineAnnealingSingleEpoch(t *testing.T) {
	s := NewCosineAnnealing(1e-4, 1e-6, 1)

	if got := s.LR(0); got != 1e-4 {
		t.Errorf("Expected 1e-4, got %g", got)
	}
}

// TestConstantSchedule verifies the constant schedule ignores the epoch.
func TestConstantSchedule(t *testing.T) {
	s := NewConstantSchedule(3e-4)

	for _, epoch := range []int{0, 1, 99} {
		if got := s.LR(epoch); got != 3e-4 {
			t.Errorf("Expected 3e-4 at epoch %d, got %g", epoch, got)
		}
	}
}
