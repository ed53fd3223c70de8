package diffusion

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"specdiff/tensor"
)

func mustSchedule(t *testing.T, timesteps int, s float64) *Schedule {
	t.Helper()
	sc, err := NewCosineSchedule(timesteps, s)
	if err != nil {
		t.Fatalf("NewCosineSchedule(%d, %g) failed: %v", timesteps, s, err)
	}
	return sc
}

// TestCorruptIdentityAtFullRetention verifies a=1 reproduces the input exactly
func TestCorruptIdentityAtFullRetention(t *testing.T) {
	sc := mustSchedule(t, 100, 0.008)
	x := tensor.Randn(rand.New(rand.NewSource(3)), 2, 3, 4)
	noise := tensor.Randn(rand.New(rand.NewSource(4)), 2, 3, 4)

	// Reversed index timesteps-1 retains the full signal
	out, err := Corrupt(x, 99, sc, noise)
	if err != nil {
		t.Fatalf("Corrupt failed: %v", err)
	}
	for i := range x.Data {
		if out.Data[i] != x.Data[i] {
			t.Fatalf("Expected exact identity at full retention, index %d: %f vs %f", i, out.Data[i], x.Data[i])
		}
	}
}

// TestCorruptKnownValue verifies the closed-form output for zero input and
// unit noise: every element equals sqrt(1-a)
func TestCorruptKnownValue(t *testing.T) {
	sc := mustSchedule(t, 1000, 0.008)
	x := tensor.New(1, 1, 4, 4)
	noise := tensor.Ones(1, 1, 4, 4)

	out, err := Corrupt(x, 500, sc, noise)
	if err != nil {
		t.Fatalf("Corrupt failed: %v", err)
	}

	a, err := sc.Retained(500)
	if err != nil {
		t.Fatalf("Retained failed: %v", err)
	}
	want := float32(math.Sqrt(1 - a))
	if math.Abs(float64(want)-0.7103505691) > 1e-7 {
		t.Fatalf("Schedule drifted from pinned value: sqrt(1-a) = %.10f", want)
	}
	for i, v := range out.Data {
		if v != want {
			t.Fatalf("Element %d: expected %f, got %f", i, want, v)
		}
		if v <= 0 || v >= 1 {
			t.Fatalf("Element %d outside (0, 1): %f", i, v)
		}
	}
}

// TestCorruptVarianceStability verifies unit-variance inputs stay near unit
// variance at every noise level
func TestCorruptVarianceStability(t *testing.T) {
	sc := mustSchedule(t, 1000, 0.008)
	rng := rand.New(rand.NewSource(11))

	for _, step := range []int{0, 250, 500, 750, 999} {
		x := tensor.Randn(rng, 64, 256)
		noise := tensor.Randn(rng, 64, 256)

		out, err := Corrupt(x, step, sc, noise)
		if err != nil {
			t.Fatalf("Corrupt at t=%d failed: %v", step, err)
		}

		var mean float64
		for _, v := range out.Data {
			mean += float64(v)
		}
		mean /= float64(len(out.Data))

		var variance float64
		for _, v := range out.Data {
			d := float64(v) - mean
			variance += d * d
		}
		variance /= float64(len(out.Data))

		if math.Abs(variance-1.0) > 0.1 {
			t.Errorf("t=%d: expected near-unit variance, got %f", step, variance)
		}
	}
}

// TestCorruptDeterminism verifies identical inputs produce identical output
func TestCorruptDeterminism(t *testing.T) {
	sc := mustSchedule(t, 200, 0.008)
	x := tensor.Randn(rand.New(rand.NewSource(5)), 4, 8)
	noise := tensor.Randn(rand.New(rand.NewSource(6)), 4, 8)

	a, err := Corrupt(x, 42, sc, noise)
	if err != nil {
		t.Fatalf("Corrupt failed: %v", err)
	}
	b, err := Corrupt(x, 42, sc, noise)
	if err != nil {
		t.Fatalf("Corrupt failed: %v", err)
	}
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatalf("Same inputs produced different output at %d", i)
		}
	}
}

// TestCorruptLeavesInputsUntouched verifies the sample and noise tensors
// are never written
func TestCorruptLeavesInputsUntouched(t *testing.T) {
	sc := mustSchedule(t, 100, 0.008)
	x := tensor.Randn(rand.New(rand.NewSource(8)), 3, 3)
	noise := tensor.Randn(rand.New(rand.NewSource(9)), 3, 3)
	xCopy := x.Clone()
	noiseCopy := noise.Clone()

	if _, err := Corrupt(x, 10, sc, noise); err != nil {
		t.Fatalf("Corrupt failed: %v", err)
	}
	for i := range x.Data {
		if x.Data[i] != xCopy.Data[i] || noise.Data[i] != noiseCopy.Data[i] {
			t.Fatalf("Corrupt mutated an input tensor at %d", i)
		}
	}
}

// TestCorruptRejectsBadTimestep verifies index validation at both ends
func TestCorruptRejectsBadTimestep(t *testing.T) {
	sc := mustSchedule(t, 100, 0.008)
	x := tensor.New(2, 2)
	noise := tensor.New(2, 2)

	for _, bad := range []int{-1, 100, 1000} {
		out, err := Corrupt(x, bad, sc, noise)
		if !errors.Is(err, ErrInvalidTimestep) {
			t.Errorf("t=%d: expected ErrInvalidTimestep, got %v", bad, err)
		}
		if out != nil {
			t.Errorf("t=%d: expected nil output on error", bad)
		}
	}
}

// TestCorruptRejectsShapeMismatch verifies the noise tensor must match
func TestCorruptRejectsShapeMismatch(t *testing.T) {
	sc := mustSchedule(t, 100, 0.008)
	x := tensor.New(2, 4)
	noise := tensor.New(4, 2)

	out, err := Corrupt(x, 10, sc, noise)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch, got %v", err)
	}
	if out != nil {
		t.Error("Expected nil output on shape mismatch")
	}
}

// TestCorruptBatchMatchesPerSample verifies the batched form agrees with
// corrupting each sample individually
func TestCorruptBatchMatchesPerSample(t *testing.T) {
	sc := mustSchedule(t, 500, 0.008)
	rng := rand.New(rand.NewSource(21))
	batch := tensor.Randn(rng, 3, 2, 4, 4)
	noise := tensor.Randn(rng, 3, 2, 4, 4)
	ts := []int{0, 250, 499}

	out, err := CorruptBatch(batch, ts, sc, noise)
	if err != nil {
		t.Fatalf("CorruptBatch failed: %v", err)
	}

	stride := batch.Numel() / 3
	for i, step := range ts {
		xi, err := tensor.FromSlice(batch.Data[i*stride:(i+1)*stride], 2, 4, 4)
		if err != nil {
			t.Fatalf("FromSlice failed: %v", err)
		}
		ni, err := tensor.FromSlice(noise.Data[i*stride:(i+1)*stride], 2, 4, 4)
		if err != nil {
			t.Fatalf("FromSlice failed: %v", err)
		}
		want, err := Corrupt(xi, step, sc, ni)
		if err != nil {
			t.Fatalf("Corrupt failed: %v", err)
		}
		for j := 0; j < stride; j++ {
			if out.Data[i*stride+j] != want.Data[j] {
				t.Fatalf("Sample %d element %d: batch %f vs single %f", i, j, out.Data[i*stride+j], want.Data[j])
			}
		}
	}
}

// TestCorruptBatchValidatesEverything verifies one bad index fails the
// whole call with no output
func TestCorruptBatchValidatesEverything(t *testing.T) {
	sc := mustSchedule(t, 100, 0.008)
	batch := tensor.New(3, 4)
	noise := tensor.New(3, 4)

	out, err := CorruptBatch(batch, []int{0, 100, 1}, sc, noise)
	if !errors.Is(err, ErrInvalidTimestep) {
		t.Errorf("Expected ErrInvalidTimestep, got %v", err)
	}
	if out != nil {
		t.Error("Expected nil output when any timestep is invalid")
	}

	out, err = CorruptBatch(batch, []int{0, 1}, sc, noise)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch for short timestep list, got %v", err)
	}
	if out != nil {
		t.Error("Expected nil output when timestep count mismatches")
	}
}
