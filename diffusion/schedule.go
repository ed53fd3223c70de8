// Package diffusion implements the noise process at the heart of the
// trainer: a cosine noise-variance schedule, the forward corruption that
// blends clean spectrograms with Gaussian noise, and a deterministic
// reverse sampler that walks a trained denoiser back from pure noise.
//
// Timestep convention: every timestep index in this module refers to the
// reversed schedule, where index 0 is the noisiest regime and index
// timesteps-1 retains the full signal. The natural (non-increasing) order
// is still available through AlphasBar for inspection and plotting.
package diffusion

import (
	"fmt"
	"math"
)

// DefaultS is the smoothing offset from the cosine schedule literature.
// It keeps the retained fraction strictly below 1 at the noisy end so the
// signal floor never collapses to zero.
const DefaultS = 0.008

// Schedule holds the precomputed cumulative signal-retention curve for a
// diffusion process. It is immutable after construction and safe to share
// across goroutines.
type Schedule struct {
	timesteps int
	s         float64
	alphasBar []float64 // natural order: alphasBar[0] == 1, non-increasing
	reversed  []float64 // training order: reversed[0] is the noisiest level
}

// NewCosineSchedule builds a cosine signal-retention schedule with the
// given number of timesteps and smoothing offset s.
//
// The curve is sampled at timesteps+1 evenly spaced points over the squared
// cosine, normalized so the first entry is exactly 1, and truncated to
// timesteps entries:
//
//	ab(x) = cos(((x/steps + s) / (1 + s)) * pi/2)^2, steps = timesteps+1
//
// Both the natural order (index 0 fully clean) and the reversed training
// order (index 0 noisiest) are precomputed.
func NewCosineSchedule(timesteps int, s float64) (*Schedule, error) {
	if timesteps <= 0 {
		return nil, fmt.Errorf("%w: timesteps must be positive, got %d", ErrInvalidSchedule, timesteps)
	}
	if s <= 0 {
		return nil, fmt.Errorf("%w: smoothing offset must be positive, got %g", ErrInvalidSchedule, s)
	}

	steps := timesteps + 1
	ab := make([]float64, steps)
	for i := 0; i < steps; i++ {
		// i-th of steps points evenly spaced over [0, steps]
		x := float64(steps) * float64(i) / float64(steps-1)
		c := math.Cos(((x/float64(steps) + s) / (1 + s)) * math.Pi / 2)
		ab[i] = c * c
	}

	// Normalize so the clean end is exactly 1, then drop the final point;
	// it belongs to the fully-noised boundary outside the index range.
	first := ab[0]
	alphasBar := make([]float64, timesteps)
	for i := 0; i < timesteps; i++ {
		alphasBar[i] = ab[i] / first
	}

	reversed := make([]float64, timesteps)
	for i := 0; i < timesteps; i++ {
		reversed[i] = alphasBar[timesteps-1-i]
	}

	return &Schedule{
		timesteps: timesteps,
		s:         s,
		alphasBar: alphasBar,
		reversed:  reversed,
	}, nil
}

// Timesteps returns the number of discrete noise levels.
func (sc *Schedule) Timesteps() int {
	return sc.timesteps
}

// S returns the smoothing offset the schedule was built with.
func (sc *Schedule) S() float64 {
	return sc.s
}

// AlphasBar returns a copy of the retention curve in natural order:
// element 0 is exactly 1 and the curve is monotonically non-increasing.
func (sc *Schedule) AlphasBar() []float64 {
	out := make([]float64, len(sc.alphasBar))
	copy(out, sc.alphasBar)
	return out
}

// Reversed returns a copy of the retention curve in training order:
// element 0 is the noisiest level, the last element is exactly 1.
func (sc *Schedule) Reversed() []float64 {
	out := make([]float64, len(sc.reversed))
	copy(out, sc.reversed)
	return out
}

// Retained returns the signal fraction kept at reversed timestep t.
func (sc *Schedule) Retained(t int) (float64, error) {
	if t < 0 || t >= sc.timesteps {
		return 0, fmt.Errorf("%w: t=%d, valid range [0, %d)", ErrInvalidTimestep, t, sc.timesteps)
	}
	return sc.reversed[t], nil
}

// MinRetained returns the smallest retention fraction on the schedule,
// i.e. the signal floor at the noisiest level. It is strictly positive.
func (sc *Schedule) MinRetained() float64 {
	return sc.reversed[0]
}
