package diffusion

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"specdiff/tensor"
)

// Denoiser predicts the clean sample for a batch of corrupted ones.
// Implementations receive the reversed timestep index per sample and the
// conditioning attribute vectors [N, attributes].
type Denoiser interface {
	Denoise(noisy *tensor.Tensor, ts []int, labels *tensor.Tensor) (*tensor.Tensor, error)
}

// Sampler runs the deterministic reverse process: starting from pure
// noise, it repeatedly asks the denoiser for a clean estimate and re-mixes
// it at the next (less noisy) retention level. With a clean-sample
// predictor the update is
//
//	eps  = (x_t - sqrt(a_t)*x0) / sqrt(1-a_t)
//	x_t' = sqrt(a_t')*x0 + sqrt(1-a_t')*eps
//
// walking t from the noisiest index toward the clean end. The final level
// retains the full signal, so the last update returns the prediction
// itself.
type Sampler struct {
	sched *Schedule
	den   Denoiser
}

// NewSampler pairs a schedule with a trained denoiser.
func NewSampler(sched *Schedule, den Denoiser) *Sampler {
	return &Sampler{sched: sched, den: den}
}

// Sample generates one spectrogram per conditioning row. labels must be
// [N, attributes]; sampleShape gives the per-sample dims (e.g. [C, H, W]).
// steps selects how many evenly spaced schedule indices the reverse walk
// visits, between 1 and the schedule length. The rng seeds the initial
// noise, so a fixed seed reproduces the run exactly.
//
// Cancellation is checked between denoiser calls; a canceled ctx returns
// ctx.Err() with no partial result.
func (sp *Sampler) Sample(ctx context.Context, labels *tensor.Tensor, sampleShape []int, steps int, rng *rand.Rand) (*tensor.Tensor, error) {
	if len(labels.Shape) != 2 || labels.Shape[0] < 1 {
		return nil, fmt.Errorf("%w: labels must be [N, attributes], got %v", ErrShapeMismatch, labels.Shape)
	}
	if steps < 1 || steps > sp.sched.timesteps {
		return nil, fmt.Errorf("%w: steps must be in [1, %d], got %d", ErrInvalidTimestep, sp.sched.timesteps, steps)
	}

	n := labels.Shape[0]
	shape := append([]int{n}, sampleShape...)
	x := tensor.Randn(rng, shape...)
	ts := make([]int, n)

	for k := 0; k < steps; k++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		t := sp.position(k, steps)
		for i := range ts {
			ts[i] = t
		}

		x0, err := sp.den.Denoise(x, ts, labels)
		if err != nil {
			return nil, fmt.Errorf("denoise at t=%d: %w", t, err)
		}
		if !x0.SameShape(x) {
			return nil, fmt.Errorf("%w: denoiser returned %v for input %v", ErrShapeMismatch, x0.Shape, x.Shape)
		}

		aT := sp.sched.reversed[t]
		aNext := sp.sched.reversed[sp.position(k+1, steps)]
		sqAT := math.Sqrt(aT)
		sq1mAT := math.Sqrt(1 - aT)
		sqAN := math.Sqrt(aNext)
		sq1mAN := math.Sqrt(1 - aNext)

		for i := range x.Data {
			var eps float64
			if sq1mAT > 0 {
				eps = (float64(x.Data[i]) - sqAT*float64(x0.Data[i])) / sq1mAT
			}
			x.Data[i] = float32(sqAN*float64(x0.Data[i]) + sq1mAN*eps)
		}
	}
	return x, nil
}

// position maps walk step k to a reversed schedule index. Step 0 starts at
// the noisiest index; step count (one past the last) lands exactly on the
// clean end so the walk always terminates at full retention.
func (sp *Sampler) position(k, steps int) int {
	if k >= steps {
		return sp.sched.timesteps - 1
	}
	return k * (sp.sched.timesteps - 1) / steps
}
