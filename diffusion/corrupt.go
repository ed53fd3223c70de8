package diffusion

import (
	"fmt"
	"math"

	"specdiff/tensor"
)

// Corrupt blends a clean sample with noise at reversed timestep t:
//
//	noisy = sqrt(a)*x + sqrt(1-a)*noise, a = retained fraction at t
//
// The squared mixing weights sum to 1, so unit-scale inputs stay
// unit-scale at every noise level. The noise tensor must match the sample
// shape exactly; the caller draws it fresh per call (tensor.Randn), which
// keeps the function pure and reproducible under a fixed noise input.
//
// All validation happens before any arithmetic; on error nothing is
// allocated or written.
func Corrupt(x *tensor.Tensor, t int, sched *Schedule, noise *tensor.Tensor) (*tensor.Tensor, error) {
	if t < 0 || t >= sched.timesteps {
		return nil, fmt.Errorf("%w: t=%d, valid range [0, %d)", ErrInvalidTimestep, t, sched.timesteps)
	}
	if !x.SameShape(noise) {
		return nil, fmt.Errorf("%w: sample %v vs noise %v", ErrShapeMismatch, x.Shape, noise.Shape)
	}

	a := sched.reversed[t]
	signal := float32(math.Sqrt(a))
	sigma := float32(math.Sqrt(1 - a))

	out := tensor.New(x.Shape...)
	for i := range x.Data {
		out.Data[i] = signal*x.Data[i] + sigma*noise.Data[i]
	}
	return out, nil
}

// CorruptBatch corrupts a batch [N, ...] with one timestep per sample.
// len(ts) must equal the batch dimension, and the noise tensor must match
// the batch shape. Every timestep is validated before any sample is
// touched, so a bad index leaves no partial output behind.
func CorruptBatch(batch *tensor.Tensor, ts []int, sched *Schedule, noise *tensor.Tensor) (*tensor.Tensor, error) {
	if len(batch.Shape) < 2 {
		return nil, fmt.Errorf("%w: batch tensor needs at least [N, ...] dims, got %v", ErrShapeMismatch, batch.Shape)
	}
	n := batch.Shape[0]
	if len(ts) != n {
		return nil, fmt.Errorf("%w: %d timesteps for batch of %d samples", ErrShapeMismatch, len(ts), n)
	}
	if !batch.SameShape(noise) {
		return nil, fmt.Errorf("%w: batch %v vs noise %v", ErrShapeMismatch, batch.Shape, noise.Shape)
	}
	for i, t := range ts {
		if t < 0 || t >= sched.timesteps {
			return nil, fmt.Errorf("%w: ts[%d]=%d, valid range [0, %d)", ErrInvalidTimestep, i, t, sched.timesteps)
		}
	}

	stride := batch.Numel() / n
	out := tensor.New(batch.Shape...)
	for i, t := range ts {
		a := sched.reversed[t]
		signal := float32(math.Sqrt(a))
		sigma := float32(math.Sqrt(1 - a))

		base := i * stride
		for j := 0; j < stride; j++ {
			out.Data[base+j] = signal*batch.Data[base+j] + sigma*noise.Data[base+j]
		}
	}
	return out, nil
}
