package diffusion

import "errors"

// Canonical failure classes for schedule construction, corruption, and
// sampling. Callers match with errors.Is; wrapped messages carry specifics.
var (
	// ErrInvalidSchedule reports non-positive timesteps or smoothing offset.
	ErrInvalidSchedule = errors.New("diffusion: invalid schedule parameters")

	// ErrInvalidTimestep reports a timestep index outside [0, timesteps).
	ErrInvalidTimestep = errors.New("diffusion: timestep out of range")

	// ErrShapeMismatch reports tensors whose shapes must agree but do not.
	ErrShapeMismatch = errors.New("diffusion: shape mismatch")
)
