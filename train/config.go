package train

import "fmt"

// Config holds configuration for a denoising training run.
type Config struct {
	// Diffusion settings
	Timesteps int     // number of noise levels (default: 1000)
	S         float64 // cosine schedule offset (default: 0.008)

	// Optimizer settings
	Optimizer    string  // "adam", "sgd", "sgd_momentum" (default: "adam")
	LearningRate float32 // initial learning rate (default: 1e-4)
	MinLR        float32 // cosine annealing floor (default: 1e-6)
	Beta1        float32 // Adam first-moment decay (default: 0.9)
	Beta2        float32 // Adam second-moment decay (default: 0.999)
	Epsilon      float32 // Adam epsilon (default: 1e-8)
	Momentum     float32 // SGD momentum (default: 0.9)

	// Training settings
	Epochs    int     // number of epochs to train (default: 20)
	BatchSize int     // samples per batch (default: 64)
	TrainFrac float64 // fraction of the dataset used for training (default: 0.7)
	Seed      int64   // RNG seed for splits, noise and timesteps (default: 42)
	Workers   int     // concurrent image loaders per batch (default: 4)

	// Checkpoint settings
	CheckpointPath     string // snapshot file path ("" = no checkpointing)
	KeepEpochSnapshots bool   // also retain a numbered copy per epoch
}

// DefaultConfig returns a Config populated with the defaults above.
func DefaultConfig() Config {
	return Config{
		Timesteps:    1000,
		S:            0.008,
		Optimizer:    "adam",
		LearningRate: 1e-4,
		MinLR:        1e-6,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
		Momentum:     0.9,
		Epochs:       20,
		BatchSize:    64,
		TrainFrac:    0.7,
		Seed:         42,
		Workers:      4,
	}
}

// Validate checks that the configuration describes a runnable training job.
func (c *Config) Validate() error {
	if c.Timesteps <= 0 {
		return fmt.Errorf("train: timesteps must be positive, got %d", c.Timesteps)
	}
	if c.S <= 0 {
		return fmt.Errorf("train: schedule offset must be positive, got %g", c.S)
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("train: epochs must be positive, got %d", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("train: batch size must be positive, got %d", c.BatchSize)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("train: learning rate must be positive, got %g", c.LearningRate)
	}
	if c.MinLR < 0 || c.MinLR > c.LearningRate {
		return fmt.Errorf("train: min learning rate %g outside [0, %g]", c.MinLR, c.LearningRate)
	}
	if c.TrainFrac <= 0 || c.TrainFrac >= 1 {
		return fmt.Errorf("train: train fraction must be in (0, 1), got %g", c.TrainFrac)
	}
	switch c.Optimizer {
	case "adam", "sgd", "sgd_momentum":
	default:
		return fmt.Errorf("train: unknown optimizer %q", c.Optimizer)
	}
	return nil
}
