package train

import "math"

// ============================================================================
// Learning Rate Schedules
// ============================================================================

// LRSchedule computes the learning rate for a given epoch. Schedules are
// stateless: rate depends only on the epoch index, so a resumed run picks up
// the curve exactly where it left off.
type LRSchedule interface {
	// LR returns the learning rate to use during the given epoch (0-based).
	LR(epoch int) float32

	// Name returns the schedule identifier.
	Name() string
}

// ConstantSchedule keeps the learning rate fixed for the whole run.
type ConstantSchedule struct {
	lr float32
}

// NewConstantSchedule creates a schedule that always returns lr.
func NewConstantSchedule(lr float32) *ConstantSchedule {
	return &ConstantSchedule{lr: lr}
}

func (s *ConstantSchedule) LR(epoch int) float32 {
	return s.lr
}

func (s *ConstantSchedule) Name() string {
	return "constant"
}

// CosineAnnealing decays the learning rate from initialLR to minLR over
// totalEpochs following a half cosine wave.
type CosineAnnealing struct {
	initialLR   float32
	minLR       float32
	totalEpochs int
}

// NewCosineAnnealing creates a cosine annealing schedule over totalEpochs.
func NewCosineAnnealing(initialLR, minLR float32, totalEpochs int) *CosineAnnealing {
	return &CosineAnnealing{
		initialLR:   initialLR,
		minLR:       minLR,
		totalEpochs: totalEpochs,
	}
}

func (s *CosineAnnealing) LR(epoch int) float32 {
	if s.totalEpochs <= 1 {
		return s.initialLR
	}
	if epoch >= s.totalEpochs {
		return s.minLR
	}
	progress := float64(epoch) / float64(s.totalEpochs-1)

	// Cosine annealing: lr = minLR + (initialLR - minLR) * (1 + cos(π * progress)) / 2
	cosine := (1.0 + math.Cos(math.Pi*progress)) / 2.0
	return s.minLR + (s.initialLR-s.minLR)*float32(cosine)
}

func (s *CosineAnnealing) Name() string {
	return "cosine"
}
