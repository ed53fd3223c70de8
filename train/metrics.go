package train

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// ============================================================================
// Run Metrics
// ============================================================================

// EpochStats records what happened during a single epoch.
type EpochStats struct {
	Epoch     int     `json:"epoch"`
	TrainLoss float64 `json:"train_loss"`
	ValLoss   float64 `json:"val_loss"`
	LR        float32 `json:"lr"`
}

// History accumulates per-epoch loss curves for a run. It is stored inside
// snapshots so a resumed run keeps extending the same curves.
type History struct {
	Train []float64 `json:"train"`
	Val   []float64 `json:"val"`
}

// Append records the losses for the next epoch.
func (h *History) Append(train, val float64) {
	h.Train = append(h.Train, train)
	h.Val = append(h.Val, val)
}

// Epochs returns how many epochs the history covers.
func (h *History) Epochs() int {
	return len(h.Train)
}

// Summary condenses a loss history into run-level statistics.
type Summary struct {
	Epochs        int     `json:"epochs"`
	BestEpoch     int     `json:"best_epoch"`
	BestValLoss   float64 `json:"best_val_loss"`
	FinalValLoss  float64 `json:"final_val_loss"`
	MeanTrainLoss float64 `json:"mean_train_loss"`
	StdTrainLoss  float64 `json:"std_train_loss"`
}

// Summarize computes run-level statistics from a loss history. The best epoch
// is the one with the lowest validation loss.
func Summarize(h History) Summary {
	s := Summary{Epochs: h.Epochs(), BestEpoch: -1, BestValLoss: math.Inf(1)}
	if s.Epochs == 0 {
		s.BestValLoss = 0
		return s
	}

	s.MeanTrainLoss = stat.Mean(h.Train, nil)
	if len(h.Train) > 1 {
		s.StdTrainLoss = stat.StdDev(h.Train, nil)
	}

	for i, v := range h.Val {
		if v < s.BestValLoss {
			s.BestValLoss = v
			s.BestEpoch = i
		}
	}
	s.FinalValLoss = h.Val[len(h.Val)-1]
	return s
}
