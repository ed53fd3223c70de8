package train

import (
	"math"
	"testing"
)

// TestHistoryAppend verifies the loss curves grow in lockstep.
func TestHistoryAppend(t *testing.T) {
	var h History
	h.Append(0.5, 0.6)
	h.Append(0.3, 0.2)

	if h.Epochs() != 2 {
		t.Fatalf("Expected 2 epochs, got %d", h.Epochs())
	}
	if h.Train[1] != 0.3 || h.Val[1] != 0.2 {
		t.Errorf("Expected epoch 1 losses 0.3/0.2, got %g/%g", h.Train[1], h.Val[1])
	}
}

// TestSummarizeKnownValues verifies the run statistics against hand-computed
// values for a three-epoch history.
func TestSummarizeKnownValues(t *testing.T) {
	h := History{
		Train: []float64{0.5, 0.3, 0.4},
		Val:   []float64{0.6, 0.2, 0.35},
	}
	s := Summarize(h)

	if s.Epochs != 3 {
		t.Errorf("Expected 3 epochs, got %d", s.Epochs)
	}
	if s.BestEpoch != 1 {
		t.Errorf("Expected best epoch 1, got %d", s.BestEpoch)
	}
	if s.BestValLoss != 0.2 {
		t.Errorf("Expected best val loss 0.2, got %g", s.BestValLoss)
	}
	if s.FinalValLoss != 0.35 {
		t.Errorf("Expected final val loss 0.35, got %g", s.FinalValLoss)
	}
	if math.Abs(s.MeanTrainLoss-0.4) > 1e-9 {
		t.Errorf("Expected mean train loss 0.4, got %g", s.MeanTrainLoss)
	}
	// sample standard deviation of {0.5, 0.3, 0.4}
	if math.Abs(s.StdTrainLoss-0.1) > 1e-9 {
		t.Errorf("Expected train loss std 0.1, got %g", s.StdTrainLoss)
	}
}

// TestSummarizeDegenerateHistories verifies the empty and single-epoch cases.
func TestSummarizeDegenerateHistories(t *testing.T) {
	s := Summarize(History{})
	if s.Epochs != 0 || s.BestEpoch != -1 || s.BestValLoss != 0 {
		t.Errorf("Expected empty summary {0, -1, 0}, got {%d, %d, %g}", s.Epochs, s.BestEpoch, s.BestValLoss)
	}

	s = Summarize(History{Train: []float64{0.7}, Val: []float64{0.9}})
	if s.BestEpoch != 0 || s.BestValLoss != 0.9 || s.FinalValLoss != 0.9 {
		t.Errorf("Expected single-epoch best/final 0.9 at epoch 0, got %+v", s)
	}
	if s.StdTrainLoss != 0 {
		t.Errorf("Expected zero std for one epoch, got %g", s.StdTrainLoss)
	}
}
