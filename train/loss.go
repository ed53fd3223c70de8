package train

import (
	"fmt"

	"specdiff/tensor"
)

// ============================================================================
// Loss Functions
// ============================================================================

// L1Loss computes the mean absolute error between pred and target along with
// the gradient of the loss with respect to pred.
//
// loss = (1/N) * Σ |pred[i] - target[i]|
// grad = sign(pred[i] - target[i]) / N
//
// The subgradient at zero is taken as zero.
func L1Loss(pred, target *tensor.Tensor) (float32, *tensor.Tensor, error) {
	if !pred.SameShape(target) {
		return 0, nil, fmt.Errorf("train: loss shape mismatch: pred %v vs target %v", pred.Shape, target.Shape)
	}
	n := len(pred.Data)
	if n == 0 {
		return 0, nil, fmt.Errorf("train: loss over empty tensor")
	}

	grad := tensor.New(pred.Shape...)
	inv := 1.0 / float32(n)

	var sum float64
	for i, p := range pred.Data {
		diff := p - target.Data[i]
		switch {
		case diff > 0:
			sum += float64(diff)
			grad.Data[i] = inv
		case diff < 0:
			sum -= float64(diff)
			grad.Data[i] = -inv
		}
	}
	return float32(sum / float64(n)), grad, nil
}
