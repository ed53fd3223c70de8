// Package model provides the trainable denoiser implementations: a dense
// baseline with hand-derived gradients suitable for CPU training, plus an
// ONNX Runtime backend (build tag "ort") for sampling with exported
// models.
package model

// Param is one named weight tensor with its gradient accumulator. The
// optimizer updates Data in place from Grad; names key the optimizer's
// per-parameter state and the checkpoint weight map.
type Param struct {
	Name string
	Data []float32
	Grad []float32
}

func newParam(name string, n int) *Param {
	return &Param{
		Name: name,
		Data: make([]float32, n),
		Grad: make([]float32, n),
	}
}
