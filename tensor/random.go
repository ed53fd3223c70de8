package tensor

import "math/rand"

// Randn creates a tensor filled with standard-normal samples drawn from rng.
// Callers own the rng; a seeded source makes the fill reproducible.
func Randn(rng *rand.Rand, shape ...int) *Tensor {
	t := New(shape...)
	for i := range t.Data {
		t.Data[i] = float32(rng.NormFloat64())
	}
	return t
}

// RandnLike creates a standard-normal tensor with the same shape as ref.
func RandnLike(rng *rand.Rand, ref *Tensor) *Tensor {
	return Randn(rng, ref.Shape...)
}
