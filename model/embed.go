package model

import "math"

// TimeEmbedding encodes a timestep index as sinusoidal features over a
// geometric frequency ladder, the standard transformer position encoding.
// dim must be even; the first half holds sines, the second half cosines.
func TimeEmbedding(t int, dim int) []float32 {
	half := dim / 2
	emb := make([]float32, dim)
	for i := 0; i < half; i++ {
		freq := math.Exp(-math.Log(10000) * float64(i) / float64(half))
		angle := float64(t) * freq
		emb[i] = float32(math.Sin(angle))
		emb[half+i] = float32(math.Cos(angle))
	}
	return emb
}
