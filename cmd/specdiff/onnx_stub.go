//go:build !ort

package main

import "specdiff/diffusion"

// onnxDenoiser is a no-op without the ort build tag; sampling always uses
// the checkpoint weights.
func onnxDenoiser() (diffusion.Denoiser, func(), error) {
	return nil, nil, nil
}
