//go:build ort

package main

import (
	"flag"

	"specdiff/diffusion"
	"specdiff/model"
)

var (
	flagONNX   = flag.String("onnx", "", "ONNX denoiser to sample with instead of the checkpoint weights; the checkpoint still supplies the schedule and image dims.")
	flagORTLib = flag.String("ort-lib", "", "Path to the onnxruntime shared library (empty = autodetect).")
)

// onnxDenoiser returns the ONNX-backed denoiser when -onnx is set, with a
// cleanup func for the session. A nil denoiser means the flag is unset.
func onnxDenoiser() (diffusion.Denoiser, func(), error) {
	if *flagONNX == "" {
		return nil, nil, nil
	}
	den, err := model.NewONNXDenoiser(model.ONNXConfig{
		ModelPath:   *flagONNX,
		LibraryPath: *flagORTLib,
	})
	if err != nil {
		return nil, nil, err
	}
	return den, func() { den.Close() }, nil
}
