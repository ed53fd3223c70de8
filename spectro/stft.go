package spectro

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// STFTConfig controls the short-time Fourier transform. Zero values pick
// the defaults: a 1024-sample Hann window with 75% overlap.
type STFTConfig struct {
	WindowSize int // samples per frame (default: 1024)
	Hop        int // samples between frame starts (default: WindowSize/4)
}

func (c STFTConfig) withDefaults() STFTConfig {
	if c.WindowSize == 0 {
		c.WindowSize = 1024
	}
	if c.Hop == 0 {
		c.Hop = c.WindowSize / 4
	}
	return c
}

// HannWindow returns the n-point Hann window.
func HannWindow(n int) []float64 {
	win := make([]float64, n)
	for i := range win {
		win[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return win
}

// STFT computes the short-time Fourier transform of a mono signal. The
// result holds one row per frame with WindowSize/2+1 frequency bins, low
// frequencies first.
func STFT(samples []float32, cfg STFTConfig) ([][]complex128, error) {
	cfg = cfg.withDefaults()
	if cfg.WindowSize < 2 {
		return nil, fmt.Errorf("spectro: window size must be at least 2, got %d", cfg.WindowSize)
	}
	if cfg.Hop <= 0 {
		return nil, fmt.Errorf("spectro: hop must be positive, got %d", cfg.Hop)
	}
	if len(samples) < cfg.WindowSize {
		return nil, fmt.Errorf("spectro: clip of %d samples shorter than window %d", len(samples), cfg.WindowSize)
	}

	win := HannWindow(cfg.WindowSize)
	fft := fourier.NewFFT(cfg.WindowSize)

	frame := make([]float64, cfg.WindowSize)
	var frames [][]complex128
	for off := 0; off+cfg.WindowSize <= len(samples); off += cfg.Hop {
		for i := 0; i < cfg.WindowSize; i++ {
			frame[i] = float64(samples[off+i]) * win[i]
		}
		frames = append(frames, fft.Coefficients(nil, frame))
	}
	return frames, nil
}

// Bins returns the number of frequency bins STFT produces per frame.
func (c STFTConfig) Bins() int {
	return c.withDefaults().WindowSize/2 + 1
}
