package spectro

import (
	"fmt"
	"image"
	"math"
	"math/cmplx"
)

// RenderConfig controls spectrogram rasterization.
type RenderConfig struct {
	// Floor clamps magnitudes before the log so silence stays finite
	// (default: 1e-6, a -120 dB floor).
	Floor float64
}

func (c RenderConfig) withDefaults() RenderConfig {
	if c.Floor == 0 {
		c.Floor = 1e-6
	}
	return c
}

// RenderImage rasterizes STFT frames into a 4-channel image. Columns are
// frames in time order; rows are frequency bins with the lowest frequency
// at the bottom. Channels:
//
//	R: log-magnitude, normalized per image to [0, 1]
//	G: (cos phase + 1) / 2
//	B: (sin phase + 1) / 2
//	A: opaque
//
// Carrying quadrature phase keeps the image invertible back to a complex
// spectrogram, which plain magnitude images are not.
func RenderImage(frames [][]complex128, cfg RenderConfig) (*image.NRGBA, error) {
	cfg = cfg.withDefaults()
	if len(frames) == 0 {
		return nil, fmt.Errorf("spectro: no frames to render")
	}
	bins := len(frames[0])
	if bins == 0 {
		return nil, fmt.Errorf("spectro: frames have no bins")
	}
	for i, f := range frames {
		if len(f) != bins {
			return nil, fmt.Errorf("spectro: ragged frame %d: %d bins, want %d", i, len(f), bins)
		}
	}

	floorDB := 20 * math.Log10(cfg.Floor)
	maxDB := floorDB
	for _, f := range frames {
		for _, c := range f {
			mag := cmplx.Abs(c)
			if mag < cfg.Floor {
				continue
			}
			if db := 20 * math.Log10(mag); db > maxDB {
				maxDB = db
			}
		}
	}
	scale := maxDB - floorDB

	img := image.NewNRGBA(image.Rect(0, 0, len(frames), bins))
	for x, f := range frames {
		for k, c := range f {
			mag := cmplx.Abs(c)
			var level float64
			if scale > 0 && mag > cfg.Floor {
				level = (20*math.Log10(mag) - floorDB) / scale
			}
			phase := cmplx.Phase(c)

			y := bins - 1 - k // low frequencies at the bottom
			i := img.PixOffset(x, y)
			img.Pix[i+0] = levelByte(level)
			img.Pix[i+1] = levelByte((math.Cos(phase) + 1) / 2)
			img.Pix[i+2] = levelByte((math.Sin(phase) + 1) / 2)
			img.Pix[i+3] = 0xff
		}
	}
	return img, nil
}

// Render is the full clip-to-image pipeline: STFT then rasterization.
func Render(clip *Clip, stft STFTConfig, rd RenderConfig) (*image.NRGBA, error) {
	frames, err := STFT(clip.Samples, stft)
	if err != nil {
		return nil, err
	}
	return RenderImage(frames, rd)
}

func levelByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 0xff
	}
	return uint8(math.Round(v * 255))
}
