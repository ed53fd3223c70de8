// Package spectro turns audio clips into the 4-channel spectrogram images
// the trainer consumes: WAV decoding, a Hann-windowed STFT, and PNG
// rendering with log-magnitude and quadrature phase channels.
package spectro

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Clip is a mono audio buffer with samples in [-1, 1).
type Clip struct {
	SampleRate int
	Samples    []float32
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c.SampleRate == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// ReadWAV decodes a RIFF/WAVE file containing 16-bit PCM. Multi-channel
// files keep only the first channel.
func ReadWAV(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()
	return DecodeWAV(f)
}

// DecodeWAV decodes 16-bit PCM WAVE data from r.
func DecodeWAV(r io.Reader) (*Clip, error) {
	var riff struct {
		ID     [4]byte
		Size   uint32
		Format [4]byte
	}
	if err := binary.Read(r, binary.LittleEndian, &riff); err != nil {
		return nil, fmt.Errorf("wav: read header: %w", err)
	}
	if string(riff.ID[:]) != "RIFF" || string(riff.Format[:]) != "WAVE" {
		return nil, fmt.Errorf("wav: not a RIFF/WAVE stream")
	}

	var (
		sampleRate int
		channels   int
		haveFmt    bool
	)

	// Walk chunks until the data chunk; skip anything else (LIST, fact, ...).
	for {
		var chunk struct {
			ID   [4]byte
			Size uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &chunk); err == io.EOF {
			return nil, fmt.Errorf("wav: no data chunk")
		} else if err != nil {
			return nil, fmt.Errorf("wav: read chunk header: %w", err)
		}

		switch string(chunk.ID[:]) {
		case "fmt ":
			var f struct {
				AudioFormat   uint16
				NumChannels   uint16
				SampleRate    uint32
				ByteRate      uint32
				BlockAlign    uint16
				BitsPerSample uint16
			}
			if err := binary.Read(r, binary.LittleEndian, &f); err != nil {
				return nil, fmt.Errorf("wav: read fmt chunk: %w", err)
			}
			if f.AudioFormat != 1 {
				return nil, fmt.Errorf("wav: unsupported audio format %d (want PCM)", f.AudioFormat)
			}
			if f.BitsPerSample != 16 {
				return nil, fmt.Errorf("wav: unsupported bit depth %d (want 16)", f.BitsPerSample)
			}
			if f.NumChannels == 0 {
				return nil, fmt.Errorf("wav: zero channels")
			}
			sampleRate = int(f.SampleRate)
			channels = int(f.NumChannels)
			haveFmt = true

			// fmt chunks may carry extension bytes past the 16 we need.
			if extra := int64(chunk.Size) - 16; extra > 0 {
				if err := skipBytes(r, extra); err != nil {
					return nil, fmt.Errorf("wav: skip fmt extension: %w", err)
				}
			}

		case "data":
			if !haveFmt {
				return nil, fmt.Errorf("wav: data chunk before fmt chunk")
			}
			raw := make([]byte, chunk.Size)
			if _, err := io.ReadFull(r, raw); err != nil {
				return nil, fmt.Errorf("wav: read samples: %w", err)
			}
			frames := len(raw) / (2 * channels)
			samples := make([]float32, frames)
			for i := 0; i < frames; i++ {
				v := int16(binary.LittleEndian.Uint16(raw[i*2*channels:]))
				samples[i] = float32(v) / 32768.0
			}
			return &Clip{SampleRate: sampleRate, Samples: samples}, nil

		default:
			size := int64(chunk.Size)
			if size%2 == 1 {
				size++ // chunks are word-aligned
			}
			if err := skipBytes(r, size); err != nil {
				return nil, fmt.Errorf("wav: skip %q chunk: %w", chunk.ID, err)
			}
		}
	}
}

func skipBytes(r io.Reader, n int64) error {
	if s, ok := r.(io.Seeker); ok {
		_, err := s.Seek(n, io.SeekCurrent)
		return err
	}
	_, err := io.CopyN(io.Discard, r, n)
	return err
}
