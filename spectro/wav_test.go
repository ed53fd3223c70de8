package spectro

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// buildWAV assembles an in-memory RIFF/WAVE file with 16-bit PCM frames.
// extraChunk, when set, is inserted between fmt and data.
func buildWAV(sampleRate, channels int, frames [][]int16, extraChunk []byte) []byte {
	var data bytes.Buffer
	for _, frame := range frames {
		for _, s := range frame {
			binary.Write(&data, binary.LittleEndian, s)
		}
	}

	var body bytes.Buffer
	body.WriteString("WAVE")

	body.WriteString("fmt ")
	binary.Write(&body, binary.LittleEndian, uint32(16))
	binary.Write(&body, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&body, binary.LittleEndian, uint16(channels))
	binary.Write(&body, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&body, binary.LittleEndian, uint32(sampleRate*channels*2))
	binary.Write(&body, binary.LittleEndian, uint16(channels*2))
	binary.Write(&body, binary.LittleEndian, uint16(16))

	body.Write(extraChunk)

	body.WriteString("data")
	binary.Write(&body, binary.LittleEndian, uint32(data.Len()))
	body.Write(data.Bytes())

	var out bytes.Buffer
	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

// TestDecodeWAV verifies sample rate, scaling and mono extraction.
func TestDecodeWAV(t *testing.T) {
	raw := buildWAV(16000, 1, [][]int16{{0}, {16384}, {-32768}, {32767}}, nil)

	clip, err := DecodeWAV(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}

	if clip.SampleRate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", clip.SampleRate)
	}
	if len(clip.Samples) != 4 {
		t.Fatalf("Expected 4 samples, got %d", len(clip.Samples))
	}
	if clip.Samples[0] != 0 {
		t.Errorf("Expected 0, got %f", clip.Samples[0])
	}
	if clip.Samples[1] != 0.5 {
		t.Errorf("Expected 0.5, got %f", clip.Samples[1])
	}
	if clip.Samples[2] != -1.0 {
		t.Errorf("Expected -1.0, got %f", clip.Samples[2])
	}
	if math.Abs(float64(clip.Samples[3])-32767.0/32768.0) > 1e-7 {
		t.Errorf("Expected near 1.0, got %f", clip.Samples[3])
	}
}

// TestDecodeWAVFirstChannel verifies stereo files keep only channel 0.
func TestDecodeWAVFirstChannel(t *testing.T) {
	raw := buildWAV(8000, 2, [][]int16{{100, -100}, {200, -200}, {300, -300}}, nil)

	clip, err := DecodeWAV(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}

	if len(clip.Samples) != 3 {
		t.Fatalf("Expected 3 samples, got %d", len(clip.Samples))
	}
	for i, want := range []float32{100, 200, 300} {
		if got := clip.Samples[i] * 32768; got != want {
			t.Errorf("Expected sample %d to be %f, got %f", i, want, got)
		}
	}
}

// TestDecodeWAVSkipsUnknownChunks verifies chunk walking past LIST metadata.
func TestDecodeWAVSkipsUnknownChunks(t *testing.T) {
	var list bytes.Buffer
	list.WriteString("LIST")
	binary.Write(&list, binary.LittleEndian, uint32(5))
	list.Write([]byte{1, 2, 3, 4, 5, 0}) // padded to even length

	raw := buildWAV(8000, 1, [][]int16{{42}}, list.Bytes())

	clip, err := DecodeWAV(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if len(clip.Samples) != 1 || clip.Samples[0]*32768 != 42 {
		t.Errorf("Expected single sample 42, got %v", clip.Samples)
	}
}

// TestDecodeWAVRejectsBadInput verifies format guards.
func TestDecodeWAVRejectsBadInput(t *testing.T) {
	if _, err := DecodeWAV(bytes.NewReader([]byte("OGGS????????"))); err == nil {
		t.Error("Expected error for non-RIFF input")
	}

	// IEEE float format instead of PCM.
	raw := buildWAV(8000, 1, [][]int16{{1}}, nil)
	raw[20] = 3
	if _, err := DecodeWAV(bytes.NewReader(raw)); err == nil {
		t.Error("Expected error for non-PCM format")
	}

	// 8-bit depth.
	raw = buildWAV(8000, 1, [][]int16{{1}}, nil)
	raw[34] = 8
	if _, err := DecodeWAV(bytes.NewReader(raw)); err == nil {
		t.Error("Expected error for 8-bit depth")
	}
}

// TestReadWAV verifies the file-path entry point.
func TestReadWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	raw := buildWAV(4000, 1, [][]int16{{1000}, {2000}}, nil)
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	clip, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}
	if clip.SampleRate != 4000 || len(clip.Samples) != 2 {
		t.Errorf("Unexpected clip: rate %d, %d samples", clip.SampleRate, len(clip.Samples))
	}
	if clip.Duration() != 0.5 {
		t.Errorf("Expected duration 0.5s, got %f", clip.Duration())
	}

	if _, err := ReadWAV(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("Expected error for missing file")
	}
}
