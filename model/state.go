package model

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

// weightFormat tags the weight encoding: little-endian float32.
const weightFormat = "f32le"

// State is the serializable form of a dense denoiser: architecture config
// plus base64-encoded weight tensors keyed by parameter name.
type State struct {
	Kind    string            `json:"kind"`
	Config  DenseConfig       `json:"cfg"`
	Format  string            `json:"fmt"`
	Tensors map[string]string `json:"tensors"`
}

// State captures the current weights for checkpointing.
func (m *Dense) State() *State {
	tensors := make(map[string]string, 6)
	for _, p := range m.Params() {
		tensors[p.Name] = EncodeFloats(p.Data)
	}
	return &State{
		Kind:    "dense",
		Config:  m.cfg,
		Format:  weightFormat,
		Tensors: tensors,
	}
}

// FromState rebuilds a dense denoiser from a saved state.
func FromState(st *State) (*Dense, error) {
	if st.Kind != "dense" {
		return nil, fmt.Errorf("model: unsupported kind %q", st.Kind)
	}
	if st.Format != weightFormat {
		return nil, fmt.Errorf("model: unsupported weight format %q", st.Format)
	}

	m, err := NewDense(st.Config)
	if err != nil {
		return nil, err
	}
	for _, p := range m.Params() {
		enc, ok := st.Tensors[p.Name]
		if !ok {
			return nil, fmt.Errorf("model: state missing tensor %q", p.Name)
		}
		vals, err := DecodeFloats(enc)
		if err != nil {
			return nil, fmt.Errorf("model: tensor %q: %w", p.Name, err)
		}
		if len(vals) != len(p.Data) {
			return nil, fmt.Errorf("model: tensor %q has %d values, expected %d", p.Name, len(vals), len(p.Data))
		}
		copy(p.Data, vals)
	}
	return m, nil
}

// EncodeFloats packs float32 values as base64 little-endian bytes, the
// weight encoding used throughout checkpoints.
func EncodeFloats(vals []float32) string {
	buf := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// DecodeFloats reverses EncodeFloats.
func DecodeFloats(enc string) ([]float32, error) {
	buf, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return nil, err
	}
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("encoded length %d is not a multiple of 4", len(buf))
	}
	vals := make([]float32, len(buf)/4)
	for i := range vals {
		vals[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vals, nil
}
