package train

import (
	"fmt"
	"math"

	"specdiff/model"
)

// Optimizer interface defines the contract for all optimizers
type Optimizer interface {
	// Step applies accumulated gradients to the parameters
	Step(params []*model.Param, learningRate float32)

	// Reset clears optimizer state (moments, velocities)
	Reset()

	// State returns optimizer state for checkpointing
	State() OptimizerState

	// LoadState restores optimizer state from a checkpoint
	LoadState(state OptimizerState) error

	// Name returns the optimizer name
	Name() string
}

// OptimizerState is the serializable form of an optimizer. Moment vectors
// are base64 little-endian float32, keyed by parameter name.
type OptimizerState struct {
	Type     string            `json:"type"`
	Step     int               `json:"step,omitempty"`
	Beta1    float32           `json:"beta1,omitempty"`
	Beta2    float32           `json:"beta2,omitempty"`
	Epsilon  float32           `json:"epsilon,omitempty"`
	Momentum float32           `json:"momentum,omitempty"`
	M        map[string]string `json:"m,omitempty"`
	V        map[string]string `json:"v,omitempty"`
}

// ============================================================================
// Adam Optimizer (bias-corrected first and second moments)
// ============================================================================

type AdamOptimizer struct {
	beta1   float32
	beta2   float32
	epsilon float32
	step    int

	// First moment estimates (momentum)
	m map[string][]float32

	// Second moment estimates (variance)
	v map[string][]float32
}

func NewAdamOptimizer(beta1, beta2, epsilon float32) *AdamOptimizer {
	return &AdamOptimizer{
		beta1:   beta1,
		beta2:   beta2,
		epsilon: epsilon,
		step:    0,
		m:       make(map[string][]float32),
		v:       make(map[string][]float32),
	}
}

func NewAdamOptimizerDefault() *AdamOptimizer {
	return NewAdamOptimizer(0.9, 0.999, 1e-8)
}

func (opt *AdamOptimizer) Step(params []*model.Param, learningRate float32) {
	opt.step++

	// Bias correction factors
	biasCorrection1 := 1.0 - float32(math.Pow(float64(opt.beta1), float64(opt.step)))
	biasCorrection2 := 1.0 - float32(math.Pow(float64(opt.beta2), float64(opt.step)))

	for _, p := range params {
		// Initialize moments if needed
		if opt.m[p.Name] == nil {
			opt.m[p.Name] = make([]float32, len(p.Data))
			opt.v[p.Name] = make([]float32, len(p.Data))
		}
		m := opt.m[p.Name]
		v := opt.v[p.Name]

		for j := range p.Data {
			grad := p.Grad[j]

			// Update biased first moment estimate
			m[j] = opt.beta1*m[j] + (1-opt.beta1)*grad

			// Update biased second moment estimate
			v[j] = opt.beta2*v[j] + (1-opt.beta2)*grad*grad

			// Compute bias-corrected moments
			mHat := m[j] / biasCorrection1
			vHat := v[j] / biasCorrection2

			p.Data[j] -= learningRate * mHat / (float32(math.Sqrt(float64(vHat))) + opt.epsilon)
		}
	}
}

func (opt *AdamOptimizer) Reset() {
	opt.step = 0
	opt.m = make(map[string][]float32)
	opt.v = make(map[string][]float32)
}

func (opt *AdamOptimizer) State() OptimizerState {
	st := OptimizerState{
		Type:    "adam",
		Step:    opt.step,
		Beta1:   opt.beta1,
		Beta2:   opt.beta2,
		Epsilon: opt.epsilon,
		M:       make(map[string]string, len(opt.m)),
		V:       make(map[string]string, len(opt.v)),
	}
	for name, vals := range opt.m {
		st.M[name] = model.EncodeFloats(vals)
	}
	for name, vals := range opt.v {
		st.V[name] = model.EncodeFloats(vals)
	}
	return st
}

func (opt *AdamOptimizer) LoadState(state OptimizerState) error {
	if state.Type != "adam" {
		return fmt.Errorf("invalid optimizer type: expected adam, got %q", state.Type)
	}

	opt.step = state.Step
	if state.Beta1 != 0 {
		opt.beta1 = state.Beta1
	}
	if state.Beta2 != 0 {
		opt.beta2 = state.Beta2
	}
	if state.Epsilon != 0 {
		opt.epsilon = state.Epsilon
	}

	opt.m = make(map[string][]float32, len(state.M))
	for name, enc := range state.M {
		vals, err := model.DecodeFloats(enc)
		if err != nil {
			return fmt.Errorf("moment m[%s]: %w", name, err)
		}
		opt.m[name] = vals
	}
	opt.v = make(map[string][]float32, len(state.V))
	for name, enc := range state.V {
		vals, err := model.DecodeFloats(enc)
		if err != nil {
			return fmt.Errorf("moment v[%s]: %w", name, err)
		}
		opt.v[name] = vals
	}
	return nil
}

func (opt *AdamOptimizer) Name() string {
	return "Adam"
}

// ============================================================================
// SGD Optimizer (Stochastic Gradient Descent with optional momentum)
// ============================================================================

type SGDOptimizer struct {
	momentum   float32
	velocities map[string][]float32
}

func NewSGDOptimizer(momentum float32) *SGDOptimizer {
	return &SGDOptimizer{
		momentum:   momentum,
		velocities: make(map[string][]float32),
	}
}

func (opt *SGDOptimizer) Step(params []*model.Param, learningRate float32) {
	// Simple SGD without momentum
	if opt.momentum == 0 {
		for _, p := range params {
			for j := range p.Data {
				p.Data[j] -= learningRate * p.Grad[j]
			}
		}
		return
	}

	// SGD with momentum: v = momentum * v + grad; w = w - lr * v
	for _, p := range params {
		if opt.velocities[p.Name] == nil {
			opt.velocities[p.Name] = make([]float32, len(p.Data))
		}
		vel := opt.velocities[p.Name]
		for j := range p.Data {
			vel[j] = opt.momentum*vel[j] + p.Grad[j]
			p.Data[j] -= learningRate * vel[j]
		}
	}
}

func (opt *SGDOptimizer) Reset() {
	opt.velocities = make(map[string][]float32)
}

func (opt *SGDOptimizer) State() OptimizerState {
	st := OptimizerState{
		Type:     "sgd",
		Momentum: opt.momentum,
		V:        make(map[string]string, len(opt.velocities)),
	}
	for name, vals := range opt.velocities {
		st.V[name] = model.EncodeFloats(vals)
	}
	return st
}

func (opt *SGDOptimizer) LoadState(state OptimizerState) error {
	if state.Type != "sgd" {
		return fmt.Errorf("invalid optimizer type: expected sgd, got %q", state.Type)
	}
	opt.momentum = state.Momentum
	opt.velocities = make(map[string][]float32, len(state.V))
	for name, enc := range state.V {
		vals, err := model.DecodeFloats(enc)
		if err != nil {
			return fmt.Errorf("velocity[%s]: %w", name, err)
		}
		opt.velocities[name] = vals
	}
	return nil
}

func (opt *SGDOptimizer) Name() string {
	if opt.momentum > 0 {
		return "SGD (momentum)"
	}
	return "SGD"
}
