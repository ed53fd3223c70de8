package train

import (
	"math"
	"testing"

	"specdiff/model"
)

func quadraticGrad(p *model.Param, target float32) {
	for i := range p.Data {
		p.Grad[i] = 2 * (p.Data[i] - target)
	}
}

// TestAdamConvergesOnQuadratic verifies that Adam walks a parameter down a
// simple quadratic bowl.
func TestAdamConvergesOnQuadratic(t *testing.T) {
	p := &model.Param{Name: "w", Data: []float32{-4, 0, 7}, Grad: make([]float32, 3)}
	opt := NewAdamOptimizerDefault()

	for step := 0; step < 2000; step++ {
		quadraticGrad(p, 3)
		opt.Step([]*model.Param{p}, 0.05)
	}

	for i, v := range p.Data {
		if math.Abs(float64(v)-3) > 0.05 {
			t.Errorf("Expected Data[%d] near 3.0, got %f", i, v)
		}
	}
}

// TestSGDPlainStep verifies the bare SGD update rule w -= lr * grad.
func TestSGDPlainStep(t *testing.T) {
	p := &model.Param{Name: "w", Data: []float32{1, 2}, Grad: []float32{0.5, -1}}
	opt := NewSGDOptimizer(0)

	opt.Step([]*model.Param{p}, 0.1)

	if math.Abs(float64(p.Data[0])-0.95) > 1e-6 {
		t.Errorf("Expected 0.95, got %f", p.Data[0])
	}
	if math.Abs(float64(p.Data[1])-2.1) > 1e-6 {
		t.Errorf("Expected 2.1, got %f", p.Data[1])
	}
}

// TestSGDMomentumAccumulates verifies that repeated identical gradients build
// up velocity: the second step moves further than the first.
func TestSGDMomentumAccumulates(t *testing.T) {
	p := &model.Param{Name: "w", Data: []float32{0}, Grad: []float32{1}}
	opt := NewSGDOptimizer(0.9)

	opt.Step([]*model.Param{p}, 0.1)
	first := float64(0 - p.Data[0])

	before := p.Data[0]
	p.Grad[0] = 1
	opt.Step([]*model.Param{p}, 0.1)
	second := float64(before - p.Data[0])

	if second <= first {
		t.Errorf("Expected momentum to grow the step: first %f, second %f", first, second)
	}
	// v after two steps: 1, then 0.9*1 + 1 = 1.9
	if math.Abs(second-0.19) > 1e-6 {
		t.Errorf("Expected second step 0.19, got %f", second)
	}
}

// TestAdamStateRoundTrip verifies that restoring Adam from its serialized
// state reproduces the exact same next update as the uninterrupted optimizer.
func TestAdamStateRoundTrip(t *testing.T) {
	mkParam := func() *model.Param {
		return &model.Param{Name: "w", Data: []float32{-4, 0, 7}, Grad: make([]float32, 3)}
	}

	a := mkParam()
	optA := NewAdamOptimizerDefault()
	for step := 0; step < 10; step++ {
		quadraticGrad(a, 3)
		optA.Step([]*model.Param{a}, 0.05)
	}

	// Clone the trajectory into a fresh optimizer via State/LoadState.
	b := mkParam()
	copy(b.Data, a.Data)
	optB := NewAdamOptimizerDefault()
	if err := optB.LoadState(optA.State()); err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}

	quadraticGrad(a, 3)
	optA.Step([]*model.Param{a}, 0.05)
	quadraticGrad(b, 3)
	optB.Step([]*model.Param{b}, 0.05)

	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Errorf("Expected identical updates at %d: %f vs %f", i, a.Data[i], b.Data[i])
		}
	}
}

// TestAdamLoadStateRejectsWrongType verifies the type guard on restore.
func TestAdamLoadStateRejectsWrongType(t *testing.T) {
	opt := NewAdamOptimizerDefault()
	if err := opt.LoadState(OptimizerState{Type: "sgd"}); err == nil {
		t.Error("Expected error loading sgd state into adam")
	}
}

// TestSGDStateRoundTrip verifies momentum velocities survive serialization.
func TestSGDStateRoundTrip(t *testing.T) {
	p := &model.Param{Name: "w", Data: []float32{0}, Grad: []float32{1}}
	opt := NewSGDOptimizer(0.9)
	opt.Step([]*model.Param{p}, 0.1)

	restored := NewSGDOptimizer(0.9)
	if err := restored.LoadState(opt.State()); err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}

	q := &model.Param{Name: "w", Data: []float32{p.Data[0]}, Grad: []float32{1}}
	opt.Step([]*model.Param{p}, 0.1)
	restored.Step([]*model.Param{q}, 0.1)

	if p.Data[0] != q.Data[0] {
		t.Errorf("Expected identical updates, got %f vs %f", p.Data[0], q.Data[0])
	}
}
