package model

import (
	"fmt"
	"math"
	"math/rand"

	"specdiff/tensor"
)

// leakySlope is the negative-side gain of the hidden activations.
const leakySlope = 0.01

// DenseConfig describes the dense denoiser architecture.
type DenseConfig struct {
	ImageSize int   `json:"image_size"` // square spectrogram edge
	Channels  int   `json:"channels"`   // image channels
	NumLabels int   `json:"num_labels"` // conditioning attributes
	TimeDim   int   `json:"time_dim"`   // sinusoidal timestep embedding width (even)
	Hidden1   int   `json:"hidden1"`
	Hidden2   int   `json:"hidden2"`
	Seed      int64 `json:"seed"` // weight init seed
}

// DefaultDenseConfig matches the training defaults: 64x64 four-channel
// spectrograms conditioned on 14 attributes.
func DefaultDenseConfig() DenseConfig {
	return DenseConfig{
		ImageSize: 64,
		Channels:  4,
		NumLabels: 14,
		TimeDim:   32,
		Hidden1:   512,
		Hidden2:   512,
		Seed:      1,
	}
}

// Validate rejects configurations that cannot form a network.
func (c DenseConfig) Validate() error {
	if c.ImageSize <= 0 || c.Channels <= 0 {
		return fmt.Errorf("model: image size and channels must be positive, got %dx%d", c.ImageSize, c.Channels)
	}
	if c.NumLabels <= 0 {
		return fmt.Errorf("model: num labels must be positive, got %d", c.NumLabels)
	}
	if c.TimeDim <= 0 || c.TimeDim%2 != 0 {
		return fmt.Errorf("model: time dim must be positive and even, got %d", c.TimeDim)
	}
	if c.Hidden1 <= 0 || c.Hidden2 <= 0 {
		return fmt.Errorf("model: hidden sizes must be positive, got %d/%d", c.Hidden1, c.Hidden2)
	}
	return nil
}

func (c DenseConfig) imageDim() int {
	return c.Channels * c.ImageSize * c.ImageSize
}

func (c DenseConfig) featureDim() int {
	return c.imageDim() + c.TimeDim + c.NumLabels
}

// Dense is a fully-connected clean-sample predictor: the flattened noisy
// spectrogram, a sinusoidal timestep embedding, and the attribute vector
// are concatenated and pushed through two LeakyReLU hidden layers onto a
// linear head the size of the image.
//
// Forward caches activations for Backward, so a Dense instance is not safe
// for concurrent use.
type Dense struct {
	cfg DenseConfig

	w1, b1 *Param
	w2, b2 *Param
	w3, b3 *Param

	// forward cache for the most recent batch
	batch int
	feat  []float32 // [batch, featureDim]
	z1    []float32 // [batch, hidden1] pre-activation
	a1    []float32 // [batch, hidden1]
	z2    []float32 // [batch, hidden2] pre-activation
	a2    []float32 // [batch, hidden2]
}

// NewDense builds and initializes a dense denoiser. Weights use He
// initialization from the configured seed; biases start at zero.
func NewDense(cfg DenseConfig) (*Dense, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := cfg.featureDim()
	out := cfg.imageDim()
	m := &Dense{
		cfg: cfg,
		w1:  newParam("w1", d*cfg.Hidden1),
		b1:  newParam("b1", cfg.Hidden1),
		w2:  newParam("w2", cfg.Hidden1*cfg.Hidden2),
		b2:  newParam("b2", cfg.Hidden2),
		w3:  newParam("w3", cfg.Hidden2*out),
		b3:  newParam("b3", out),
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	initHe(rng, m.w1.Data, d)
	initHe(rng, m.w2.Data, cfg.Hidden1)
	initHe(rng, m.w3.Data, cfg.Hidden2)
	return m, nil
}

// initHe fills weights with He-initialized normals for the given fan-in.
func initHe(rng *rand.Rand, w []float32, fanIn int) {
	stddev := float32(math.Sqrt(2.0 / float64(fanIn)))
	for i := range w {
		w[i] = float32(rng.NormFloat64()) * stddev
	}
}

// Config returns the architecture the model was built with.
func (m *Dense) Config() DenseConfig {
	return m.cfg
}

// Params returns the trainable parameters in a stable order.
func (m *Dense) Params() []*Param {
	return []*Param{m.w1, m.b1, m.w2, m.b2, m.w3, m.b3}
}

// ZeroGrad clears all gradient accumulators.
func (m *Dense) ZeroGrad() {
	for _, p := range m.Params() {
		for i := range p.Grad {
			p.Grad[i] = 0
		}
	}
}

func (m *Dense) checkInputs(noisy *tensor.Tensor, ts []int, labels *tensor.Tensor) (int, error) {
	want := []int{0, m.cfg.Channels, m.cfg.ImageSize, m.cfg.ImageSize}
	if len(noisy.Shape) != 4 || noisy.Shape[1] != want[1] || noisy.Shape[2] != want[2] || noisy.Shape[3] != want[3] {
		return 0, fmt.Errorf("model: expected input [N %d %d %d], got %v", want[1], want[2], want[3], noisy.Shape)
	}
	n := noisy.Shape[0]
	if len(ts) != n {
		return 0, fmt.Errorf("model: %d timesteps for batch of %d", len(ts), n)
	}
	if len(labels.Shape) != 2 || labels.Shape[0] != n || labels.Shape[1] != m.cfg.NumLabels {
		return 0, fmt.Errorf("model: expected labels [%d %d], got %v", n, m.cfg.NumLabels, labels.Shape)
	}
	return n, nil
}

// Forward predicts the clean batch and caches activations for Backward.
func (m *Dense) Forward(noisy *tensor.Tensor, ts []int, labels *tensor.Tensor) (*tensor.Tensor, error) {
	n, err := m.checkInputs(noisy, ts, labels)
	if err != nil {
		return nil, err
	}

	imgDim := m.cfg.imageDim()
	d := m.cfg.featureDim()
	h1 := m.cfg.Hidden1
	h2 := m.cfg.Hidden2

	// Assemble features: flat image ++ timestep embedding ++ labels
	m.batch = n
	m.feat = make([]float32, n*d)
	for b := 0; b < n; b++ {
		row := m.feat[b*d : (b+1)*d]
		copy(row[:imgDim], noisy.Data[b*imgDim:(b+1)*imgDim])
		copy(row[imgDim:imgDim+m.cfg.TimeDim], TimeEmbedding(ts[b], m.cfg.TimeDim))
		copy(row[imgDim+m.cfg.TimeDim:], labels.Data[b*m.cfg.NumLabels:(b+1)*m.cfg.NumLabels])
	}

	m.z1, m.a1 = denseForward(m.feat, m.w1.Data, m.b1.Data, n, d, h1, true)
	m.z2, m.a2 = denseForward(m.a1, m.w2.Data, m.b2.Data, n, h1, h2, true)
	_, out := denseForward(m.a2, m.w3.Data, m.b3.Data, n, h2, imgDim, false)

	pred, err := tensor.FromSlice(out, n, m.cfg.Channels, m.cfg.ImageSize, m.cfg.ImageSize)
	if err != nil {
		return nil, err
	}
	return pred, nil
}

// Denoise satisfies the sampler's denoiser contract.
func (m *Dense) Denoise(noisy *tensor.Tensor, ts []int, labels *tensor.Tensor) (*tensor.Tensor, error) {
	return m.Forward(noisy, ts, labels)
}

// Backward accumulates parameter gradients for the most recent Forward
// batch given the loss gradient w.r.t. the prediction.
func (m *Dense) Backward(grad *tensor.Tensor) error {
	if m.batch == 0 {
		return fmt.Errorf("model: Backward without a preceding Forward")
	}
	imgDim := m.cfg.imageDim()
	if grad.Numel() != m.batch*imgDim {
		return fmt.Errorf("model: gradient has %d elements, expected %d", grad.Numel(), m.batch*imgDim)
	}

	d := m.cfg.featureDim()
	h1 := m.cfg.Hidden1
	h2 := m.cfg.Hidden2

	// Linear head, then the two hidden layers in reverse
	dA2 := denseBackward(grad.Data, m.a2, nil, m.w3.Data, m.w3.Grad, m.b3.Grad, m.batch, h2, imgDim)
	dA1 := denseBackward(dA2, m.a1, m.z2, m.w2.Data, m.w2.Grad, m.b2.Grad, m.batch, h1, h2)
	denseBackward(dA1, m.feat, m.z1, m.w1.Data, m.w1.Grad, m.b1.Grad, m.batch, d, h1)
	return nil
}

// denseForward computes out = input @ weights + bias over a batch, with an
// optional LeakyReLU. weights are row-major [inSize, outSize].
func denseForward(input, weights, bias []float32, batch, inSize, outSize int, leaky bool) (preAct, postAct []float32) {
	preAct = make([]float32, batch*outSize)
	postAct = make([]float32, batch*outSize)
	for b := 0; b < batch; b++ {
		inRow := input[b*inSize : (b+1)*inSize]
		for o := 0; o < outSize; o++ {
			sum := bias[o]
			for i := 0; i < inSize; i++ {
				sum += inRow[i] * weights[i*outSize+o]
			}
			idx := b*outSize + o
			preAct[idx] = sum
			if leaky && sum < 0 {
				postAct[idx] = leakySlope * sum
			} else {
				postAct[idx] = sum
			}
		}
	}
	return preAct, postAct
}

// denseBackward folds the activation derivative into gradOut (when preAct
// is non-nil), accumulates weight and bias gradients, and returns the
// gradient w.r.t. the layer input.
func denseBackward(gradOut, input, preAct, weights, gradW, gradB []float32, batch, inSize, outSize int) []float32 {
	gradPre := gradOut
	if preAct != nil {
		gradPre = make([]float32, len(gradOut))
		for i := range gradOut {
			if preAct[i] < 0 {
				gradPre[i] = gradOut[i] * leakySlope
			} else {
				gradPre[i] = gradOut[i]
			}
		}
	}

	gradIn := make([]float32, batch*inSize)
	for b := 0; b < batch; b++ {
		inRow := input[b*inSize : (b+1)*inSize]
		gradInRow := gradIn[b*inSize : (b+1)*inSize]
		for o := 0; o < outSize; o++ {
			g := gradPre[b*outSize+o]
			if g == 0 {
				continue
			}
			gradB[o] += g
			for i := 0; i < inSize; i++ {
				gradW[i*outSize+o] += inRow[i] * g
				gradInRow[i] += weights[i*outSize+o] * g
			}
		}
	}
	return gradIn
}
