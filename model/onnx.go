//go:build ort

package model

import (
	"fmt"
	"os"

	ort "github.com/yalue/onnxruntime_go"

	"specdiff/tensor"
)

// ONNXConfig locates an exported denoiser graph. The graph takes the
// noisy sample [N, C, H, W] float32, the reversed timestep indices [N]
// int64, and the attribute vectors [N, labels] float32, and returns the
// predicted clean sample.
type ONNXConfig struct {
	ModelPath   string
	LibraryPath string   // ONNX Runtime shared library; auto-detected when empty
	InputNames  []string // default: sample, timestep, labels
	OutputName  string   // default: prediction
	Threads     int      // intra-op threads (default 4)
}

// ONNXDenoiser runs an exported denoiser through ONNX Runtime. It
// implements the sampler's denoiser contract for models trained elsewhere
// and exported to ONNX.
type ONNXDenoiser struct {
	session *ort.DynamicAdvancedSession
	inNames []string
	outName string
}

// NewONNXDenoiser initializes the runtime (once per process) and loads
// the model into an inference session. Call Close to release the session.
func NewONNXDenoiser(cfg ONNXConfig) (*ONNXDenoiser, error) {
	if len(cfg.InputNames) == 0 {
		cfg.InputNames = []string{"sample", "timestep", "labels"}
	}
	if len(cfg.InputNames) != 3 {
		return nil, fmt.Errorf("onnx: expected 3 input names, got %d", len(cfg.InputNames))
	}
	if cfg.OutputName == "" {
		cfg.OutputName = "prediction"
	}
	if cfg.Threads <= 0 {
		cfg.Threads = 4
	}

	if !ort.IsInitialized() {
		lib := cfg.LibraryPath
		if lib == "" {
			lib = findORTLibrary()
		}
		if lib == "" {
			return nil, fmt.Errorf("onnx: libonnxruntime not found; set LibraryPath")
		}
		ort.SetSharedLibraryPath(lib)
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("onnx: init: %w", err)
		}
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll)
	opts.SetIntraOpNumThreads(cfg.Threads)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		cfg.InputNames,
		[]string{cfg.OutputName},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("onnx: session: %w", err)
	}

	return &ONNXDenoiser{
		session: session,
		inNames: cfg.InputNames,
		outName: cfg.OutputName,
	}, nil
}

// Denoise runs one forward pass through the exported graph.
func (d *ONNXDenoiser) Denoise(noisy *tensor.Tensor, ts []int, labels *tensor.Tensor) (*tensor.Tensor, error) {
	if len(noisy.Shape) != 4 {
		return nil, fmt.Errorf("onnx: expected [N C H W] input, got %v", noisy.Shape)
	}
	n := noisy.Shape[0]
	if len(ts) != n {
		return nil, fmt.Errorf("onnx: %d timesteps for batch of %d", len(ts), n)
	}
	if len(labels.Shape) != 2 || labels.Shape[0] != n {
		return nil, fmt.Errorf("onnx: expected labels [%d L], got %v", n, labels.Shape)
	}

	sampleTensor, err := ort.NewTensor(
		ort.NewShape(int64(n), int64(noisy.Shape[1]), int64(noisy.Shape[2]), int64(noisy.Shape[3])),
		noisy.Data,
	)
	if err != nil {
		return nil, fmt.Errorf("onnx: sample tensor: %w", err)
	}
	defer sampleTensor.Destroy()

	tsData := make([]int64, n)
	for i, t := range ts {
		tsData[i] = int64(t)
	}
	tsTensor, err := ort.NewTensor(ort.NewShape(int64(n)), tsData)
	if err != nil {
		return nil, fmt.Errorf("onnx: timestep tensor: %w", err)
	}
	defer tsTensor.Destroy()

	labelTensor, err := ort.NewTensor(
		ort.NewShape(int64(n), int64(labels.Shape[1])),
		labels.Data,
	)
	if err != nil {
		return nil, fmt.Errorf("onnx: label tensor: %w", err)
	}
	defer labelTensor.Destroy()

	// Run with a nil output slot; ORT allocates it
	outputs := make([]ort.Value, 1)
	if err := d.session.Run([]ort.Value{sampleTensor, tsTensor, labelTensor}, outputs); err != nil {
		return nil, fmt.Errorf("onnx: run: %w", err)
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("onnx: unsupported output tensor type %T", outputs[0])
	}
	src := out.GetData()
	if len(src) != noisy.Numel() {
		return nil, fmt.Errorf("onnx: output has %d elements, expected %d", len(src), noisy.Numel())
	}
	data := make([]float32, len(src))
	copy(data, src)
	return tensor.FromSlice(data, noisy.Shape...)
}

// Close releases the inference session.
func (d *ONNXDenoiser) Close() {
	if d.session != nil {
		d.session.Destroy()
		d.session = nil
	}
}

// findORTLibrary looks for libonnxruntime in common locations.
func findORTLibrary() string {
	candidates := []string{
		"/usr/local/lib/libonnxruntime.so",
		"/usr/lib/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.dylib",
		"/opt/homebrew/lib/libonnxruntime.dylib",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}
