package dataset

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	_ "image/png"

	"specdiff/tensor"
)

// Options controls image preparation. Zero values select the defaults.
type Options struct {
	ImageSize int     // square resize target (default 64)
	Channels  int     // channels kept from the decoded image, 1..4 (default 4)
	Mean      float32 // per-channel normalization mean (default 0.5)
	Std       float32 // per-channel normalization std (default 0.5)
}

// DefaultOptions matches the training setup: 64x64 four-channel images
// normalized from [0, 1] bytes into roughly [-1, 1].
func DefaultOptions() Options {
	return Options{ImageSize: 64, Channels: 4, Mean: 0.5, Std: 0.5}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ImageSize == 0 {
		o.ImageSize = d.ImageSize
	}
	if o.Channels == 0 {
		o.Channels = d.Channels
	}
	if o.Mean == 0 {
		o.Mean = d.Mean
	}
	if o.Std == 0 {
		o.Std = d.Std
	}
	return o
}

func (o Options) validate() error {
	if o.ImageSize <= 0 {
		return fmt.Errorf("dataset: image size must be positive, got %d", o.ImageSize)
	}
	if o.Channels < 1 || o.Channels > 4 {
		return fmt.Errorf("dataset: channels must be in 1..4, got %d", o.Channels)
	}
	if o.Std <= 0 {
		return fmt.Errorf("dataset: std must be positive, got %g", o.Std)
	}
	return nil
}

// Dataset is an annotated spectrogram collection on disk. It holds the
// parsed annotations only; images are decoded on demand by Sample.
type Dataset struct {
	dir  string
	anns []Annotation
	opts Options
}

// Open reads the annotations CSV and binds it to the image directory.
func Open(csvPath, imgDir string, opts Options) (*Dataset, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	anns, err := ReadAnnotations(csvPath)
	if err != nil {
		return nil, err
	}
	if len(anns) == 0 {
		return nil, fmt.Errorf("annotations %s: no data rows", csvPath)
	}
	return &Dataset{dir: imgDir, anns: anns, opts: opts}, nil
}

// Len returns the number of annotated samples.
func (d *Dataset) Len() int {
	return len(d.anns)
}

// Options returns the preparation options in effect (defaults applied).
func (d *Dataset) Options() Options {
	return d.opts
}

// Sample decodes sample i into a normalized [C, H, W] tensor and its
// attribute vector.
func (d *Dataset) Sample(i int) (*tensor.Tensor, []float32, error) {
	if i < 0 || i >= len(d.anns) {
		return nil, nil, fmt.Errorf("dataset: sample index %d out of range [0, %d)", i, len(d.anns))
	}
	ann := d.anns[i]

	path := filepath.Join(d.dir, ann.File)
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("sample %d: %w", i, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, nil, fmt.Errorf("sample %d (%s): decode: %w", i, ann.File, err)
	}

	t := ImageToTensor(img, d.opts)
	labels := make([]float32, NumAttributes)
	copy(labels, ann.Labels[:])
	return t, labels, nil
}
