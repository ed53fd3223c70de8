package dataset

import (
	"fmt"
	"math/rand"

	"specdiff/tensor"
)

// Subset is a view over a shuffled selection of dataset indices. Subsets
// share the underlying dataset and decode nothing until sampled.
type Subset struct {
	ds      *Dataset
	indices []int
}

// Len returns the number of samples in the subset.
func (s *Subset) Len() int {
	return len(s.indices)
}

// Sample decodes subset position i.
func (s *Subset) Sample(i int) (*tensor.Tensor, []float32, error) {
	if i < 0 || i >= len(s.indices) {
		return nil, nil, fmt.Errorf("subset: index %d out of range [0, %d)", i, len(s.indices))
	}
	return s.ds.Sample(s.indices[i])
}

// Options returns the preparation options of the underlying dataset.
func (s *Subset) Options() Options {
	return s.ds.opts
}

// Split partitions the dataset into train and test subsets by a seeded
// shuffle. The same seed always yields the same partition, and every
// sample lands in exactly one side.
func (d *Dataset) Split(trainFrac float64, seed int64) (train, test *Subset, err error) {
	if trainFrac <= 0 || trainFrac >= 1 {
		return nil, nil, fmt.Errorf("dataset: train fraction must be in (0, 1), got %g", trainFrac)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(d.Len())
	n := int(float64(d.Len()) * trainFrac)
	if n == 0 || n == d.Len() {
		return nil, nil, fmt.Errorf("dataset: split %g of %d samples leaves one side empty", trainFrac, d.Len())
	}

	return &Subset{ds: d, indices: perm[:n]}, &Subset{ds: d, indices: perm[n:]}, nil
}

// All returns the whole dataset as a single subset in file order.
func (d *Dataset) All() *Subset {
	indices := make([]int, d.Len())
	for i := range indices {
		indices[i] = i
	}
	return &Subset{ds: d, indices: indices}
}
