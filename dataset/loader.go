package dataset

import (
	"fmt"
	"io"
	"math/rand"
	"sync"

	"specdiff/tensor"
)

// Batch is one training mini-batch: images [N, C, H, W] and their
// attribute vectors [N, NumAttributes].
type Batch struct {
	Images *tensor.Tensor
	Labels *tensor.Tensor
	Size   int
}

// Loader iterates a subset in shuffled mini-batches. Samples within a
// batch are decoded concurrently by a bounded worker pool; iteration
// itself is single-goroutine (Next/Reset are not safe for concurrent use).
type Loader struct {
	sub       *Subset
	batchSize int
	shuffle   bool
	workers   int
	rng       *rand.Rand
	order     []int
	pos       int
}

// NewLoader builds a loader over the subset. workers <= 0 selects serial
// decoding; a seeded rng drives the per-epoch reshuffle so runs are
// reproducible.
func NewLoader(sub *Subset, batchSize int, shuffle bool, seed int64, workers int) (*Loader, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("loader: batch size must be positive, got %d", batchSize)
	}
	if sub.Len() == 0 {
		return nil, fmt.Errorf("loader: empty subset")
	}
	if workers <= 0 {
		workers = 1
	}

	l := &Loader{
		sub:       sub,
		batchSize: batchSize,
		shuffle:   shuffle,
		workers:   workers,
		rng:       rand.New(rand.NewSource(seed)),
		order:     make([]int, sub.Len()),
	}
	for i := range l.order {
		l.order[i] = i
	}
	l.Reset()
	return l, nil
}

// Batches returns the number of batches per epoch. The final batch may be
// smaller than the batch size.
func (l *Loader) Batches() int {
	return (l.sub.Len() + l.batchSize - 1) / l.batchSize
}

// Reset rewinds to the start of a fresh epoch, reshuffling if enabled.
func (l *Loader) Reset() {
	l.pos = 0
	if l.shuffle {
		l.rng.Shuffle(len(l.order), func(i, j int) {
			l.order[i], l.order[j] = l.order[j], l.order[i]
		})
	}
}

// Next assembles the next batch, or returns io.EOF when the epoch is
// exhausted. Any sample decode failure fails the whole batch.
func (l *Loader) Next() (*Batch, error) {
	if l.pos >= len(l.order) {
		return nil, io.EOF
	}

	end := l.pos + l.batchSize
	if end > len(l.order) {
		end = len(l.order)
	}
	idx := l.order[l.pos:end]
	l.pos = end

	opts := l.sub.Options()
	n := len(idx)
	stride := opts.Channels * opts.ImageSize * opts.ImageSize
	images := tensor.New(n, opts.Channels, opts.ImageSize, opts.ImageSize)
	labels := tensor.New(n, NumAttributes)

	// Bounded worker pool; each slot writes a disjoint region of the
	// batch tensors, so no locking is needed beyond the semaphore.
	sem := make(chan struct{}, l.workers)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for k, si := range idx {
		wg.Add(1)
		sem <- struct{}{}
		go func(k, si int) {
			defer wg.Done()
			defer func() { <-sem }()

			img, lab, err := l.sub.Sample(si)
			if err != nil {
				errs[k] = err
				return
			}
			copy(images.Data[k*stride:(k+1)*stride], img.Data)
			copy(labels.Data[k*NumAttributes:(k+1)*NumAttributes], lab)
		}(k, si)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return &Batch{Images: images, Labels: labels, Size: n}, nil
}
