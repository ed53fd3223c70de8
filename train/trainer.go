// Package train drives denoising training runs: it corrupts spectrogram
// batches with scheduled noise, fits a denoiser to recover the clean
// spectrograms, and checkpoints enough state to resume a run mid-way.
package train

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"specdiff/dataset"
	"specdiff/diffusion"
	"specdiff/model"
	"specdiff/tensor"
)

// ============================================================================
// Trainer
// ============================================================================

// Model is the trainable denoiser the trainer drives. *model.Dense satisfies
// it; anything with dense parameters and an explicit backward pass can too.
type Model interface {
	// Forward predicts the clean images behind a batch of corrupted ones.
	Forward(noisy *tensor.Tensor, ts []int, labels *tensor.Tensor) (*tensor.Tensor, error)

	// Backward accumulates parameter gradients for the most recent Forward,
	// given the loss gradient with respect to the prediction.
	Backward(grad *tensor.Tensor) error

	// ZeroGrad clears accumulated gradients.
	ZeroGrad()

	// Params returns the trainable parameters in a stable order.
	Params() []*model.Param

	// State serializes the model for checkpointing.
	State() *model.State
}

// Callbacks are optional hooks invoked during training. Nil fields are
// skipped.
type Callbacks struct {
	OnBatch func(epoch, batch int, loss float32)
	OnEpoch func(stats EpochStats)
}

// Result summarizes a completed run.
type Result struct {
	RunID    string
	Epochs   int
	History  History
	Summary  Summary
	Duration time.Duration
}

// Trainer owns one training run: the noise schedule, the optimizer, the
// data loaders and the accumulated history.
type Trainer struct {
	cfg   Config
	model Model
	opt   Optimizer
	lr    LRSchedule
	sched *diffusion.Schedule
	train *dataset.Loader
	val   *dataset.Loader
	cb    Callbacks
	rng   *rand.Rand

	runID      string
	startEpoch int
	history    History
}

// New builds a trainer for the given model and loaders. The noise schedule
// and optimizer are derived from cfg; learning rate follows cosine annealing
// from cfg.LearningRate down to cfg.MinLR across cfg.Epochs.
func New(cfg Config, m Model, trainLoader, valLoader *dataset.Loader, cb Callbacks) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("train: model must not be nil")
	}
	if trainLoader == nil || valLoader == nil {
		return nil, fmt.Errorf("train: both loaders must be provided")
	}

	sched, err := diffusion.NewCosineSchedule(cfg.Timesteps, cfg.S)
	if err != nil {
		return nil, err
	}

	var opt Optimizer
	switch cfg.Optimizer {
	case "adam":
		opt = NewAdamOptimizer(cfg.Beta1, cfg.Beta2, cfg.Epsilon)
	case "sgd":
		opt = NewSGDOptimizer(0)
	case "sgd_momentum":
		opt = NewSGDOptimizer(cfg.Momentum)
	default:
		return nil, fmt.Errorf("train: unknown optimizer %q", cfg.Optimizer)
	}

	return &Trainer{
		cfg:   cfg,
		model: m,
		opt:   opt,
		lr:    NewCosineAnnealing(cfg.LearningRate, cfg.MinLR, cfg.Epochs),
		sched: sched,
		train: trainLoader,
		val:   valLoader,
		cb:    cb,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		runID: uuid.New().String(),
	}, nil
}

// RunID identifies this run; it is stamped into every snapshot and survives
// resumes.
func (t *Trainer) RunID() string {
	return t.runID
}

// Resume restores trainer bookkeeping from a snapshot: optimizer moments,
// loss history, run ID and the epoch to continue from. The model itself is
// restored separately (model.FromState) and passed to New; Resume only
// checks that the snapshot and the configuration agree on the schedule.
func (t *Trainer) Resume(snap *Snapshot) error {
	if snap.Timesteps != t.cfg.Timesteps {
		return fmt.Errorf("train: snapshot has %d timesteps, config has %d", snap.Timesteps, t.cfg.Timesteps)
	}
	if snap.S != t.cfg.S {
		return fmt.Errorf("train: snapshot schedule offset %g, config has %g", snap.S, t.cfg.S)
	}
	if err := t.opt.LoadState(snap.Optimizer); err != nil {
		return fmt.Errorf("train: restore optimizer: %w", err)
	}
	t.history = snap.History
	t.runID = snap.RunID
	t.startEpoch = snap.Epoch + 1
	return nil
}

// Run executes the training loop, starting at the resumed epoch (or zero for
// a fresh run) and ending after the configured number of epochs. Each epoch
// trains over the full training loader, measures loss over the validation
// loader, then checkpoints. Cancelling the context stops the run at the next
// batch boundary.
func (t *Trainer) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	for epoch := t.startEpoch; epoch < t.cfg.Epochs; epoch++ {
		lr := t.lr.LR(epoch)

		trainLoss, err := t.trainEpoch(ctx, epoch, lr)
		if err != nil {
			return nil, err
		}
		valLoss, err := t.validate(ctx)
		if err != nil {
			return nil, err
		}
		t.history.Append(trainLoss, valLoss)

		if t.cfg.CheckpointPath != "" {
			if err := t.checkpoint(epoch); err != nil {
				return nil, err
			}
		}
		if t.cb.OnEpoch != nil {
			t.cb.OnEpoch(EpochStats{Epoch: epoch, TrainLoss: trainLoss, ValLoss: valLoss, LR: lr})
		}
	}

	return &Result{
		RunID:    t.runID,
		Epochs:   t.history.Epochs(),
		History:  t.history,
		Summary:  Summarize(t.history),
		Duration: time.Since(start),
	}, nil
}

// trainEpoch runs one pass over the training loader and returns the mean
// batch loss.
func (t *Trainer) trainEpoch(ctx context.Context, epoch int, lr float32) (float64, error) {
	t.train.Reset()

	var sum float64
	var batches int
	for idx := 0; ; idx++ {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}

		batch, err := t.train.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("train: load batch: %w", err)
		}

		loss, err := t.step(batch, lr)
		if err != nil {
			return 0, err
		}
		sum += float64(loss)
		batches++

		if t.cb.OnBatch != nil {
			t.cb.OnBatch(epoch, idx, loss)
		}
	}
	if batches == 0 {
		return 0, fmt.Errorf("train: training epoch produced no batches")
	}
	return sum / float64(batches), nil
}

// step performs one optimization step: corrupt the batch at random
// timesteps, predict the clean images back, and descend on the L1 error.
// L2 would work too; L1 tolerates the noisy targets better.
func (t *Trainer) step(batch *dataset.Batch, lr float32) (float32, error) {
	ts := make([]int, batch.Size)
	for i := range ts {
		ts[i] = t.rng.Intn(t.cfg.Timesteps)
	}
	noise := tensor.RandnLike(t.rng, batch.Images)

	noisy, err := diffusion.CorruptBatch(batch.Images, ts, t.sched, noise)
	if err != nil {
		return 0, err
	}
	pred, err := t.model.Forward(noisy, ts, batch.Labels)
	if err != nil {
		return 0, err
	}
	loss, grad, err := L1Loss(pred, batch.Images)
	if err != nil {
		return 0, err
	}

	t.model.ZeroGrad()
	if err := t.model.Backward(grad); err != nil {
		return 0, err
	}
	t.opt.Step(t.model.Params(), lr)
	return loss, nil
}

// validate measures the mean denoising loss over the validation loader
// without touching gradients or parameters.
func (t *Trainer) validate(ctx context.Context) (float64, error) {
	t.val.Reset()

	var sum float64
	var batches int
	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}

		batch, err := t.val.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("train: load validation batch: %w", err)
		}

		ts := make([]int, batch.Size)
		for i := range ts {
			ts[i] = t.rng.Intn(t.cfg.Timesteps)
		}
		noise := tensor.RandnLike(t.rng, batch.Images)

		noisy, err := diffusion.CorruptBatch(batch.Images, ts, t.sched, noise)
		if err != nil {
			return 0, err
		}
		pred, err := t.model.Forward(noisy, ts, batch.Labels)
		if err != nil {
			return 0, err
		}
		loss, _, err := L1Loss(pred, batch.Images)
		if err != nil {
			return 0, err
		}
		sum += float64(loss)
		batches++
	}
	if batches == 0 {
		return 0, fmt.Errorf("train: validation produced no batches")
	}
	return sum / float64(batches), nil
}

// checkpoint writes the current run state to the configured path, plus a
// numbered per-epoch copy when enabled.
func (t *Trainer) checkpoint(epoch int) error {
	snap := &Snapshot{
		RunID:     t.runID,
		Epoch:     epoch,
		Timesteps: t.cfg.Timesteps,
		S:         t.cfg.S,
		Model:     t.model.State(),
		Optimizer: t.opt.State(),
		History:   t.history,
		SavedAt:   time.Now().UTC(),
	}
	if err := SaveSnapshot(t.cfg.CheckpointPath, snap); err != nil {
		return err
	}
	if t.cfg.KeepEpochSnapshots {
		return SaveSnapshot(EpochSnapshotPath(t.cfg.CheckpointPath, epoch), snap)
	}
	return nil
}
