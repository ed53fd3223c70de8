package main

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"k8s.io/klog/v2"

	"specdiff/dataset"
	"specdiff/diffusion"
	"specdiff/model"
	"specdiff/tensor"
	"specdiff/train"
)

func runTrain(ctx context.Context, cfg appConfig, resume bool) error {
	ds, err := dataset.Open(*flagDataCSV, *flagDataDir, dataset.Options{ImageSize: cfg.Model.ImageSize})
	if err != nil {
		return err
	}
	klog.Infof("dataset: %d annotated spectrograms", ds.Len())

	trainSub, valSub, err := ds.Split(cfg.Train.TrainFrac, cfg.Train.Seed)
	if err != nil {
		return err
	}
	trainLoader, err := dataset.NewLoader(trainSub, cfg.Train.BatchSize, true, cfg.Train.Seed, cfg.Train.Workers)
	if err != nil {
		return err
	}
	valLoader, err := dataset.NewLoader(valSub, cfg.Train.BatchSize, false, cfg.Train.Seed, cfg.Train.Workers)
	if err != nil {
		return err
	}
	klog.Infof("split: %d train / %d validation", trainSub.Len(), valSub.Len())

	var (
		m    *model.Dense
		snap *train.Snapshot
	)
	if resume {
		snap, err = train.LoadSnapshot(cfg.Train.CheckpointPath)
		if err != nil {
			return err
		}
		m, err = model.FromState(snap.Model)
		if err != nil {
			return err
		}
		klog.Infof("resuming run %s after epoch %d", snap.RunID, snap.Epoch)
	} else {
		m, err = model.NewDense(cfg.Model)
		if err != nil {
			return err
		}
	}

	if dir := filepath.Dir(cfg.Train.CheckpointPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	progress := mpb.New(mpb.WithWidth(64))
	epochBar := progress.AddBar(int64(cfg.Train.Epochs),
		mpb.PrependDecorators(
			decor.Name("Epochs:  "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(decor.Percentage()),
	)
	batchBar := progress.AddBar(int64(cfg.Train.Epochs*trainLoader.Batches()),
		mpb.PrependDecorators(
			decor.Name("Batches: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.EwmaETA(decor.ET_STYLE_GO, 60),
		),
	)

	cb := train.Callbacks{
		OnBatch: func(epoch, batch int, loss float32) {
			batchBar.Increment()
		},
		OnEpoch: func(stats train.EpochStats) {
			epochBar.Increment()
			klog.Infof("epoch %d: train %.6f, val %.6f, lr %.3g",
				stats.Epoch, stats.TrainLoss, stats.ValLoss, stats.LR)
		},
	}

	tr, err := train.New(cfg.Train, m, trainLoader, valLoader, cb)
	if err != nil {
		return err
	}
	if resume {
		if err := tr.Resume(snap); err != nil {
			return err
		}
		done := int64(snap.Epoch + 1)
		epochBar.SetCurrent(done)
		batchBar.SetCurrent(done * int64(trainLoader.Batches()))
	}

	res, err := tr.Run(ctx)
	if err != nil {
		epochBar.Abort(true)
		batchBar.Abort(true)
		progress.Wait()
		if errors.Is(err, context.Canceled) {
			klog.Infof("interrupted; latest checkpoint: %s", cfg.Train.CheckpointPath)
			return nil
		}
		return err
	}
	progress.Wait()

	s := res.Summary
	klog.Infof("run %s finished in %s", res.RunID, res.Duration.Round(time.Second))
	klog.Infof("best epoch %d (val %.6f); final val %.6f", s.BestEpoch, s.BestValLoss, s.FinalValLoss)
	return nil
}

func runSample(ctx context.Context, cfg appConfig) error {
	snap, err := train.LoadSnapshot(cfg.Train.CheckpointPath)
	if err != nil {
		return err
	}
	m, err := model.FromState(snap.Model)
	if err != nil {
		return err
	}
	sched, err := diffusion.NewCosineSchedule(snap.Timesteps, snap.S)
	if err != nil {
		return err
	}
	klog.Infof("sampling %d spectrograms from run %s (epoch %d) in %d steps",
		*flagNum, snap.RunID, snap.Epoch, *flagSteps)

	rng := rand.New(rand.NewSource(cfg.Train.Seed))
	labels, err := sampleLabels(*flagAttrs, *flagNum, rng)
	if err != nil {
		return err
	}

	var den diffusion.Denoiser = m
	if alt, cleanup, err := onnxDenoiser(); err != nil {
		return err
	} else if alt != nil {
		defer cleanup()
		den = alt
	}

	mc := m.Config()
	sampler := diffusion.NewSampler(sched, den)
	out, err := sampler.Sample(ctx, labels, []int{mc.Channels, mc.ImageSize, mc.ImageSize}, *flagSteps, rng)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(*flagOut, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	opts := dataset.DefaultOptions()
	stride := mc.Channels * mc.ImageSize * mc.ImageSize
	for i := 0; i < *flagNum; i++ {
		view, err := tensor.FromSlice(out.Data[i*stride:(i+1)*stride], mc.Channels, mc.ImageSize, mc.ImageSize)
		if err != nil {
			return err
		}
		img := dataset.TensorToImage(view, opts.Mean, opts.Std)

		path := filepath.Join(*flagOut, fmt.Sprintf("sample_%03d.png", i))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			return fmt.Errorf("encode %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		klog.Infof("wrote %s", path)
	}
	return nil
}

// sampleLabels builds the conditioning batch: either n copies of an explicit
// attribute vector or n random plausible note descriptions.
func sampleLabels(attrs string, n int, rng *rand.Rand) (*tensor.Tensor, error) {
	labels := tensor.New(n, dataset.NumAttributes)

	if attrs != "" {
		parts := strings.Split(attrs, ",")
		if len(parts) != dataset.NumAttributes {
			return nil, fmt.Errorf("need %d attribute values, got %d", dataset.NumAttributes, len(parts))
		}
		row := make([]float32, dataset.NumAttributes)
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
			if err != nil {
				return nil, fmt.Errorf("attribute %s: %w", dataset.AttributeNames[i], err)
			}
			row[i] = float32(v)
		}
		for i := 0; i < n; i++ {
			copy(labels.Data[i*dataset.NumAttributes:(i+1)*dataset.NumAttributes], row)
		}
		return labels, nil
	}

	for i := 0; i < n; i++ {
		row := labels.Data[i*dataset.NumAttributes : (i+1)*dataset.NumAttributes]
		row[0] = float32(24 + rng.Intn(61))  // pitch: C1..C6
		row[1] = float32(25 + rng.Intn(103)) // velocity
		row[2] = float32(rng.Intn(3))        // source
		row[3] = float32(rng.Intn(11))       // family
		for q := 4; q < dataset.NumAttributes; q++ {
			if rng.Float64() < 0.15 {
				row[q] = 1
			}
		}
	}
	return labels, nil
}
