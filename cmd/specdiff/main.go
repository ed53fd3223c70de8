// Command specdiff trains a conditional denoising model over spectrogram
// images and samples new spectrograms from its checkpoints.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"k8s.io/klog/v2"
)

var (
	flagTrain      = flag.Bool("train", false, "Train a new model from scratch.")
	flagResume     = flag.Bool("resume", false, "Resume training from the checkpoint.")
	flagSample     = flag.Bool("sample", false, "Sample spectrograms from the checkpoint.")
	flagConfig     = flag.String("config", "", "Optional config file (yaml, json or toml); SPECDIFF_* env vars override it.")
	flagDataCSV    = flag.String("data-csv", "data/specs/data.csv", "Annotations CSV produced by specgen.")
	flagDataDir    = flag.String("data-dir", "data/specs", "Directory holding the spectrogram PNGs.")
	flagCheckpoint = flag.String("checkpoint", "checkpoints/specdiff.json", "Snapshot path to write (train) or read (resume, sample).")
	flagOut        = flag.String("out", "samples", "Directory for sampled spectrograms.")
	flagSteps      = flag.Int("steps", 50, "Reverse diffusion steps when sampling.")
	flagNum        = flag.Int("num", 4, "Number of spectrograms to sample.")
	flagAttrs      = flag.String("attrs", "", "Comma-separated attribute vector to condition on (14 values); empty draws random attributes per sample.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	cfg, err := loadConfig(*flagConfig)
	check(err)

	// Paths always come from flags; the config file only shapes the run.
	cfg.Train.CheckpointPath = *flagCheckpoint

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *flagSample:
		check(runSample(ctx, cfg))
	case *flagTrain || *flagResume:
		check(runTrain(ctx, cfg, *flagResume))
	default:
		flag.Usage()
		os.Exit(2)
	}
}

// check reports and exits on error.
func check(err error) {
	if err == nil {
		return
	}
	klog.Fatalf("Fatal error: %+v", err)
}
