package main

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"specdiff/dataset"
	"specdiff/model"
	"specdiff/train"
)

// appConfig bundles everything a run needs: trainer settings plus the
// denoiser architecture.
type appConfig struct {
	Train train.Config
	Model model.DenseConfig
}

// loadConfig resolves the run configuration in three layers: package
// defaults, then an optional config file, then SPECDIFF_* environment
// variables.
func loadConfig(path string) (appConfig, error) {
	cfg := appConfig{
		Train: train.DefaultConfig(),
		Model: model.DefaultDenseConfig(),
	}

	v := viper.New()
	v.SetDefault("timesteps", cfg.Train.Timesteps)
	v.SetDefault("s", cfg.Train.S)
	v.SetDefault("optimizer", cfg.Train.Optimizer)
	v.SetDefault("learning_rate", cfg.Train.LearningRate)
	v.SetDefault("min_lr", cfg.Train.MinLR)
	v.SetDefault("beta1", cfg.Train.Beta1)
	v.SetDefault("beta2", cfg.Train.Beta2)
	v.SetDefault("epsilon", cfg.Train.Epsilon)
	v.SetDefault("momentum", cfg.Train.Momentum)
	v.SetDefault("epochs", cfg.Train.Epochs)
	v.SetDefault("batch_size", cfg.Train.BatchSize)
	v.SetDefault("train_frac", cfg.Train.TrainFrac)
	v.SetDefault("seed", cfg.Train.Seed)
	v.SetDefault("workers", cfg.Train.Workers)
	v.SetDefault("keep_epoch_snapshots", cfg.Train.KeepEpochSnapshots)
	v.SetDefault("image_size", cfg.Model.ImageSize)
	v.SetDefault("time_dim", cfg.Model.TimeDim)
	v.SetDefault("hidden1", cfg.Model.Hidden1)
	v.SetDefault("hidden2", cfg.Model.Hidden2)

	v.SetEnvPrefix("SPECDIFF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.Train.Timesteps = v.GetInt("timesteps")
	cfg.Train.S = v.GetFloat64("s")
	cfg.Train.Optimizer = v.GetString("optimizer")
	cfg.Train.LearningRate = float32(v.GetFloat64("learning_rate"))
	cfg.Train.MinLR = float32(v.GetFloat64("min_lr"))
	cfg.Train.Beta1 = float32(v.GetFloat64("beta1"))
	cfg.Train.Beta2 = float32(v.GetFloat64("beta2"))
	cfg.Train.Epsilon = float32(v.GetFloat64("epsilon"))
	cfg.Train.Momentum = float32(v.GetFloat64("momentum"))
	cfg.Train.Epochs = v.GetInt("epochs")
	cfg.Train.BatchSize = v.GetInt("batch_size")
	cfg.Train.TrainFrac = v.GetFloat64("train_frac")
	cfg.Train.Seed = v.GetInt64("seed")
	cfg.Train.Workers = v.GetInt("workers")
	cfg.Train.KeepEpochSnapshots = v.GetBool("keep_epoch_snapshots")

	cfg.Model.ImageSize = v.GetInt("image_size")
	cfg.Model.TimeDim = v.GetInt("time_dim")
	cfg.Model.Hidden1 = v.GetInt("hidden1")
	cfg.Model.Hidden2 = v.GetInt("hidden2")
	cfg.Model.NumLabels = dataset.NumAttributes
	cfg.Model.Seed = cfg.Train.Seed

	if err := cfg.Train.Validate(); err != nil {
		return cfg, err
	}
	if err := cfg.Model.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
