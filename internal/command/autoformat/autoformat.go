// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package autoformat

import (
	"context"
	"flag"
	"fmt"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/yolotrain/yolotrain/internal/config"
	"github.com/yolotrain/yolotrain/pkg/act/cli"
	"github.com/yolotrain/yolotrain/pkg/dataset"
)

// Config holds all configuration for the auto_format_dataset command.
type Config struct {
	ConfigPath string
	// BaseDir overrides the dataset's local_dir.
	BaseDir    string
	TrainSplit float64
}

// Validate ensures the configuration is valid.
func (c Config) Validate() error {
	if c.ConfigPath == "" && c.BaseDir == "" {
		return errors.New("one of config or base-dir is required")
	}
	if c.TrainSplit <= 0 || c.TrainSplit > 1 {
		return errors.Errorf("train-split must be in (0, 1], got %v", c.TrainSplit)
	}
	return nil
}

// Deps holds dependencies for the command.
type Deps struct {
	IO  cli.IO
	Log logrus.FieldLogger
}

func (d *Deps) SetIO(cio cli.IO) {
	d.IO = cio
	d.Log = cio.Logger()
}

// InitDeps initializes Deps.
func InitDeps(context.Context) (*Deps, error) {
	return &Deps{}, nil
}

// Handler reshapes the dataset directory into the train/val layout.
func Handler(ctx context.Context, cfg Config, deps *Deps) (*dataset.FormatResult, error) {
	base := cfg.BaseDir
	if base == "" {
		c, err := config.Load(cfg.ConfigPath)
		if err != nil {
			return nil, err
		}
		base = c.Dataset.LocalDir
	}
	deps.Log.WithField("dir", base).Info("Formatting dataset")
	res, err := dataset.AutoFormat(osfs.New(base), dataset.FormatOptions{
		TrainRatio: cfg.TrainSplit,
		Log:        deps.Log,
		Progress:   deps.IO.Err,
	})
	if err != nil {
		return nil, err
	}
	if res.AlreadyFormatted {
		fmt.Fprintf(deps.IO.Out, "%s is already formatted\n", base)
	} else {
		fmt.Fprintf(deps.IO.Out, "Formatted %s: %d train, %d val, %d unlabeled skipped\n", base, len(res.Train), len(res.Val), len(res.Unlabeled))
	}
	return res, nil
}

// Command creates a new auto_format_dataset command instance.
func Command() *cobra.Command {
	cfg := Config{}
	cmd := &cobra.Command{
		Use:   "auto_format_dataset [--config=<path>] [--base-dir=<dir>] [--train-split=0.8]",
		Short: "Split scattered image/label pairs into the train/val layout",
		Args:  cobra.NoArgs,
		RunE: cli.RunE(
			&cfg,
			cli.SkipArgs[Config],
			InitDeps,
			Handler,
		),
	}
	cmd.Flags().AddGoFlagSet(flagSet(cmd.Name(), &cfg))
	return cmd
}

// flagSet returns the command-line flags for the Config struct.
func flagSet(name string, cfg *Config) *flag.FlagSet {
	set := flag.NewFlagSet(name, flag.ContinueOnError)
	set.StringVar(&cfg.ConfigPath, "config", config.DefaultPath, "path to the configuration file")
	set.StringVar(&cfg.BaseDir, "base-dir", "", "dataset directory to format (default dataset.local_dir)")
	set.Float64Var(&cfg.TrainSplit, "train-split", dataset.DefaultTrainRatio, "fraction of pairs assigned to train")
	return set
}
