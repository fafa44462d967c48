// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/yolotrain/yolotrain/internal/config"
	"github.com/yolotrain/yolotrain/internal/envfile"
	"github.com/yolotrain/yolotrain/pkg/act/cli"
	"github.com/yolotrain/yolotrain/pkg/dataset"
	"github.com/yolotrain/yolotrain/pkg/download"
	"github.com/yolotrain/yolotrain/pkg/pipeline"
	"github.com/yolotrain/yolotrain/pkg/train"
)

// Config holds all configuration for the run_pipeline command.
type Config struct {
	ConfigPath   string
	EnvFile      string
	BaseDir      string
	TrainSplit   float64
	Force        bool
	SkipDownload bool
	SkipFormat   bool
	SkipPrepare  bool
	SkipTrain    bool
	// SkipStages is a comma-separated list of stage names to skip, in
	// addition to the individual skip flags.
	SkipStages string
}

// Validate ensures the configuration is valid.
func (c Config) Validate() error {
	if c.ConfigPath == "" {
		return errors.New("config is required")
	}
	if c.TrainSplit <= 0 || c.TrainSplit > 1 {
		return errors.Errorf("train-split must be in (0, 1], got %v", c.TrainSplit)
	}
	if _, err := c.skipStages(); err != nil {
		return err
	}
	return nil
}

func (c Config) skipStages() ([]pipeline.Stage, error) {
	var stages []pipeline.Stage
	for _, name := range strings.Split(c.SkipStages, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		s, err := pipeline.ParseStage(name)
		if err != nil {
			return nil, errors.Wrap(err, "--skip")
		}
		stages = append(stages, s)
	}
	return stages, nil
}

// Skip returns the set of stages disabled by flags. Unknown names in
// SkipStages are rejected by Validate and ignored here.
func (c Config) Skip() map[pipeline.Stage]bool {
	skip := map[pipeline.Stage]bool{
		pipeline.Download: c.SkipDownload,
		pipeline.Format:   c.SkipFormat,
		pipeline.Prepare:  c.SkipPrepare,
		pipeline.Train:    c.SkipTrain,
	}
	stages, _ := c.skipStages()
	for _, s := range stages {
		skip[s] = true
	}
	return skip
}

// Deps holds dependencies for the command.
type Deps struct {
	IO   cli.IO
	Log  logrus.FieldLogger
	Exec train.CommandExecutor
	// NewDownloader defaults to download.NewDownloader.
	NewDownloader func(env envfile.Source, deps *Deps) *download.Downloader
}

func (d *Deps) SetIO(cio cli.IO) {
	d.IO = cio
	d.Log = cio.Logger()
}

// InitDeps initializes Deps.
func InitDeps(context.Context) (*Deps, error) {
	return &Deps{Exec: train.NewExecCommandExecutor()}, nil
}

// Handler runs every enabled stage in order and prints the stage report.
func Handler(ctx context.Context, cfg Config, deps *Deps) (*pipeline.Report, error) {
	c, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	var d *download.Downloader
	if !cfg.Skip()[pipeline.Download] {
		env, err := envfile.Resolve(cfg.EnvFile, envfile.DefaultPath)
		if err != nil {
			return nil, err
		}
		if deps.NewDownloader != nil {
			d = deps.NewDownloader(env, deps)
		} else {
			d = download.NewDownloader(env, deps.IO.Err, deps.Log)
		}
	} else {
		d = &download.Downloader{Log: deps.Log}
	}
	steps, err := pipeline.DefaultSteps(pipeline.Options{
		Config:     c,
		BaseDir:    cfg.BaseDir,
		TrainRatio: cfg.TrainSplit,
		Force:      cfg.Force,
		Downloader: d,
		Trainer:    &train.Trainer{Exec: deps.Exec, Log: deps.Log, Output: deps.IO.Out},
		Log:        deps.Log,
		Progress:   deps.IO.Err,
	})
	if err != nil {
		return nil, err
	}
	r := &pipeline.Runner{Steps: steps, Skip: cfg.Skip(), Out: deps.IO.Out, Log: deps.Log}
	report, err := r.Run(ctx)
	if report != nil {
		fmt.Fprint(deps.IO.Out, report.String())
	}
	return report, err
}

// Command creates a new run_pipeline command instance.
func Command() *cobra.Command {
	cfg := Config{}
	cmd := &cobra.Command{
		Use:   "run_pipeline [--config=<path>] [--skip-download] [--skip-format] [--skip-prepare] [--skip-train] [--skip=<stage,...>]",
		Short: "Download, format, prepare and train in sequence",
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
	set.StringVar(&cfg.EnvFile, "env-file", "", "env file holding credentials (default .env when present)")
	set.StringVar(&cfg.BaseDir, "base-dir", "", "dataset directory used by every stage (default dataset.local_dir)")
	set.Float64Var(&cfg.TrainSplit, "train-split", dataset.DefaultTrainRatio, "fraction of pairs assigned to train")
	set.BoolVar(&cfg.Force, "force", false, "download even if the local directory already holds data")
	set.BoolVar(&cfg.SkipDownload, "skip-download", false, "skip the download stage")
	set.BoolVar(&cfg.SkipFormat, "skip-format", false, "skip the format stage")
	set.BoolVar(&cfg.SkipPrepare, "skip-prepare", false, "skip the prepare stage")
	set.BoolVar(&cfg.SkipTrain, "skip-train", false, "skip the train stage")
	set.StringVar(&cfg.SkipStages, "skip", "", "comma-separated stages to skip (download, format, prepare, train)")
	return set
}
