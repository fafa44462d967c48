// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"io"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/yolotrain/yolotrain/internal/config"
	"github.com/yolotrain/yolotrain/pkg/dataset"
	"github.com/yolotrain/yolotrain/pkg/download"
	"github.com/yolotrain/yolotrain/pkg/train"
)

// Options wires the concrete stage implementations.
type Options struct {
	Config *config.Config
	// BaseDir replaces the dataset's local_dir for every stage, so the
	// directory that is formatted is the one the manifest and trainer use.
	BaseDir    string
	TrainRatio float64
	Force      bool
	Downloader *download.Downloader
	Trainer    *train.Trainer
	Log        logrus.FieldLogger
	// Progress receives progress bars from the format stage.
	Progress io.Writer
}

// DefaultSteps returns the download, format, prepare and train steps.
func DefaultSteps(opts Options) ([]Step, error) {
	if opts.Config == nil {
		return nil, errors.New("no configuration")
	}
	if opts.Downloader == nil || opts.Trainer == nil {
		return nil, errors.New("downloader and trainer are required")
	}
	cfg := opts.Config
	if opts.BaseDir != "" && opts.BaseDir != cfg.Dataset.LocalDir {
		c := *cfg
		c.Dataset.LocalDir = opts.BaseDir
		cfg = &c
	}
	ds := cfg.Dataset
	ratio := opts.TrainRatio
	if ratio == 0 {
		ratio = dataset.DefaultTrainRatio
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return []Step{
		{
			Stage: Download,
			Title: "Downloading dataset",
			Run: func(ctx context.Context) error {
				_, err := opts.Downloader.Download(ctx, ds, download.Options{Force: opts.Force})
				return err
			},
		},
		{
			Stage: Format,
			Title: "Formatting dataset",
			Run: func(context.Context) error {
				_, err := dataset.AutoFormat(osfs.New(ds.LocalDir), dataset.FormatOptions{
					TrainRatio: ratio,
					Log:        log.WithField("stage", Format),
					Progress:   opts.Progress,
				})
				return err
			},
		},
		{
			Stage: Prepare,
			Title: "Preparing data manifest",
			Run: func(context.Context) error {
				m, err := dataset.Prepare(osfs.New(ds.LocalDir), ds.LocalDir, ds.Classes, log.WithField("stage", Prepare))
				if err != nil {
					return err
				}
				log.WithFields(logrus.Fields{"path": ds.ManifestPath(), "nc": m.NC}).Info("Wrote manifest")
				return nil
			},
		},
		{
			Stage: Train,
			Title: "Training model",
			Run: func(ctx context.Context) error {
				_, err := opts.Trainer.Train(ctx, cfg)
				return err
			},
		},
	}, nil
}
