// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package download

import (
	"context"
	"flag"
	"fmt"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/yolotrain/yolotrain/internal/config"
	"github.com/yolotrain/yolotrain/internal/envfile"
	"github.com/yolotrain/yolotrain/pkg/act/cli"
	"github.com/yolotrain/yolotrain/pkg/dataset"
	"github.com/yolotrain/yolotrain/pkg/download"
)

// Config holds all configuration for the download_dataset command.
type Config struct {
	ConfigPath string
	EnvFile    string
	Force      bool
	// SkipPrepare stops after the fetch, leaving layout and manifest alone.
	SkipPrepare bool
}

// Validate ensures the configuration is valid.
func (c Config) Validate() error {
	if c.ConfigPath == "" {
		return errors.New("config is required")
	}
	return nil
}

// Deps holds dependencies for the command.
type Deps struct {
	IO  cli.IO
	Log logrus.FieldLogger
	// NewDownloader defaults to download.NewDownloader.
	NewDownloader func(env envfile.Source, deps *Deps) *download.Downloader
}

func (d *Deps) SetIO(cio cli.IO) {
	d.IO = cio
	d.Log = cio.Logger()
}

// InitDeps initializes Deps.
func InitDeps(context.Context) (*Deps, error) {
	return &Deps{}, nil
}

// Handler fetches the configured dataset into its local directory, then
// reshapes it into the split layout when needed and writes its manifest.
func Handler(ctx context.Context, cfg Config, deps *Deps) (*download.Result, error) {
	c, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	env, err := envfile.Resolve(cfg.EnvFile, envfile.DefaultPath)
	if err != nil {
		return nil, err
	}
	var d *download.Downloader
	if deps.NewDownloader != nil {
		d = deps.NewDownloader(env, deps)
	} else {
		d = download.NewDownloader(env, deps.IO.Err, deps.Log)
	}
	res, err := d.Download(ctx, c.Dataset, download.Options{Force: cfg.Force})
	if err != nil {
		return nil, err
	}
	if !res.Skipped {
		fmt.Fprintf(deps.IO.Out, "Dataset downloaded to %s (%d files, %d archives extracted)\n", c.Dataset.LocalDir, len(res.Files), res.Extracted)
	}
	if cfg.SkipPrepare {
		return res, nil
	}
	ds := c.Dataset
	m, err := dataset.Ready(osfs.New(ds.LocalDir), ds.LocalDir, ds.Classes, dataset.FormatOptions{
		Log:      deps.Log,
		Progress: deps.IO.Err,
	})
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(deps.IO.Out, "Generated %s (nc=%d)\n", ds.ManifestPath(), m.NC)
	return res, nil
}

// Command creates a new download_dataset command instance.
func Command() *cobra.Command {
	cfg := Config{}
	cmd := &cobra.Command{
		Use:   "download_dataset [--config=<path>] [--env-file=<path>] [--force] [--skip-prepare]",
		Short: "Download the configured dataset and generate its data manifest",
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
	set.BoolVar(&cfg.Force, "force", false, "download even if the local directory already holds data")
	set.BoolVar(&cfg.SkipPrepare, "skip-prepare", false, "only fetch, without formatting the dataset or writing data.yaml")
	return set
}
