// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package train

import (
	"context"
	"flag"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/yolotrain/yolotrain/internal/config"
	"github.com/yolotrain/yolotrain/internal/envfile"
	"github.com/yolotrain/yolotrain/pkg/act/cli"
	"github.com/yolotrain/yolotrain/pkg/download"
	"github.com/yolotrain/yolotrain/pkg/train"
)

// Config holds all configuration for the train command.
type Config struct {
	ConfigPath string
	// EnvFile supplies credentials when a remote dataset must be fetched.
	EnvFile string
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

// Handler runs the external trainer with the configured hyperparameters.
// A remote dataset without a manifest is downloaded and prepared first.
func Handler(ctx context.Context, cfg Config, deps *Deps) (*train.Run, error) {
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
	t := &train.Trainer{
		Exec:       deps.Exec,
		Log:        deps.Log,
		Output:     deps.IO.Out,
		Downloader: d,
		Progress:   deps.IO.Err,
	}
	run, err := t.Train(ctx, c)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(deps.IO.Out, "Finished %s\n", run.Describe())
	return run, nil
}

// Command creates a new train command instance.
func Command() *cobra.Command {
	cfg := Config{}
	cmd := &cobra.Command{
		Use:   "train [--config=<path>] [--env-file=<path>]",
		Short: "Train a detection model on the prepared dataset",
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
	set.StringVar(&cfg.EnvFile, "env-file", "", "env file holding credentials for a dataset that must be fetched (default .env when present)")
	return set
}
