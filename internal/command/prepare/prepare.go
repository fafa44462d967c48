// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package prepare

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

// Config holds all configuration for the prepare_data command.
type Config struct {
	ConfigPath string
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
}

func (d *Deps) SetIO(cio cli.IO) {
	d.IO = cio
	d.Log = cio.Logger()
}

// InitDeps initializes Deps.
func InitDeps(context.Context) (*Deps, error) {
	return &Deps{}, nil
}

// Handler writes the data.yaml manifest for the configured dataset.
func Handler(ctx context.Context, cfg Config, deps *Deps) (*dataset.Manifest, error) {
	c, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	ds := c.Dataset
	m, err := dataset.Prepare(osfs.New(ds.LocalDir), ds.LocalDir, ds.Classes, deps.Log)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(deps.IO.Out, "Wrote %s (nc=%d)\n", ds.ManifestPath(), m.NC)
	return m, nil
}

// Command creates a new prepare_data command instance.
func Command() *cobra.Command {
	cfg := Config{}
	cmd := &cobra.Command{
		Use:   "prepare_data [--config=<path>]",
		Short: "Generate the data.yaml manifest consumed by the trainer",
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
	return set
}
