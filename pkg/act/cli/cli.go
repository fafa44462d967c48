// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/yolotrain/yolotrain/pkg/act"
)

// Deps is a dependency container that accepts the command's streams.
type Deps interface {
	SetIO(IO)
}

// ParseArgs populates an Input from positional arguments.
type ParseArgs[I act.Input] func(in *I, args []string) error

// SkipArgs is a ParseArgs for commands configured by flags alone.
func SkipArgs[I act.Input](cfg *I, args []string) error {
	return nil
}

// RunE adapts an action to cobra. Flags are validated before any
// dependency is built, so a bad invocation never touches the network or
// the dataset. When the command's context was cancelled (Ctrl-C during a
// download or a training run), the action's error is reported as an
// interruption.
func RunE[I act.Input, O any, D Deps](
	cfg *I,
	parseArgs ParseArgs[I],
	initDeps act.InitDeps[D],
	action act.Action[I, O, D],
) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := parseArgs(cfg, args); err != nil {
			return errors.Wrapf(err, "%s: parsing arguments", cmd.Name())
		}
		if err := (*cfg).Validate(); err != nil {
			return errors.Wrapf(err, "%s: invalid flags", cmd.Name())
		}
		ctx := cmd.Context()
		deps, err := initDeps(ctx)
		if err != nil {
			return errors.Wrap(err, "initializing dependencies")
		}
		deps.SetIO(IO{
			In:  cmd.InOrStdin(),
			Out: cmd.OutOrStdout(),
			Err: cmd.ErrOrStderr(),
		})
		if _, err := action(ctx, *cfg, deps); err != nil {
			if ctx != nil && ctx.Err() != nil {
				return errors.Wrapf(err, "%s interrupted", cmd.Name())
			}
			return err
		}
		return nil
	}
}
