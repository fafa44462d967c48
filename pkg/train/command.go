// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package train

import (
	"context"
	"io"
	"os"
	"os/exec"
)

// CommandOptions configures a trainer process.
type CommandOptions struct {
	// Output receives both stdout and stderr (discarded when nil).
	Output io.Writer
	// Dir is the working directory of the process.
	Dir string
	// Env is appended to the inherited environment.
	Env []string
}

// CommandExecutor abstracts running the external training executable.
type CommandExecutor interface {
	// Execute runs name to completion. Comparable to exec.CommandContext(...).Run()
	Execute(ctx context.Context, opts CommandOptions, name string, args ...string) error
	// LookPath resolves an executable on PATH. Comparable to exec.LookPath()
	LookPath(file string) (string, error)
}

type execCommandExecutor struct{}

// NewExecCommandExecutor returns a CommandExecutor backed by os/exec.
func NewExecCommandExecutor() CommandExecutor {
	return execCommandExecutor{}
}

func (execCommandExecutor) Execute(ctx context.Context, opts CommandOptions, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if opts.Output != nil {
		cmd.Stdout = opts.Output
		cmd.Stderr = opts.Output
	}
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	return cmd.Run()
}

func (execCommandExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}
