// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type stageConfig struct {
	Name string
}

func (c stageConfig) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

// stageResult is the output of the test actions.
type stageResult struct {
	Stage string
}

type stageDeps struct {
	IO IO
}

func (d *stageDeps) SetIO(cio IO) { d.IO = cio }

func stageAction(ctx context.Context, cfg stageConfig, deps *stageDeps) (*stageResult, error) {
	deps.IO.Out.Write([]byte("==> " + cfg.Name))
	deps.IO.Logger().WithField("stage", cfg.Name).Info("done")
	return &stageResult{Stage: cfg.Name}, nil
}

func stageInitDeps(ctx context.Context) (*stageDeps, error) {
	return &stageDeps{}, nil
}

func TestSkipArgs(t *testing.T) {
	cfg := &stageConfig{}
	if err := SkipArgs(cfg, []string{"ignored"}); err != nil {
		t.Errorf("SkipArgs() error = %v, want nil", err)
	}
}

func TestRunE(t *testing.T) {
	cfg := stageConfig{Name: "prepare"}
	cmd := &cobra.Command{
		Use:  "test",
		RunE: RunE(&cfg, SkipArgs[stageConfig], stageInitDeps, stageAction),
	}
	var outBuf, errBuf bytes.Buffer
	cmd.SetArgs([]string{})
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got, want := outBuf.String(), "==> prepare"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	if !strings.Contains(errBuf.String(), "stage=prepare") {
		t.Errorf("log output = %q, want stage field", errBuf.String())
	}
}

func TestRunEValidationFailure(t *testing.T) {
	cfg := stageConfig{}
	called := false
	cmd := &cobra.Command{
		Use: "test",
		RunE: RunE(&cfg, SkipArgs[stageConfig], stageInitDeps, func(ctx context.Context, cfg stageConfig, deps *stageDeps) (*stageResult, error) {
			called = true
			return &stageResult{}, nil
		}),
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetArgs([]string{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	if err == nil {
		t.Fatal("Execute() error = nil, want validation error")
	}
	if !strings.Contains(err.Error(), "test: invalid flags: name is required") {
		t.Errorf("Execute() error = %v", err)
	}
	if called {
		t.Error("action ran despite invalid config")
	}
}

func TestLoggerNilErr(t *testing.T) {
	// Must not panic.
	IO{}.Logger().Info("discarded")
}

func TestRunEInterrupted(t *testing.T) {
	cfg := stageConfig{Name: "train"}
	trainErr := errors.New("signal: interrupt")
	cmd := &cobra.Command{
		Use: "train",
		RunE: RunE(&cfg, SkipArgs[stageConfig], stageInitDeps, func(ctx context.Context, cfg stageConfig, deps *stageDeps) (*stageResult, error) {
			return nil, trainErr
		}),
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetArgs([]string{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := cmd.ExecuteContext(ctx)
	if errors.Cause(err) != trainErr {
		t.Fatalf("ExecuteContext() error = %v, want %v", err, trainErr)
	}
	if !strings.HasPrefix(err.Error(), "train interrupted: ") {
		t.Errorf("ExecuteContext() error = %q, want interruption prefix", err)
	}
}

func TestRunEActionErrorUnchanged(t *testing.T) {
	cfg := stageConfig{Name: "download"}
	want := errors.New("dataset not found")
	cmd := &cobra.Command{
		Use: "download",
		RunE: RunE(&cfg, SkipArgs[stageConfig], stageInitDeps, func(ctx context.Context, cfg stageConfig, deps *stageDeps) (*stageResult, error) {
			return nil, want
		}),
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetArgs([]string{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err != want {
		t.Errorf("Execute() error = %v, want %v", err, want)
	}
}
