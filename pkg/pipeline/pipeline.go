// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package pipeline sequences the dataset and training stages.
//
// Stages run in a fixed linear order. Each starts Pending and ends Executed,
// Skipped or Failed; the first failure stops the chain and leaves the
// outputs of earlier stages in place.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Stage names one step of the pipeline.
type Stage string

const (
	Download Stage = "download"
	Format   Stage = "format"
	Prepare  Stage = "prepare"
	Train    Stage = "train"
)

// Stages is the execution order.
var Stages = []Stage{Download, Format, Prepare, Train}

// State is the lifecycle position of a stage within one run.
type State int

const (
	Pending State = iota
	Executed
	Skipped
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Executed:
		return "executed"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Step binds a stage to the work it performs.
type Step struct {
	Stage Stage
	// Title is printed in the banner before the step runs.
	Title string
	Run   func(context.Context) error
}

// Result is the outcome of one stage.
type Result struct {
	Stage    Stage
	State    State
	Err      error
	Duration time.Duration
}

// Report holds the outcome of every stage in execution order.
type Report struct {
	Results []Result
}

// State returns the recorded state of s, or Pending if s never ran.
func (r *Report) State(s Stage) State {
	for _, res := range r.Results {
		if res.Stage == s {
			return res.State
		}
	}
	return Pending
}

// String renders the report as one line per stage.
func (r *Report) String() string {
	var b strings.Builder
	for _, res := range r.Results {
		fmt.Fprintf(&b, "%-8s %s", res.Stage, res.State)
		if res.State == Executed || res.State == Failed {
			fmt.Fprintf(&b, " (%s)", res.Duration.Round(time.Millisecond))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Runner executes Steps in order.
type Runner struct {
	Steps []Step
	// Skip holds the stages to bypass.
	Skip map[Stage]bool
	// Out receives stage banners.
	Out io.Writer
	Log logrus.FieldLogger
	// Now defaults to time.Now.
	Now func() time.Time
}

var (
	bannerColor = color.New(color.FgCyan, color.Bold)
	skipColor   = color.New(color.FgYellow)
	doneColor   = color.New(color.FgGreen)
)

// Run executes the steps. On failure the returned report covers every step,
// with the stages after the failing one left Pending.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	now := r.Now
	if now == nil {
		now = time.Now
	}
	out := r.Out
	if out == nil {
		out = io.Discard
	}
	log := r.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	report := &Report{Results: make([]Result, len(r.Steps))}
	for i, s := range r.Steps {
		report.Results[i] = Result{Stage: s.Stage, State: Pending}
	}
	for i, s := range r.Steps {
		res := &report.Results[i]
		if r.Skip[s.Stage] {
			skipColor.Fprintf(out, "==> Skipping %s\n", s.Title)
			log.WithField("stage", s.Stage).Debug("Stage skipped")
			res.State = Skipped
			continue
		}
		if err := ctx.Err(); err != nil {
			res.State = Failed
			res.Err = err
			return report, errors.Wrapf(err, "pipeline failed during stage %q", s.Stage)
		}
		bannerColor.Fprintf(out, "==> %s\n", s.Title)
		start := now()
		err := s.Run(ctx)
		res.Duration = now().Sub(start)
		if err != nil {
			res.State = Failed
			res.Err = err
			log.WithField("stage", s.Stage).WithError(err).Error("Stage failed")
			return report, errors.Wrapf(err, "pipeline failed during stage %q", s.Stage)
		}
		res.State = Executed
	}
	doneColor.Fprintln(out, "==> Pipeline complete")
	return report, nil
}

// ParseStage maps a stage name onto a Stage.
func ParseStage(name string) (Stage, error) {
	for _, s := range Stages {
		if string(s) == strings.ToLower(strings.TrimSpace(name)) {
			return s, nil
		}
	}
	return "", errors.Errorf("unknown stage %q", name)
}
