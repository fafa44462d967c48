// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package cli provides utilities for building CLI commands using the act framework.
package cli

import (
	"io"

	"github.com/sirupsen/logrus"
)

// IO provides input/output streams for CLI commands.
type IO struct {
	In  io.Reader // stdin
	Out io.Writer // stdout
	Err io.Writer // stderr
}

// Logger returns a logger that writes plain-text entries to Err.
func (cio IO) Logger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(cio.Err)
	if cio.Err == nil {
		l.SetOutput(io.Discard)
	}
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return l
}
