// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package act provides the shape shared by every pipeline command: a
// validated input, a dependency container, and an action over both.
package act

import "context"

// Input is a validated input type (command config, stage options, etc.)
type Input interface {
	Validate() error
}

// Deps is a marker type for dependency containers.
type Deps any

// InitDeps initializes dependencies from context.
type InitDeps[D Deps] func(context.Context) (D, error)

// Action is a single unit of pipeline work.
type Action[I Input, O any, D Deps] func(context.Context, I, D) (*O, error)
