// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package download

import "github.com/pkg/errors"

var (
	// ErrUnauthenticated is returned when no usable credential was found or
	// the remote service rejected the one supplied.
	ErrUnauthenticated = errors.New("authentication failed")
	// ErrNotFound is returned when the slug is malformed or names nothing.
	ErrNotFound = errors.New("dataset not found")
	// ErrMissingSlug is returned before any network access when a remote
	// provider is configured without a slug.
	ErrMissingSlug = errors.New("configuration missing dataset.slug")
)
