// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package archive extracts downloaded dataset archives onto a filesystem.
package archive

import (
	"path"
	"strings"
)

// Format represents the archive types a dataset may be shipped as.
type Format int

// Format constants specify the type of archive of a file.
const (
	UnknownFormat Format = iota
	TarGzFormat
	TarFormat
	ZipFormat
)

func (f Format) String() string {
	switch f {
	case TarGzFormat:
		return "tar.gz"
	case TarFormat:
		return "tar"
	case ZipFormat:
		return "zip"
	default:
		return "unknown"
	}
}

// FormatFromName infers the archive format from a file or object name.
func FormatFromName(name string) Format {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return TarGzFormat
	case strings.HasSuffix(lower, ".tar"):
		return TarFormat
	case strings.HasSuffix(lower, ".zip"):
		return ZipFormat
	default:
		return UnknownFormat
	}
}

// Summary counts what an extraction wrote and skipped.
type Summary struct {
	Files   int
	Dirs    int
	Skipped []string
}

// entryPath returns the cleaned, relative destination for an archive entry
// and whether it should be extracted at all. Entries that would escape the
// destination and macOS resource forks are rejected.
func entryPath(name string) (string, bool) {
	name = strings.ReplaceAll(name, "\\", "/")
	cleaned := path.Clean("/" + name)[1:]
	if cleaned == "" {
		return "", false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return "", false
		}
	}
	if cleaned == "__MACOSX" || strings.HasPrefix(cleaned, "__MACOSX/") {
		return "", false
	}
	return cleaned, true
}
