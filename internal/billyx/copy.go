// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package billyx provides utilities for working with billy filesystems.
package billyx

import (
	"io"
	"os"
	"path"

	"github.com/go-git/go-billy/v5"
)

// CopyFile copies a single file between (possibly identical) filesystems,
// creating the destination's parent directories and truncating any
// existing destination file.
func CopyFile(dst billy.Filesystem, dstPath string, src billy.Filesystem, srcPath string) error {
	srcFile, err := src.Open(srcPath)
	if err != nil {
		return err
	}
	defer srcFile.Close()
	if dir := path.Dir(dstPath); dir != "." && dir != "/" {
		if err := dst.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	dstFile, err := dst.OpenFile(dstPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return err
	}
	return dstFile.Close()
}
