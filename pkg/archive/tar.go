// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"archive/tar"
	"io"
	"os"

	billy "github.com/go-git/go-billy/v5"
	"github.com/pkg/errors"
)

// TarEntry represents an entry in a tar archive.
type TarEntry struct {
	*tar.Header
	Body []byte
}

// ExtractTar writes the regular files and directories of a tar to a filesystem.
// Links and device entries are skipped.
func ExtractTar(tr *tar.Reader, fs billy.Filesystem) (*Summary, error) {
	var s Summary
	for {
		h, err := tr.Next()
		if err != nil {
			if err == io.EOF {
				return &s, nil
			}
			return nil, err
		}
		p, ok := entryPath(h.Name)
		if !ok {
			s.Skipped = append(s.Skipped, h.Name)
			continue
		}
		switch h.Typeflag {
		case tar.TypeDir:
			if err := fs.MkdirAll(p, 0755); err != nil {
				return nil, err
			}
			s.Dirs++
		case tar.TypeReg:
			tf, err := fs.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
			if err != nil {
				return nil, err
			}
			if _, err := io.CopyN(tf, tr, h.Size); err != nil {
				tf.Close()
				return nil, errors.Wrapf(err, "extracting %s", h.Name)
			}
			if err := tf.Close(); err != nil {
				return nil, err
			}
			s.Files++
		default:
			s.Skipped = append(s.Skipped, h.Name)
		}
	}
}
