// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"io"
	"os"

	billy "github.com/go-git/go-billy/v5"
	"github.com/pkg/errors"
)

// Extract writes the contents of an archive of the given format to fs.
func Extract(src io.Reader, f Format, fs billy.Filesystem) (*Summary, error) {
	switch f {
	case ZipFormat:
		ra, size, err := ToZipCompatibleReader(src)
		if err != nil {
			return nil, errors.Wrap(err, "converting reader")
		}
		zr, err := zip.NewReader(ra, size)
		// Insecure names are filtered per entry.
		if err != nil && err != zip.ErrInsecurePath {
			return nil, errors.Wrap(err, "initializing zip reader")
		}
		return ExtractZip(zr, fs)
	case TarGzFormat:
		gzr, err := gzip.NewReader(src)
		if err != nil {
			return nil, errors.Wrap(err, "initializing gzip reader")
		}
		defer gzr.Close()
		return ExtractTar(tar.NewReader(gzr), fs)
	case TarFormat:
		return ExtractTar(tar.NewReader(src), fs)
	default:
		return nil, errors.New("unsupported archive format")
	}
}

// ExtractFile opens the archive at path on the host and extracts it to fs.
// The format is inferred from the file name.
func ExtractFile(path string, fs billy.Filesystem) (*Summary, error) {
	f := FormatFromName(path)
	if f == UnknownFormat {
		return nil, errors.Errorf("unrecognized archive extension: %s", path)
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Extract(fh, f, fs)
}
