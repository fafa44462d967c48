// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"os"

	billy "github.com/go-git/go-billy/v5"
	"github.com/pkg/errors"
)

// ZipEntry represents an entry in a zip archive.
type ZipEntry struct {
	*zip.FileHeader
	Body []byte
}

// ExtractZip writes the contents of a zip to a filesystem.
func ExtractZip(zr *zip.Reader, fs billy.Filesystem) (*Summary, error) {
	var s Summary
	for _, zf := range zr.File {
		p, ok := entryPath(zf.Name)
		if !ok {
			s.Skipped = append(s.Skipped, zf.Name)
			continue
		}
		if zf.FileInfo().IsDir() {
			if err := fs.MkdirAll(p, 0755); err != nil {
				return nil, err
			}
			s.Dirs++
			continue
		}
		if zf.Mode()&os.ModeSymlink != 0 {
			s.Skipped = append(s.Skipped, zf.Name)
			continue
		}
		if err := writeZipFile(zf, p, fs); err != nil {
			return nil, errors.Wrapf(err, "extracting %s", zf.Name)
		}
		s.Files++
	}
	return &s, nil
}

func writeZipFile(zf *zip.File, p string, fs billy.Filesystem) error {
	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := fs.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// ToZipCompatibleReader coerces an io.Reader into an io.ReaderAt required to construct a zip.Reader.
func ToZipCompatibleReader(r io.Reader) (io.ReaderAt, int64, error) {
	seeker, seekerOK := r.(io.Seeker)
	readerAt, readerOK := r.(io.ReaderAt)
	if seekerOK && readerOK {
		pos, err := seeker.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, 0, errors.Wrap(err, "locating reader position")
		}
		size, err := seeker.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, errors.Wrap(err, "retrieving size")
		}
		if _, err := seeker.Seek(pos, io.SeekStart); err != nil {
			return nil, 0, errors.Wrap(err, "restoring reader position")
		}
		return readerAt, size, nil
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, errors.New("unsupported reader")
	}
	return bytes.NewReader(b), int64(len(b)), nil
}
