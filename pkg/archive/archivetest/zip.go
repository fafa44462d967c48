// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package archivetest

import (
	"archive/zip"
	"bytes"

	"github.com/yolotrain/yolotrain/pkg/archive"
)

// ZipFile builds an in-memory zip from entries.
func ZipFile(entries []archive.ZipEntry) (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for _, entry := range entries {
		fw, err := zw.CreateHeader(entry.FileHeader)
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write(entry.Body); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf, nil
}

// DatasetZip builds a zip holding the given file contents keyed by path.
func DatasetZip(files map[string]string) (*bytes.Buffer, error) {
	var entries []archive.ZipEntry
	for name, body := range files {
		entries = append(entries, archive.ZipEntry{
			FileHeader: &zip.FileHeader{Name: name, Method: zip.Deflate},
			Body:       []byte(body),
		})
	}
	return ZipFile(entries)
}
