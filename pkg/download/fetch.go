// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package download

import (
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/cheggaaa/pb"
	"github.com/pkg/errors"
)

// saveStream writes r to dst, rendering a byte progress bar to progress
// when both it and size are known.
func saveStream(r io.Reader, size int64, dst string, progress io.Writer) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if progress != nil && size > 0 {
		bar := pb.New64(size).SetUnits(pb.U_BYTES)
		bar.Output = progress
		bar.ShowSpeed = true
		bar.Start()
		defer bar.Finish()
		r = bar.NewProxyReader(r)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return errors.Wrapf(err, "writing %s", dst)
	}
	return f.Close()
}

// checkStatus maps a response status onto the package's sentinel errors.
func checkStatus(resp *http.Response, what string) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return errors.Wrapf(ErrUnauthenticated, "%s: %s", what, resp.Status)
	case resp.StatusCode == http.StatusNotFound:
		return errors.Wrapf(ErrNotFound, "%s: %s", what, resp.Status)
	default:
		return errors.Errorf("%s: unexpected status %s", what, resp.Status)
	}
}
