// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package download

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/yolotrain/yolotrain/internal/httpx"
	"github.com/yolotrain/yolotrain/pkg/archive"
)

// HTTPFetcher downloads a single file from an http(s) URL.
type HTTPFetcher struct {
	Client   httpx.BasicClient
	Progress io.Writer
}

var _ Fetcher = &HTTPFetcher{}

// Fetch implements Fetcher.
func (h *HTTPFetcher) Fetch(ctx context.Context, slug, dir string) ([]string, error) {
	if slug == "" {
		return nil, ErrMissingSlug
	}
	u, err := url.Parse(slug)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.Wrapf(ErrNotFound, "malformed dataset URL %q", slug)
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		name = "dataset.zip"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %s", u)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, u.String()); err != nil {
		return nil, err
	}
	name = responseName(resp, name)
	dst := filepath.Join(dir, name)
	if err := saveStream(resp.Body, resp.ContentLength, dst, h.Progress); err != nil {
		return nil, err
	}
	return []string{dst}, nil
}

// responseName prefers the server's Content-Disposition filename over the
// URL's last path segment, and names an unlabeled zip body by its type.
func responseName(resp *http.Response, fallback string) string {
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		if fn := path.Base(filepath.ToSlash(params["filename"])); fn != "" && fn != "." && fn != "/" && fn != ".." {
			return fn
		}
	}
	if archive.FormatFromName(fallback) != archive.UnknownFormat {
		return fallback
	}
	if mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil {
		switch mt {
		case "application/zip", "application/x-zip-compressed":
			return fallback + ".zip"
		case "application/gzip", "application/x-gzip":
			return fallback + ".tar.gz"
		case "application/x-tar":
			return fallback + ".tar"
		}
	}
	return fallback
}
