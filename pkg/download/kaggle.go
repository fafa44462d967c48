// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package download

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/yolotrain/yolotrain/internal/httpx"
)

// DefaultKaggleAPI is the root of the Kaggle public REST API.
const DefaultKaggleAPI = "https://www.kaggle.com/api/v1"

var kaggleSlug = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*/[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// ParseKaggleSlug splits an "owner/dataset" slug. The dataset page URL
// form (https://www.kaggle.com/datasets/owner/dataset) is also accepted.
func ParseKaggleSlug(slug string) (owner, name string, err error) {
	s := strings.TrimSpace(slug)
	if s == "" {
		return "", "", ErrMissingSlug
	}
	if u, err := url.Parse(s); err == nil && u.Host != "" {
		s = strings.TrimPrefix(strings.Trim(u.Path, "/"), "datasets/")
	}
	if !kaggleSlug.MatchString(s) {
		return "", "", errors.Wrapf(ErrNotFound, "malformed Kaggle slug %q, want owner/dataset", slug)
	}
	owner, name, _ = strings.Cut(s, "/")
	return owner, name, nil
}

// KaggleFetcher downloads the archive of a Kaggle dataset.
type KaggleFetcher struct {
	Client httpx.BasicClient
	// API overrides DefaultKaggleAPI.
	API string
	// Credentials is invoked only once the slug has been validated.
	Credentials func() (*KaggleCredentials, error)
	Progress    io.Writer
}

var _ Fetcher = &KaggleFetcher{}

// Fetch implements Fetcher.
func (k *KaggleFetcher) Fetch(ctx context.Context, slug, dir string) ([]string, error) {
	owner, name, err := ParseKaggleSlug(slug)
	if err != nil {
		return nil, err
	}
	if k.Credentials == nil {
		return nil, errors.Wrap(ErrUnauthenticated, "no Kaggle credential source configured")
	}
	creds, err := k.Credentials()
	if err != nil {
		return nil, err
	}
	api := k.API
	if api == "" {
		api = DefaultKaggleAPI
	}
	u := strings.TrimSuffix(api, "/") + "/datasets/download/" + url.PathEscape(owner) + "/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	client := &httpx.WithBasicAuth{BasicClient: k.Client, Username: creds.Username, Password: creds.Key}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching kaggle dataset %s/%s", owner, name)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, "kaggle dataset "+owner+"/"+name); err != nil {
		return nil, err
	}
	dst := filepath.Join(dir, name+".zip")
	if err := saveStream(resp.Body, resp.ContentLength, dst, k.Progress); err != nil {
		return nil, err
	}
	return []string{dst}, nil
}
