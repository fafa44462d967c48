// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package download

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cheggaaa/pb"
	"github.com/pkg/errors"
)

// ObjectStore is the subset of a bucket storage service used to fetch a
// dataset stored as one or more objects.
type ObjectStore interface {
	// List returns the keys of every object whose name starts with prefix.
	List(ctx context.Context, bucket, prefix string) ([]string, error)
	// Get writes the named object to dst.
	Get(ctx context.Context, bucket, key string, dst *os.File) error
}

// splitBucketURI splits "<scheme>://bucket/key" into its parts.
func splitBucketURI(scheme, uri string) (bucket, key string, err error) {
	if uri == "" {
		return "", "", ErrMissingSlug
	}
	rest, ok := strings.CutPrefix(uri, scheme+"://")
	if !ok {
		return "", "", errors.Wrapf(ErrNotFound, "malformed slug %q, want %s://bucket/path", uri, scheme)
	}
	bucket, key, _ = strings.Cut(strings.TrimLeft(rest, "/"), "/")
	if bucket == "" {
		return "", "", errors.Wrapf(ErrNotFound, "slug %q names no bucket", uri)
	}
	return bucket, key, nil
}

// BucketFetcher downloads every object under a bucket prefix, keeping their
// relative layout under the destination directory.
type BucketFetcher struct {
	Scheme string
	// Store is opened lazily so that credentials are only resolved once the
	// slug has been validated.
	Store    func(context.Context) (ObjectStore, error)
	Progress io.Writer
}

var _ Fetcher = &BucketFetcher{}

// Fetch implements Fetcher.
func (b *BucketFetcher) Fetch(ctx context.Context, slug, dir string) ([]string, error) {
	bucket, prefix, err := splitBucketURI(b.Scheme, slug)
	if err != nil {
		return nil, err
	}
	store, err := b.Store(ctx)
	if err != nil {
		return nil, err
	}
	keys, err := store.List(ctx, bucket, prefix)
	if err != nil {
		return nil, err
	}
	var bar *pb.ProgressBar
	if b.Progress != nil && len(keys) > 0 {
		bar = pb.New(len(keys))
		bar.Output = b.Progress
		bar.ShowTimeLeft = false
		bar.Start()
		defer bar.Finish()
	}
	var paths []string
	for _, key := range keys {
		if bar != nil {
			bar.Increment()
		}
		rel, ok := relativeKey(prefix, key)
		if !ok {
			continue
		}
		dst := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return nil, err
		}
		f, err := os.Create(dst)
		if err != nil {
			return nil, err
		}
		err = store.Get(ctx, bucket, key, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(dst)
			return nil, errors.Wrapf(err, "fetching %s://%s/%s", b.Scheme, bucket, key)
		}
		paths = append(paths, dst)
	}
	if len(paths) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "no objects under %s", slug)
	}
	return paths, nil
}

// relativeKey maps an object key to its path below the destination. A key
// equal to the prefix maps to its base name. Directory markers and keys
// that would escape the destination are rejected.
func relativeKey(prefix, key string) (string, bool) {
	if strings.HasSuffix(key, "/") {
		return "", false
	}
	var rel string
	if key == prefix {
		rel = path.Base(key)
	} else {
		rel = strings.TrimPrefix(strings.TrimPrefix(key, prefix), "/")
		if prefix != "" && !strings.HasSuffix(prefix, "/") && !strings.HasPrefix(key, prefix+"/") {
			// "data/set" matched "data/settings.zip": keep the partial segment.
			rel = path.Base(prefix) + strings.TrimPrefix(key, prefix)
		}
	}
	rel = path.Clean(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") || path.IsAbs(rel) {
		return "", false
	}
	return rel, true
}
