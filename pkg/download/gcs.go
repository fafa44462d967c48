// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package download

import (
	"context"
	"io"
	"net/http"
	"os"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"github.com/yolotrain/yolotrain/internal/envfile"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStore is an ObjectStore backed by Google Cloud Storage.
type GCSStore struct {
	Client *storage.Client
}

var _ ObjectStore = &GCSStore{}

// NewGCSStore creates a storage client. GOOGLE_APPLICATION_CREDENTIALS from
// env takes precedence over application default credentials.
func NewGCSStore(ctx context.Context, env envfile.Source) (*GCSStore, error) {
	var opts []option.ClientOption
	if env != nil {
		if p, ok := env.Lookup(GoogleCredentialKey); ok {
			opts = append(opts, option.WithCredentialsFile(p))
		}
	}
	c, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrapf(ErrUnauthenticated, "creating GCS client: %v", err)
	}
	return &GCSStore{Client: c}, nil
}

// List implements ObjectStore.
func (s *GCSStore) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	it := s.Client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	var keys []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, gcsError(err, bucket, prefix)
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}

// Get implements ObjectStore.
func (s *GCSStore) Get(ctx context.Context, bucket, key string, dst *os.File) error {
	r, err := s.Client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return gcsError(err, bucket, key)
	}
	defer r.Close()
	_, err = io.Copy(dst, r)
	return err
}

func gcsError(err error, bucket, key string) error {
	if errors.Is(err, storage.ErrBucketNotExist) || errors.Is(err, storage.ErrObjectNotExist) {
		return errors.Wrapf(ErrNotFound, "gs://%s/%s", bucket, key)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return errors.Wrapf(ErrUnauthenticated, "gs://%s/%s: %v", bucket, key, gerr.Message)
		case http.StatusNotFound:
			return errors.Wrapf(ErrNotFound, "gs://%s/%s", bucket, key)
		}
	}
	return errors.Wrapf(err, "gs://%s/%s", bucket, key)
}
