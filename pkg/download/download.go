// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package download fetches a dataset from its configured provider and
// unpacks it into the dataset's local directory.
package download

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/yolotrain/yolotrain/internal/config"
	"github.com/yolotrain/yolotrain/internal/envfile"
	"github.com/yolotrain/yolotrain/internal/httpx"
	"github.com/yolotrain/yolotrain/pkg/archive"
	"github.com/yolotrain/yolotrain/pkg/dataset"
)

// UserAgent is sent with every HTTP request issued by the downloader.
const UserAgent = "yolotrain-downloader"

// Fetcher stores the files of the dataset named by slug under dir and
// returns the paths it wrote.
type Fetcher interface {
	Fetch(ctx context.Context, slug, dir string) ([]string, error)
}

// Options controls a single download.
type Options struct {
	// Force refetches even when the local directory already holds data.
	Force bool
}

// Result describes what a download did.
type Result struct {
	// Skipped is set when nothing was fetched: the provider is local or
	// the directory was already populated.
	Skipped   bool
	Files     []string
	Extracted int
}

// Downloader dispatches to the Fetcher registered for each provider.
type Downloader struct {
	Fetchers map[config.Provider]Fetcher
	Log      logrus.FieldLogger
}

// NewDownloader registers the built-in providers. Credentials are read
// from env when a fetch is actually attempted.
func NewDownloader(env envfile.Source, progress io.Writer, log logrus.FieldLogger) *Downloader {
	if log == nil {
		log = logrus.New()
	}
	client := &httpx.WithUserAgent{BasicClient: http.DefaultClient, UserAgent: UserAgent}
	home, _ := os.UserHomeDir()
	resolver := KaggleResolver{Env: env, Home: home}
	return &Downloader{
		Fetchers: map[config.Provider]Fetcher{
			config.KaggleProvider: &KaggleFetcher{
				Client: client,
				Credentials: func() (*KaggleCredentials, error) {
					creds, err := resolver.Resolve()
					if err == nil {
						log.WithField("source", creds.Source).Info("Using Kaggle credentials")
					}
					return creds, err
				},
				Progress: progress,
			},
			config.HTTPProvider: &HTTPFetcher{Client: client, Progress: progress},
			config.GCSProvider: &BucketFetcher{
				Scheme: "gs",
				Store: func(ctx context.Context) (ObjectStore, error) {
					return NewGCSStore(ctx, env)
				},
				Progress: progress,
			},
			config.S3Provider: &BucketFetcher{
				Scheme: "s3",
				Store: func(context.Context) (ObjectStore, error) {
					return NewS3Store(env)
				},
				Progress: progress,
			},
		},
		Log: log,
	}
}

// Download fetches ds into ds.LocalDir and extracts any archives fetched.
func (d *Downloader) Download(ctx context.Context, ds config.Dataset, opts Options) (*Result, error) {
	log := d.Log
	if log == nil {
		log = logrus.New()
	}
	log = log.WithField("provider", ds.Provider)
	if ds.Provider == config.LocalProvider || ds.Provider == "" {
		log.WithField("dir", ds.LocalDir).Info("Local dataset, nothing to download")
		return &Result{Skipped: true}, nil
	}
	if ds.Slug == "" {
		return nil, errors.Wrapf(ErrMissingSlug, "provider %s", ds.Provider)
	}
	f, ok := d.Fetchers[ds.Provider]
	if !ok {
		return nil, errors.Errorf("unsupported provider %q", ds.Provider)
	}
	has, err := dataset.HasData(osfs.New(ds.LocalDir))
	if err != nil {
		return nil, errors.Wrapf(err, "inspecting %s", ds.LocalDir)
	}
	if has && !opts.Force {
		log.WithField("dir", ds.LocalDir).Info("Dataset already present, skipping download (use --force to refetch)")
		return &Result{Skipped: true}, nil
	}
	if err := os.MkdirAll(ds.LocalDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "creating %s", ds.LocalDir)
	}
	log.WithField("slug", ds.Slug).Info("Downloading dataset")
	files, err := f.Fetch(ctx, ds.Slug, ds.LocalDir)
	if err != nil {
		return nil, err
	}
	res := &Result{Files: files}
	dest := osfs.New(ds.LocalDir)
	for _, p := range files {
		if archive.FormatFromName(p) == archive.UnknownFormat {
			log.WithField("file", filepath.Base(p)).Warn("Fetched file is not a recognized archive, leaving it unextracted")
			continue
		}
		sum, err := archive.ExtractFile(p, dest)
		if err != nil {
			// Leftovers would make the next run see a populated directory
			// and skip the fetch.
			if cerr := discard(ds.LocalDir, files, !has); cerr != nil {
				log.WithError(cerr).Warn("Cleaning up after failed extraction")
			}
			return nil, errors.Wrapf(err, "extracting %s", filepath.Base(p))
		}
		if err := os.Remove(p); err != nil {
			return nil, errors.Wrapf(err, "removing %s", p)
		}
		log.WithFields(logrus.Fields{
			"archive": filepath.Base(p),
			"files":   sum.Files,
			"skipped": sum.Skipped,
		}).Info("Extracted archive")
		res.Extracted++
	}
	log.WithField("dir", ds.LocalDir).Info("Download complete")
	return res, nil
}

// discard removes the fetched files. When the directory held nothing
// before the fetch, partially extracted entries are removed too.
func discard(dir string, files []string, wasEmpty bool) error {
	if wasEmpty {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
				return err
			}
		}
		return nil
	}
	for _, p := range files {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
