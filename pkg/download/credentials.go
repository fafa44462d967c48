// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package download

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/yolotrain/yolotrain/internal/envfile"
)

// Environment keys recognized in env files and the process environment.
const (
	KaggleUsernameKey   = "KAGGLE_USERNAME"
	KaggleKeyKey        = "KAGGLE_KEY"
	KaggleConfigDirKey  = "KAGGLE_CONFIG_DIR"
	GoogleCredentialKey = "GOOGLE_APPLICATION_CREDENTIALS"
	AWSAccessKeyIDKey   = "AWS_ACCESS_KEY_ID"
	AWSSecretKeyKey     = "AWS_SECRET_ACCESS_KEY"
	AWSRegionKey        = "AWS_REGION"
	S3EndpointKey       = "S3_ENDPOINT"
)

// KaggleCredentials is the username/key pair used for Kaggle API basic auth.
// The JSON form matches kaggle.json.
type KaggleCredentials struct {
	Username string `json:"username"`
	Key      string `json:"key"`
	// Source describes where the pair was found.
	Source string `json:"-"`
}

// KaggleResolver resolves Kaggle credentials in priority order: the env
// sources (env files, then the process environment), then the Kaggle
// client's own kaggle.json.
type KaggleResolver struct {
	Env envfile.Source
	// Home is the user's home directory; kaggle.json is looked up at
	// $Home/.kaggle unless KAGGLE_CONFIG_DIR is set.
	Home string
}

// Resolve returns the first complete credential pair. Username and key
// must come from the same source; a half pair is ignored.
func (r KaggleResolver) Resolve() (*KaggleCredentials, error) {
	for _, src := range envfile.Members(r.Env) {
		user, userOK := src.Lookup(KaggleUsernameKey)
		key, keyOK := src.Lookup(KaggleKeyKey)
		if userOK && keyOK {
			return &KaggleCredentials{Username: user, Key: key, Source: src.String()}, nil
		}
	}
	p := r.credentialFile()
	if p == "" {
		return nil, errors.Wrap(ErrUnauthenticated, "no Kaggle credentials found, set KAGGLE_USERNAME and KAGGLE_KEY or provide kaggle.json")
	}
	b, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrUnauthenticated, "no Kaggle credentials found in environment or %s", p)
	} else if err != nil {
		return nil, errors.Wrapf(err, "reading %s", p)
	}
	var creds KaggleCredentials
	if err := json.Unmarshal(b, &creds); err != nil {
		return nil, errors.Wrapf(ErrUnauthenticated, "malformed %s: %v", p, err)
	}
	if creds.Username == "" || creds.Key == "" {
		return nil, errors.Wrapf(ErrUnauthenticated, "%s lacks username or key", p)
	}
	creds.Source = p
	return &creds, nil
}

func (r KaggleResolver) credentialFile() string {
	if r.Env != nil {
		if dir, ok := r.Env.Lookup(KaggleConfigDirKey); ok {
			return filepath.Join(dir, "kaggle.json")
		}
	}
	if r.Home == "" {
		return ""
	}
	return filepath.Join(r.Home, ".kaggle", "kaggle.json")
}
