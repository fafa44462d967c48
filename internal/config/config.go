// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package config loads the single document that parameterizes every stage.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration used when --config is not supplied.
const DefaultPath = "configs/sample.yaml"

// ErrInvalid is returned for documents that parse but cannot drive a run.
var ErrInvalid = errors.New("invalid configuration")

// Provider identifies where a dataset is fetched from.
type Provider string

const (
	LocalProvider  Provider = "local"
	KaggleProvider Provider = "kaggle"
	GCSProvider    Provider = "gcs"
	S3Provider     Provider = "s3"
	HTTPProvider   Provider = "http"
)

var knownProviders = []Provider{LocalProvider, KaggleProvider, GCSProvider, S3Provider, HTTPProvider}

// Dataset describes the dataset source and its on-disk location.
type Dataset struct {
	Name     string   `yaml:"name" toml:"name"`
	Provider Provider `yaml:"provider" toml:"provider"`
	Slug     string   `yaml:"slug" toml:"slug"`
	LocalDir string   `yaml:"local_dir" toml:"local_dir"`
	Classes  []string `yaml:"classes" toml:"classes"`
}

// Training holds the hyperparameters passed through to the trainer.
type Training struct {
	Model      string `yaml:"model" toml:"model"`
	ImgSize    int    `yaml:"imgsz" toml:"imgsz"`
	Batch      int    `yaml:"batch" toml:"batch"`
	Epochs     int    `yaml:"epochs" toml:"epochs"`
	Device     string `yaml:"device" toml:"device"`
	Project    string `yaml:"project" toml:"project"`
	Name       string `yaml:"name" toml:"name"`
	Executable string `yaml:"executable" toml:"executable"`
}

// Config is the full configuration document.
type Config struct {
	Dataset  Dataset  `yaml:"dataset" toml:"dataset"`
	Training Training `yaml:"training" toml:"training"`
}

// Defaults returns a Config populated with the values used for absent keys.
func Defaults() Config {
	return Config{
		Dataset: Dataset{
			Provider: LocalProvider,
			LocalDir: "data",
		},
		Training: Training{
			Model:      "yolov8s.pt",
			ImgSize:    640,
			Batch:      8,
			Epochs:     50,
			Device:     "cpu",
			Project:    "runs",
			Executable: "yolo",
		},
	}
}

// Load reads and validates the configuration at path.
// The format is chosen from the extension: .toml for TOML, anything else is YAML.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Errorf("configuration file %q not found", path)
		}
		return nil, errors.Wrap(err, "reading configuration")
	}
	var cfg *Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		cfg, err = ParseTOML(b)
	default:
		cfg, err = ParseYAML(b)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return cfg, nil
}

// ParseYAML decodes a YAML document over Defaults and validates it.
func ParseYAML(b []byte) (*Config, error) {
	cfg := Defaults()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	// An empty document leaves the defaults untouched.
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "decoding yaml")
	}
	return finish(cfg)
}

// ParseTOML decodes a TOML document over Defaults and validates it.
func ParseTOML(b []byte) (*Config, error) {
	cfg := Defaults()
	dec := toml.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "decoding toml")
	}
	return finish(cfg)
}

func finish(cfg Config) (*Config, error) {
	if cfg.Dataset.Provider == "" {
		cfg.Dataset.Provider = LocalProvider
	}
	cfg.Dataset.Provider = Provider(strings.ToLower(string(cfg.Dataset.Provider)))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the structural constraints of the document. Stage-specific
// requirements (a slug for remote providers, a non-empty class list) are
// enforced by the stage that needs them.
func (c Config) Validate() error {
	known := false
	for _, p := range knownProviders {
		if c.Dataset.Provider == p {
			known = true
			break
		}
	}
	if !known {
		return errors.Wrapf(ErrInvalid, "unknown dataset.provider %q", c.Dataset.Provider)
	}
	if c.Dataset.LocalDir == "" {
		return errors.Wrap(ErrInvalid, "dataset.local_dir must not be empty")
	}
	for i, name := range c.Dataset.Classes {
		if strings.TrimSpace(name) == "" {
			return errors.Wrapf(ErrInvalid, "dataset.classes[%d] is blank", i)
		}
	}
	t := c.Training
	if t.ImgSize <= 0 || t.Batch == 0 || t.Epochs <= 0 {
		return errors.Wrap(ErrInvalid, "training.imgsz and training.epochs must be positive and training.batch non-zero")
	}
	if t.Model == "" || t.Executable == "" {
		return errors.Wrap(ErrInvalid, "training.model and training.executable must not be empty")
	}
	return nil
}

// ManifestPath is the location of the generated data.yaml.
func (d Dataset) ManifestPath() string {
	return filepath.Join(d.LocalDir, "data.yaml")
}
