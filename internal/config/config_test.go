// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func TestParseYAML(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		want    *Config
		wantErr error
	}{
		{
			name: "full document",
			doc: `
dataset:
  name: hardhat
  provider: Kaggle
  slug: owner/hardhat
  local_dir: data/hardhat
  classes: [helmet, head, person]
training:
  model: yolov8n.pt
  imgsz: 320
  batch: 4
  epochs: 3
  device: "0"
`,
			want: &Config{
				Dataset: Dataset{
					Name:     "hardhat",
					Provider: KaggleProvider,
					Slug:     "owner/hardhat",
					LocalDir: "data/hardhat",
					Classes:  []string{"helmet", "head", "person"},
				},
				Training: Training{
					Model:      "yolov8n.pt",
					ImgSize:    320,
					Batch:      4,
					Epochs:     3,
					Device:     "0",
					Project:    "runs",
					Executable: "yolo",
				},
			},
		},
		{
			name: "defaults fill absent keys",
			doc:  "dataset:\n  classes: [cat]\n",
			want: func() *Config {
				c := Defaults()
				c.Dataset.Classes = []string{"cat"}
				return &c
			}(),
		},
		{
			name: "empty document",
			doc:  "",
			want: func() *Config { c := Defaults(); return &c }(),
		},
		{
			name:    "unknown provider",
			doc:     "dataset:\n  provider: ftp\n",
			wantErr: ErrInvalid,
		},
		{
			name:    "blank class",
			doc:     "dataset:\n  classes: [cat, \" \"]\n",
			wantErr: ErrInvalid,
		},
		{
			name:    "non-positive epochs",
			doc:     "training:\n  epochs: 0\n",
			wantErr: ErrInvalid,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseYAML([]byte(tc.doc))
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("ParseYAML() error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseYAML() error = %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("ParseYAML() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseYAMLUnknownField(t *testing.T) {
	if _, err := ParseYAML([]byte("dataset:\n  clases: [cat]\n")); err == nil {
		t.Error("ParseYAML() error = nil, want unknown field error")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(yamlPath, []byte("dataset:\n  local_dir: d\n  classes: [a, b]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	tomlPath := filepath.Join(dir, "cfg.toml")
	tomlDoc := `
[dataset]
local_dir = "d"
classes = ["a", "b"]

[training]
epochs = 2
`
	if err := os.WriteFile(tomlPath, []byte(tomlDoc), 0644); err != nil {
		t.Fatal(err)
	}
	fromYAML, err := Load(yamlPath)
	if err != nil {
		t.Fatalf("Load(yaml) error = %v", err)
	}
	fromTOML, err := Load(tomlPath)
	if err != nil {
		t.Fatalf("Load(toml) error = %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, fromTOML.Dataset.Classes); diff != "" {
		t.Errorf("toml classes mismatch (-want +got):\n%s", diff)
	}
	if fromTOML.Training.Epochs != 2 || fromTOML.Training.Batch != 8 {
		t.Errorf("toml training = %+v, want epochs=2 batch=8", fromTOML.Training)
	}
	if diff := cmp.Diff(fromYAML.Dataset, fromTOML.Dataset); diff != "" {
		t.Errorf("yaml and toml datasets differ (-yaml +toml):\n%s", diff)
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load(missing) error = nil, want not found")
	}
}

func TestSampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", DefaultPath))
	if err != nil {
		t.Fatalf("Load(sample) error = %v", err)
	}
	if cfg.Dataset.Provider != KaggleProvider || len(cfg.Dataset.Classes) == 0 {
		t.Errorf("sample dataset = %+v, want kaggle with classes", cfg.Dataset)
	}
}

func TestManifestPath(t *testing.T) {
	d := Dataset{LocalDir: "data/x"}
	if got, want := d.ManifestPath(), filepath.Join("data", "x", "data.yaml"); got != want {
		t.Errorf("ManifestPath() = %q, want %q", got, want)
	}
}
