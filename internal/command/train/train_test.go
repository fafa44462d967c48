// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package train

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/yolotrain/yolotrain/internal/config"
	"github.com/yolotrain/yolotrain/internal/envfile"
	"github.com/yolotrain/yolotrain/pkg/act/cli"
	"github.com/yolotrain/yolotrain/pkg/download"
	"github.com/yolotrain/yolotrain/pkg/train"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "valid config",
			cfg:     Config{ConfigPath: "configs/sample.yaml"},
			wantErr: false,
		},
		{
			name:    "missing config",
			cfg:     Config{},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func setup(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	data := filepath.Join(root, "data")
	for _, d := range []string{"train/images", "val/images"} {
		if err := os.MkdirAll(filepath.Join(data, d), 0755); err != nil {
			t.Fatal(err)
		}
	}
	cfgPath := filepath.Join(root, "config.yaml")
	body := "dataset:\n  local_dir: " + data + "\n  classes: [helmet]\n" +
		"training:\n  epochs: 2\n  device: \"0\"\n  project: " + filepath.Join(root, "runs") + "\n  name: smoke\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

func TestHandler(t *testing.T) {
	cfgPath := setup(t)
	mock := train.NewMockCommandExecutor()
	var out bytes.Buffer
	deps := &Deps{Exec: mock}
	deps.SetIO(cli.IO{Out: &out})
	run, err := Handler(context.Background(), Config{ConfigPath: cfgPath}, deps)
	if err != nil {
		t.Fatalf("Handler() error = %v", err)
	}
	if run.ID != "smoke" || run.Status != train.StatusSucceeded {
		t.Errorf("Handler() = %+v", run)
	}
	cmds := mock.Commands()
	if len(cmds) != 1 {
		t.Fatalf("executed %d commands, want 1", len(cmds))
	}
	args := strings.Join(cmds[0].Args, " ")
	for _, want := range []string{"epochs=2", "device=0", "name=smoke", "exist_ok=True"} {
		if !strings.Contains(args, want) {
			t.Errorf("args %q missing %q", args, want)
		}
	}
	if !strings.Contains(out.String(), "Finished run smoke (succeeded)") {
		t.Errorf("output = %q", out.String())
	}
}

func TestHandlerTrainerFailure(t *testing.T) {
	cfgPath := setup(t)
	mock := train.NewMockCommandExecutor()
	mock.SetExecuteFunc(func(ctx context.Context, opts train.CommandOptions, name string, args ...string) error {
		return errors.New("CUDA out of memory")
	})
	deps := &Deps{Exec: mock}
	deps.SetIO(cli.IO{Out: &bytes.Buffer{}})
	_, err := Handler(context.Background(), Config{ConfigPath: cfgPath}, deps)
	if err == nil || !strings.Contains(err.Error(), "CUDA out of memory") {
		t.Errorf("Handler() error = %v", err)
	}
}

type pairFetcher struct {
	slug string
}

func (p *pairFetcher) Fetch(ctx context.Context, slug, dir string) ([]string, error) {
	p.slug = slug
	var files []string
	for _, rel := range []string{"img/a.jpg", "img/b.jpg", "txt/a.txt", "txt/b.txt"} {
		fp := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(fp), 0755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(fp, []byte("0 0.5 0.5 0.1 0.1"), 0644); err != nil {
			return nil, err
		}
		files = append(files, fp)
	}
	return files, nil
}

func TestHandlerFetchesMissingDataset(t *testing.T) {
	root := t.TempDir()
	data := filepath.Join(root, "data")
	cfgPath := filepath.Join(root, "config.yaml")
	body := "dataset:\n  provider: http\n  slug: https://example.com/helmets\n  local_dir: " + data + "\n  classes: [helmet]\n" +
		"training:\n  project: " + filepath.Join(root, "runs") + "\n  name: fetched\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	f := &pairFetcher{}
	mock := train.NewMockCommandExecutor()
	deps := &Deps{
		Exec: mock,
		NewDownloader: func(env envfile.Source, d *Deps) *download.Downloader {
			dl := download.NewDownloader(env, nil, d.Log)
			dl.Fetchers[config.HTTPProvider] = f
			return dl
		},
	}
	deps.SetIO(cli.IO{Out: &bytes.Buffer{}})
	if _, err := Handler(context.Background(), Config{ConfigPath: cfgPath}, deps); err != nil {
		t.Fatalf("Handler() error = %v", err)
	}
	if f.slug != "https://example.com/helmets" {
		t.Errorf("fetched slug = %q", f.slug)
	}
	if _, err := os.Stat(filepath.Join(data, "data.yaml")); err != nil {
		t.Errorf("manifest missing: %v", err)
	}
	if len(mock.Commands()) != 1 {
		t.Errorf("executed %d commands, want 1", len(mock.Commands()))
	}
}

func TestHandlerExplicitEnvFileMustExist(t *testing.T) {
	deps := &Deps{Exec: train.NewMockCommandExecutor()}
	deps.SetIO(cli.IO{Out: &bytes.Buffer{}})
	cfg := Config{ConfigPath: setup(t), EnvFile: filepath.Join(t.TempDir(), "missing.env")}
	if _, err := Handler(context.Background(), cfg, deps); err == nil {
		t.Error("Handler() succeeded with a missing env file")
	}
}
