// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package train launches the external YOLO trainer against a prepared
// dataset and records each run on disk.
package train

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/yolotrain/yolotrain/internal/config"
	"github.com/yolotrain/yolotrain/pkg/dataset"
	"github.com/yolotrain/yolotrain/pkg/download"
	"gopkg.in/yaml.v3"
)

// Files written into every run directory.
const (
	RunRecordName = "run.yaml"
	RunLogName    = "train.log"
)

// Params are the resolved arguments of a single training run.
type Params struct {
	Data    string `yaml:"data"`
	Model   string `yaml:"model"`
	ImgSize int    `yaml:"imgsz"`
	Batch   int    `yaml:"batch"`
	Epochs  int    `yaml:"epochs"`
	Device  string `yaml:"device"`
	Project string `yaml:"project"`
	Name    string `yaml:"name"`
}

// Args renders p as the trainer's key=value command line.
func (p Params) Args() []string {
	return []string{
		"detect", "train",
		"data=" + p.Data,
		"model=" + p.Model,
		"imgsz=" + strconv.Itoa(p.ImgSize),
		"batch=" + strconv.Itoa(p.Batch),
		"epochs=" + strconv.Itoa(p.Epochs),
		"device=" + p.Device,
		"project=" + p.Project,
		"name=" + p.Name,
		"exist_ok=True",
	}
}

// Status is the outcome recorded for a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is the record persisted as run.yaml.
type Run struct {
	ID         string    `yaml:"id"`
	Dir        string    `yaml:"dir"`
	Executable string    `yaml:"executable"`
	Params     Params    `yaml:"params"`
	Status     Status    `yaml:"status"`
	Error      string    `yaml:"error,omitempty"`
	Started    time.Time `yaml:"started"`
	Finished   time.Time `yaml:"finished,omitempty"`
}

// NewRunName returns a short unique run name.
func NewRunName() string {
	return "train-" + uuid.New().String()[:8]
}

// Trainer runs the external trainer for a configuration.
type Trainer struct {
	Exec CommandExecutor
	Log  logrus.FieldLogger
	// Output receives the trainer's output in addition to train.log.
	Output io.Writer
	// Downloader, when set, fetches a remote dataset whose manifest is
	// missing before the manifest is generated.
	Downloader *download.Downloader
	// Progress receives progress bars while a missing dataset is formatted.
	Progress io.Writer
	// Now and NewName default to time.Now and NewRunName.
	Now     func() time.Time
	NewName func() string
}

func (t *Trainer) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// Train prepares the manifest if needed, then runs the trainer to
// completion. Failures of the external process are returned unchanged in
// kind and never retried.
func (t *Trainer) Train(ctx context.Context, cfg *config.Config) (*Run, error) {
	log := t.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	tc := cfg.Training
	exe, err := t.Exec.LookPath(tc.Executable)
	if err != nil {
		return nil, errors.Errorf("trainer executable %q not found on PATH, install ultralytics (pip install ultralytics)", tc.Executable)
	}
	manifest, err := t.ensureManifest(ctx, cfg.Dataset, log)
	if err != nil {
		return nil, err
	}
	project, err := filepath.Abs(tc.Project)
	if err != nil {
		return nil, errors.Wrap(err, "resolving training.project")
	}
	name := tc.Name
	if name == "" {
		newName := t.NewName
		if newName == nil {
			newName = NewRunName
		}
		name = newName()
	}
	run := &Run{
		ID:         name,
		Dir:        filepath.Join(project, name),
		Executable: exe,
		Params: Params{
			Data:    manifest,
			Model:   tc.Model,
			ImgSize: tc.ImgSize,
			Batch:   tc.Batch,
			Epochs:  tc.Epochs,
			Device:  tc.Device,
			Project: project,
			Name:    name,
		},
		Status:  StatusRunning,
		Started: t.now(),
	}
	if err := os.MkdirAll(run.Dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "creating run directory %s", run.Dir)
	}
	if err := writeRun(run); err != nil {
		return nil, err
	}
	logFile, err := os.Create(filepath.Join(run.Dir, RunLogName))
	if err != nil {
		return nil, errors.Wrap(err, "creating training log")
	}
	defer logFile.Close()
	out := io.Writer(logFile)
	if t.Output != nil {
		out = io.MultiWriter(t.Output, logFile)
	}
	log.WithFields(logrus.Fields{
		"run":    run.ID,
		"model":  tc.Model,
		"epochs": tc.Epochs,
		"device": tc.Device,
	}).Info("Starting training")
	execErr := t.Exec.Execute(ctx, CommandOptions{Output: out}, exe, run.Params.Args()...)
	run.Finished = t.now()
	run.Status = StatusSucceeded
	if execErr != nil {
		run.Status = StatusFailed
		run.Error = execErr.Error()
	}
	if err := writeRun(run); err != nil && execErr == nil {
		return nil, err
	}
	if execErr != nil {
		return run, errors.Wrapf(execErr, "training run %s failed", run.ID)
	}
	log.WithField("dir", run.Dir).Info("Training finished")
	return run, nil
}

// ensureManifest returns the absolute manifest path, generating the
// manifest first when it does not exist yet. A remote dataset is fetched
// and formatted before that; a local one must already be formatted.
func (t *Trainer) ensureManifest(ctx context.Context, ds config.Dataset, log logrus.FieldLogger) (string, error) {
	p, err := filepath.Abs(ds.ManifestPath())
	if err != nil {
		return "", errors.Wrap(err, "resolving manifest path")
	}
	if _, err := os.Stat(p); err == nil {
		return p, nil
	} else if !os.IsNotExist(err) {
		return "", errors.Wrapf(err, "checking %s", p)
	}
	remote := ds.Provider != config.LocalProvider && ds.Provider != ""
	if remote && t.Downloader != nil {
		log.WithFields(logrus.Fields{"path": p, "provider": ds.Provider}).Warn("Manifest missing, downloading and preparing the dataset")
		if _, err := t.Downloader.Download(ctx, ds, download.Options{}); err != nil {
			return "", errors.Wrap(err, "downloading dataset")
		}
		if _, err := dataset.Ready(osfs.New(ds.LocalDir), ds.LocalDir, ds.Classes, dataset.FormatOptions{Log: log, Progress: t.Progress}); err != nil {
			return "", errors.Wrap(err, "preparing dataset")
		}
		return p, nil
	}
	log.WithField("path", p).Warn("Manifest missing, generating it")
	if _, err := dataset.Prepare(osfs.New(ds.LocalDir), ds.LocalDir, ds.Classes, log); err != nil {
		return "", errors.Wrap(err, "preparing manifest")
	}
	return p, nil
}

func writeRun(r *Run) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return errors.Wrap(err, "encoding run record")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, "encoding run record")
	}
	p := filepath.Join(r.Dir, RunRecordName)
	if err := os.WriteFile(p, buf.Bytes(), 0644); err != nil {
		return errors.Wrapf(err, "writing %s", p)
	}
	return nil
}

// Describe summarizes a run for console output.
func (r *Run) Describe() string {
	return fmt.Sprintf("run %s (%s) in %s", r.ID, r.Status, r.Dir)
}
