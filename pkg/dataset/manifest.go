// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"bytes"
	"path/filepath"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ManifestName is the manifest's file name within the dataset root.
const ManifestName = "data.yaml"

// ErrNoClasses is returned when a manifest would list no classes.
var ErrNoClasses = errors.New("no classes declared in configuration, populate dataset.classes")

// Manifest is the dataset descriptor read by the training library.
// Field order is the emitted key order.
type Manifest struct {
	Train string   `yaml:"train"`
	Val   string   `yaml:"val"`
	Test  string   `yaml:"test,omitempty"`
	NC    int      `yaml:"nc"`
	Names []string `yaml:"names"`
}

// Validate checks the manifest's internal consistency.
func (m Manifest) Validate() error {
	if m.Train == "" || m.Val == "" {
		return errors.New("manifest must name train and val directories")
	}
	if len(m.Names) == 0 {
		return ErrNoClasses
	}
	if m.NC != len(m.Names) {
		return errors.Errorf("manifest nc=%d does not match %d names", m.NC, len(m.Names))
	}
	return nil
}

// BuildManifest describes the split layout found in fsys. root is the host
// path fsys is rooted at; manifest paths are made absolute against it.
func BuildManifest(fsys billy.Filesystem, root string, classes []string, log logrus.FieldLogger) (*Manifest, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if len(classes) == 0 {
		return nil, ErrNoClasses
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "resolving dataset root")
	}
	hostPath := func(s Split) string { return filepath.Join(absRoot, filepath.FromSlash(ImagesPath(s))) }
	if !isDir(fsys, ImagesPath(Train)) {
		return nil, errors.Wrapf(ErrNotFormatted, "training directory %q not found, run auto_format_dataset first", hostPath(Train))
	}
	m := &Manifest{
		Train: hostPath(Train),
		NC:    len(classes),
		Names: append([]string(nil), classes...),
	}
	hasTest := isDir(fsys, ImagesPath(Test))
	switch {
	case isDir(fsys, ImagesPath(Val)):
		m.Val = hostPath(Val)
	case hasTest:
		log.Warn("'val' split not found, using 'test/images' for validation")
		m.Val = hostPath(Test)
	default:
		log.Warn("Validation split missing, reusing training images for validation")
		m.Val = hostPath(Train)
	}
	if hasTest {
		m.Test = hostPath(Test)
	}
	return m, nil
}

// WriteManifest writes m to ManifestName at the root of fsys.
func WriteManifest(fsys billy.Filesystem, m *Manifest) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return errors.Wrap(err, "encoding manifest")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, "encoding manifest")
	}
	if err := util.WriteFile(fsys, ManifestName, buf.Bytes(), 0644); err != nil {
		return errors.Wrap(err, "writing manifest")
	}
	return nil
}

// ReadManifest reads and validates the manifest at the root of fsys.
func ReadManifest(fsys billy.Filesystem) (*Manifest, error) {
	b, err := util.ReadFile(fsys, ManifestName)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrap(err, "decoding manifest")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Prepare builds and writes the manifest for the dataset rooted at root.
func Prepare(fsys billy.Filesystem, root string, classes []string, log logrus.FieldLogger) (*Manifest, error) {
	m, err := BuildManifest(fsys, root, classes, log)
	if err != nil {
		return nil, err
	}
	if err := WriteManifest(fsys, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Ready brings a freshly acquired dataset to a trainable state: it
// reshapes the directory into the split layout when needed and writes
// the manifest. Classes are checked before anything on disk changes.
func Ready(fsys billy.Filesystem, root string, classes []string, opts FormatOptions) (*Manifest, error) {
	if len(classes) == 0 {
		return nil, ErrNoClasses
	}
	if !IsFormatted(fsys) {
		if opts.Log != nil {
			opts.Log.WithField("dir", root).Info("Dataset layout not in YOLO format, formatting")
		}
		if _, err := AutoFormat(fsys, opts); err != nil {
			return nil, errors.Wrap(err, "formatting dataset")
		}
	}
	return Prepare(fsys, root, classes, opts.Log)
}
