// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package dataset reshapes detection datasets into the split layout expected
// by the training library and generates the manifest describing them.
//
// A formatted dataset looks like:
//
//	<root>/
//	  train/images/  train/labels/
//	  val/images/    val/labels/
//	  test/images/   test/labels/   (optional)
//	  data.yaml
package dataset

import (
	"os"
	"path"
	"strings"

	billy "github.com/go-git/go-billy/v5"
)

// Split is one of the role-specific divisions of a dataset.
type Split string

const (
	Train Split = "train"
	Val   Split = "val"
	Test  Split = "test"
)

// Splits lists every split directory name in layout order.
var Splits = []Split{Train, Val, Test}

const (
	imagesDir = "images"
	labelsDir = "labels"
	// LabelExt is the extension of YOLO label files.
	LabelExt = ".txt"
)

// ImageExts are the recognized image extensions, matched case-insensitively.
var ImageExts = []string{".jpg", ".jpeg", ".png", ".bmp"}

// ImagesPath is the images directory of a split, relative to the dataset root.
func ImagesPath(s Split) string { return path.Join(string(s), imagesDir) }

// LabelsPath is the labels directory of a split, relative to the dataset root.
func LabelsPath(s Split) string { return path.Join(string(s), labelsDir) }

// IsImage reports whether name has a recognized image extension.
func IsImage(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range ImageExts {
		if ext == e {
			return true
		}
	}
	return false
}

// IsLabel reports whether name is a label file.
func IsLabel(name string) bool {
	return strings.ToLower(path.Ext(name)) == LabelExt
}

// stem is the base filename without its extension.
func stem(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}

func isDir(fs billy.Filesystem, p string) bool {
	fi, err := fs.Stat(p)
	return err == nil && fi.IsDir()
}

// IsFormatted reports whether fs already holds a training split plus a
// validation or test split.
func IsFormatted(fs billy.Filesystem) bool {
	return isDir(fs, ImagesPath(Train)) && (isDir(fs, ImagesPath(Val)) || isDir(fs, ImagesPath(Test)))
}

// HasData reports whether the filesystem root contains any entry.
func HasData(fs billy.Filesystem) (bool, error) {
	entries, err := fs.ReadDir("/")
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return len(entries) > 0, nil
}
