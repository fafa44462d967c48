// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"io"
	"io/fs"
	"math"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cheggaaa/pb"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/yolotrain/yolotrain/internal/billyx"
)

// DefaultTrainRatio is the share of pairs assigned to the training split.
const DefaultTrainRatio = 0.8

var (
	// ErrNoPairs is returned when no image has a matching label.
	ErrNoPairs = errors.New("no paired images and labels found")
	// ErrNotFormatted is returned when the split layout is missing.
	ErrNotFormatted = errors.New("dataset is not in split layout")
)

// Pair is an image and its label, both relative to the dataset root.
type Pair struct {
	Stem  string
	Image string
	Label string
}

// Inventory is the result of scanning a dataset for pairs.
type Inventory struct {
	Pairs []Pair
	// Unlabeled are images with no label sharing their stem.
	Unlabeled []string
	// Duplicates are files whose stem was already claimed by an earlier file.
	Duplicates []string
}

// Scan walks fs and pairs every image with the label sharing its base
// filename, wherever each lives. The train and val target directories are
// not scanned.
// Pairs are returned sorted by stem, so the result is stable across runs.
func Scan(fsys billy.Filesystem) (*Inventory, error) {
	var images, labels []string
	err := util.Walk(fsys, "/", func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(filepath.ToSlash(p), "/")
		if rel == "" {
			return nil
		}
		if info.IsDir() {
			if isTargetDir(rel) || strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		switch {
		case IsImage(rel):
			images = append(images, rel)
		case IsLabel(rel):
			labels = append(labels, rel)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "scanning dataset")
	}
	byStem := func(files []string) {
		sort.Slice(files, func(i, j int) bool {
			si, sj := stem(files[i]), stem(files[j])
			if si != sj {
				return si < sj
			}
			return files[i] < files[j]
		})
	}
	byStem(images)
	byStem(labels)
	inv := &Inventory{}
	labelFor := make(map[string]string)
	for _, l := range labels {
		s := stem(l)
		if _, ok := labelFor[s]; ok {
			inv.Duplicates = append(inv.Duplicates, l)
			continue
		}
		labelFor[s] = l
	}
	seen := make(map[string]bool)
	for _, img := range images {
		s := stem(img)
		if seen[s] {
			inv.Duplicates = append(inv.Duplicates, img)
			continue
		}
		seen[s] = true
		l, ok := labelFor[s]
		if !ok {
			inv.Unlabeled = append(inv.Unlabeled, img)
			continue
		}
		inv.Pairs = append(inv.Pairs, Pair{Stem: s, Image: img, Label: l})
	}
	return inv, nil
}

// isTargetDir reports whether rel is one of the directories AutoFormat
// writes into. Their contents are outputs of an earlier run, not inputs.
func isTargetDir(rel string) bool {
	for _, s := range []Split{Train, Val} {
		if rel == ImagesPath(s) || rel == LabelsPath(s) {
			return true
		}
	}
	return false
}

// TrainCount is the number of n pairs assigned to training: round(ratio*n).
func TrainCount(n int, ratio float64) int {
	return int(math.Round(ratio * float64(n)))
}

// SplitPairs deterministically assigns the first TrainCount pairs to train
// and the remainder to val. pairs must already be in stable order.
func SplitPairs(pairs []Pair, ratio float64) (train, val []Pair) {
	k := TrainCount(len(pairs), ratio)
	return pairs[:k], pairs[k:]
}

// FormatOptions configures AutoFormat.
type FormatOptions struct {
	// TrainRatio defaults to DefaultTrainRatio when zero.
	TrainRatio float64
	Log        logrus.FieldLogger
	// Progress receives a copy progress bar when non-nil.
	Progress io.Writer
}

// FormatResult reports what AutoFormat did.
type FormatResult struct {
	// AlreadyFormatted is set when the layout existed and nothing was copied.
	AlreadyFormatted bool
	Train            []Pair
	Val              []Pair
	Unlabeled        []string
	Duplicates       []string
}

// AutoFormat copies the paired files found in fsys into the train/val split
// layout on the same filesystem. Target directories are not cleared first.
func AutoFormat(fsys billy.Filesystem, opts FormatOptions) (*FormatResult, error) {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	ratio := opts.TrainRatio
	if ratio == 0 {
		ratio = DefaultTrainRatio
	}
	if ratio <= 0 || ratio > 1 {
		return nil, errors.Errorf("train ratio %v outside (0, 1]", ratio)
	}
	if IsFormatted(fsys) {
		log.Info("Dataset already appears to be in split layout, skipping formatting")
		return &FormatResult{AlreadyFormatted: true}, nil
	}
	inv, err := Scan(fsys)
	if err != nil {
		return nil, err
	}
	for _, img := range inv.Unlabeled {
		log.WithField("image", img).Warn("No matching label, skipping image")
	}
	for _, d := range inv.Duplicates {
		log.WithField("file", d).Warn("Duplicate base filename, skipping file")
	}
	if len(inv.Pairs) == 0 {
		return nil, errors.Wrap(ErrNoPairs, "ensure the dataset contains images and YOLO-format .txt labels")
	}
	train, val := SplitPairs(inv.Pairs, ratio)
	if len(val) == 0 {
		log.Warn("Validation split is empty")
	}
	for _, s := range []Split{Train, Val} {
		for _, d := range []string{ImagesPath(s), LabelsPath(s)} {
			if err := fsys.MkdirAll(d, 0755); err != nil {
				return nil, errors.Wrapf(err, "creating %s", d)
			}
		}
	}
	var bar *pb.ProgressBar
	if opts.Progress != nil {
		bar = pb.New(len(inv.Pairs))
		bar.Output = opts.Progress
		bar.ShowTimeLeft = true
		bar.Start()
	}
	for _, assignment := range []struct {
		split Split
		pairs []Pair
	}{{Train, train}, {Val, val}} {
		for _, p := range assignment.pairs {
			if err := copyPair(fsys, p, assignment.split); err != nil {
				return nil, err
			}
			if bar != nil {
				bar.Increment()
			}
		}
	}
	if bar != nil {
		bar.Finish()
	}
	log.WithFields(logrus.Fields{"train": len(train), "val": len(val)}).Info("Dataset formatting complete")
	return &FormatResult{
		Train:      train,
		Val:        val,
		Unlabeled:  inv.Unlabeled,
		Duplicates: inv.Duplicates,
	}, nil
}

func copyPair(fsys billy.Filesystem, p Pair, s Split) error {
	img := path.Join(ImagesPath(s), path.Base(p.Image))
	if err := billyx.CopyFile(fsys, img, fsys, p.Image); err != nil {
		return errors.Wrapf(err, "copying %s", p.Image)
	}
	lbl := path.Join(LabelsPath(s), p.Stem+LabelExt)
	if err := billyx.CopyFile(fsys, lbl, fsys, p.Label); err != nil {
		return errors.Wrapf(err, "copying %s", p.Label)
	}
	return nil
}
