// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"testing"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func writeFiles(t *testing.T, fs billy.Filesystem, files map[string]string) {
	t.Helper()
	for p, body := range files {
		if err := util.WriteFile(fs, p, []byte(body), 0644); err != nil {
			t.Fatalf("WriteFile(%s) error = %v", p, err)
		}
	}
}

func listDir(t *testing.T, fs billy.Filesystem, dir string) []string {
	t.Helper()
	entries, err := fs.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("ReadDir(%s) error = %v", dir, err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// scatteredDataset writes n labeled images spread over inconsistent
// subfolders, with labels kept apart from their images.
func scatteredDataset(t *testing.T, fs billy.Filesystem, n int) {
	t.Helper()
	files := make(map[string]string)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("img%03d", i)
		imgDir := []string{"raw", "raw/batch2", "export/JPEGImages"}[i%3]
		ext := []string{".jpg", ".PNG", ".jpeg"}[i%3]
		files[path.Join(imgDir, name+ext)] = "image-" + name
		files[path.Join("annotations", name+".txt")] = "0 0.5 0.5 0.2 0.2"
	}
	writeFiles(t, fs, files)
}

func TestTrainCount(t *testing.T) {
	tests := []struct {
		n     int
		ratio float64
		want  int
	}{
		{0, 0.8, 0},
		{1, 0.8, 1},
		{2, 0.8, 2},
		{3, 0.8, 2},
		{4, 0.8, 3},
		{5, 0.8, 4},
		{7, 0.8, 6},
		{10, 0.8, 8},
		{10, 1, 10},
		{3, 0.5, 2},
	}
	for _, tc := range tests {
		if got := TrainCount(tc.n, tc.ratio); got != tc.want {
			t.Errorf("TrainCount(%d, %v) = %d, want %d", tc.n, tc.ratio, got, tc.want)
		}
	}
}

func TestScan(t *testing.T) {
	fs := memfs.New()
	writeFiles(t, fs, map[string]string{
		"a/cat1.jpg":           "",
		"b/labels/cat1.txt":    "",
		"a/dog.png":            "",
		"labels/dog.txt":       "",
		"a/nolabel.bmp":        "",
		"orphan.txt":           "",
		"c/cat1.jpeg":          "",
		"notes/readme.md":      "",
		".cache/x.jpg":         "",
		".cache/x.txt":         "",
		"train/images/old.jpg": "",
		"train/labels/old.txt": "",
	})
	inv, err := Scan(fs)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	wantPairs := []Pair{
		{Stem: "cat1", Image: "a/cat1.jpg", Label: "b/labels/cat1.txt"},
		{Stem: "dog", Image: "a/dog.png", Label: "labels/dog.txt"},
	}
	if diff := cmp.Diff(wantPairs, inv.Pairs); diff != "" {
		t.Errorf("Pairs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a/nolabel.bmp"}, inv.Unlabeled); diff != "" {
		t.Errorf("Unlabeled mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"c/cat1.jpeg"}, inv.Duplicates); diff != "" {
		t.Errorf("Duplicates mismatch (-want +got):\n%s", diff)
	}
}

func TestAutoFormatSplitSizes(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 9, 10, 17} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			fs := memfs.New()
			scatteredDataset(t, fs, n)
			res, err := AutoFormat(fs, FormatOptions{Log: quietLogger()})
			if err != nil {
				t.Fatalf("AutoFormat() error = %v", err)
			}
			wantTrain := TrainCount(n, DefaultTrainRatio)
			if len(res.Train) != wantTrain || len(res.Val) != n-wantTrain {
				t.Errorf("split = %d/%d, want %d/%d", len(res.Train), len(res.Val), wantTrain, n-wantTrain)
			}
			trainImgs := listDir(t, fs, ImagesPath(Train))
			valImgs := listDir(t, fs, ImagesPath(Val))
			if len(trainImgs) != wantTrain || len(valImgs) != n-wantTrain {
				t.Errorf("on disk = %d/%d images, want %d/%d", len(trainImgs), len(valImgs), wantTrain, n-wantTrain)
			}
			seen := make(map[string]bool)
			for _, img := range append(trainImgs, valImgs...) {
				s := stem(img)
				if seen[s] {
					t.Errorf("pair %s appears in both splits", s)
				}
				seen[s] = true
			}
			for _, s := range []Split{Train, Val} {
				imgs := listDir(t, fs, ImagesPath(s))
				lbls := listDir(t, fs, LabelsPath(s))
				if len(imgs) != len(lbls) {
					t.Fatalf("%s: %d images, %d labels", s, len(imgs), len(lbls))
				}
				for i := range imgs {
					if stem(imgs[i]) != stem(lbls[i]) {
						t.Errorf("%s: image %s paired with label %s", s, imgs[i], lbls[i])
					}
				}
			}
		})
	}
}

func TestAutoFormatSkipsUnlabeled(t *testing.T) {
	fs := memfs.New()
	scatteredDataset(t, fs, 5)
	writeFiles(t, fs, map[string]string{
		"raw/lonely.jpg":       "x",
		"raw/batch2/ghost.png": "x",
	})
	log, hook := test.NewNullLogger()
	res, err := AutoFormat(fs, FormatOptions{Log: log})
	if err != nil {
		t.Fatalf("AutoFormat() error = %v", err)
	}
	if diff := cmp.Diff([]string{"raw/batch2/ghost.png", "raw/lonely.jpg"}, res.Unlabeled); diff != "" {
		t.Errorf("Unlabeled mismatch (-want +got):\n%s", diff)
	}
	for _, s := range []Split{Train, Val} {
		for _, name := range listDir(t, fs, ImagesPath(s)) {
			if name == "lonely.jpg" || name == "ghost.png" {
				t.Errorf("unlabeled image %s copied into %s", name, s)
			}
		}
	}
	var warnings int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
		}
	}
	if warnings != 2 {
		t.Errorf("got %d warnings, want 2", warnings)
	}
}

func TestAutoFormatDeterministic(t *testing.T) {
	assign := func() (train, val []string) {
		fs := memfs.New()
		scatteredDataset(t, fs, 23)
		res, err := AutoFormat(fs, FormatOptions{Log: quietLogger()})
		if err != nil {
			t.Fatalf("AutoFormat() error = %v", err)
		}
		for _, p := range res.Train {
			train = append(train, p.Stem)
		}
		for _, p := range res.Val {
			val = append(val, p.Stem)
		}
		return train, val
	}
	t1, v1 := assign()
	t2, v2 := assign()
	if diff := cmp.Diff(t1, t2); diff != "" {
		t.Errorf("train assignment differs between runs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(v1, v2); diff != "" {
		t.Errorf("val assignment differs between runs (-first +second):\n%s", diff)
	}
	// Assignment follows sorted stem order.
	if !sort.StringsAreSorted(append(append([]string{}, t1...), v1...)) {
		t.Errorf("assignment not in stem order: %v %v", t1, v1)
	}
}

func TestAutoFormatAlreadyFormatted(t *testing.T) {
	fs := memfs.New()
	writeFiles(t, fs, map[string]string{
		"train/images/a.jpg": "",
		"train/labels/a.txt": "",
		"test/images/b.jpg":  "",
		"test/labels/b.txt":  "",
		"raw/c.jpg":          "",
		"raw/c.txt":          "",
	})
	res, err := AutoFormat(fs, FormatOptions{Log: quietLogger()})
	if err != nil {
		t.Fatalf("AutoFormat() error = %v", err)
	}
	if !res.AlreadyFormatted {
		t.Error("AlreadyFormatted = false, want true")
	}
	if got := listDir(t, fs, ImagesPath(Train)); len(got) != 1 {
		t.Errorf("train images = %v, want untouched", got)
	}
}

func TestAutoFormatErrors(t *testing.T) {
	t.Run("no pairs", func(t *testing.T) {
		fs := memfs.New()
		writeFiles(t, fs, map[string]string{"a.jpg": "", "b.txt": ""})
		_, err := AutoFormat(fs, FormatOptions{Log: quietLogger()})
		if !errors.Is(err, ErrNoPairs) {
			t.Errorf("AutoFormat() error = %v, want ErrNoPairs", err)
		}
	})
	t.Run("bad ratio", func(t *testing.T) {
		fs := memfs.New()
		scatteredDataset(t, fs, 3)
		if _, err := AutoFormat(fs, FormatOptions{TrainRatio: 1.5, Log: quietLogger()}); err == nil {
			t.Error("AutoFormat(ratio=1.5) error = nil, want error")
		}
	})
}

func TestAutoFormatReuseDoesNotRescanTargets(t *testing.T) {
	fs := memfs.New()
	scatteredDataset(t, fs, 4)
	if _, err := AutoFormat(fs, FormatOptions{Log: quietLogger()}); err != nil {
		t.Fatal(err)
	}
	// Drop val so the layout no longer counts as formatted, then rerun.
	if err := util.RemoveAll(fs, "val"); err != nil {
		t.Fatal(err)
	}
	res, err := AutoFormat(fs, FormatOptions{Log: quietLogger()})
	if err != nil {
		t.Fatalf("second AutoFormat() error = %v", err)
	}
	if len(res.Duplicates) != 0 {
		t.Errorf("Duplicates = %v, want none (targets must not be scanned)", res.Duplicates)
	}
	if len(res.Train)+len(res.Val) != 4 {
		t.Errorf("pairs = %d, want 4", len(res.Train)+len(res.Val))
	}
}

func TestAutoFormatProgress(t *testing.T) {
	fs := memfs.New()
	scatteredDataset(t, fs, 3)
	var buf bytes.Buffer
	if _, err := AutoFormat(fs, FormatOptions{Log: quietLogger(), Progress: &buf}); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Error("no progress output written")
	}
}
