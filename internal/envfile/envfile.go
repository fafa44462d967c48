// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package envfile parses KEY=VALUE environment files and resolves keys
// across an ordered set of sources.
package envfile

import (
	"bufio"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// DefaultPath is the env file consulted when none is given explicitly.
const DefaultPath = ".env"

// File is a parsed env file. Later duplicates overwrite earlier ones.
type File struct {
	Path   string
	Values map[string]string
}

// Parse parses an env file from an io.Reader.
// It supports:
// - KEY=VALUE pairs, with an optional leading "export "
// - Full-line comments starting with #
// - Inline comments (# preceded by whitespace) on unquoted values
// - Values wrapped in single or double quotes
func Parse(r io.Reader) (*File, error) {
	scanner := bufio.NewScanner(r)
	f := &File{Values: make(map[string]string)}
	var lineNum int
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		sepIdx := strings.IndexByte(line, '=')
		if sepIdx == -1 {
			return nil, errors.Errorf("line %d: no key-value separator found", lineNum)
		}
		key := strings.TrimSpace(line[:sepIdx])
		if key == "" {
			return nil, errors.Errorf("line %d: empty key name", lineNum)
		}
		if strings.IndexFunc(key, unicode.IsSpace) != -1 {
			return nil, errors.Errorf("line %d: key %q contains whitespace", lineNum, key)
		}
		f.Values[key] = parseValue(strings.TrimSpace(line[sepIdx+1:]))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "error reading input")
	}
	return f, nil
}

func parseValue(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') {
		if end := strings.IndexByte(v[1:], v[0]); end != -1 {
			return v[1 : end+1]
		}
	}
	if idx := findInlineComment(v); idx != -1 {
		v = strings.TrimSpace(v[:idx])
	}
	return v
}

// findInlineComment finds the position of an inline comment in a string.
// An inline comment is # that is preceded by whitespace.
// Returns the byte index of the comment start, or -1 if not found.
func findInlineComment(s string) int {
	prevRune := rune(-1)
	byteIdx := 0
	for _, r := range s {
		if r == '#' && prevRune != -1 && unicode.IsSpace(prevRune) {
			return byteIdx
		}
		prevRune = r
		byteIdx += len(string(r))
	}
	return -1
}

// Read parses the env file at path.
func Read(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	f, err := Parse(fh)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing env file %s", path)
	}
	f.Path = path
	return f, nil
}

// Source yields a value for a key, or false when it has none.
type Source interface {
	Lookup(key string) (string, bool)
	String() string
}

// Lookup implements Source. Empty values count as unset.
func (f *File) Lookup(key string) (string, bool) {
	v, ok := f.Values[key]
	return v, ok && v != ""
}

func (f *File) String() string { return "env file " + f.Path }

// Environ is the process environment as a Source.
type Environ struct{}

// Lookup implements Source. Empty values count as unset.
func (Environ) Lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	return v, ok && v != ""
}

func (Environ) String() string { return "process environment" }

// Chain consults its sources in order.
type Chain []Source

// Lookup returns the first value found for key.
func (c Chain) Lookup(key string) (string, bool) {
	v, _, ok := c.LookupFrom(key)
	return v, ok
}

func (c Chain) String() string {
	names := make([]string, len(c))
	for i, s := range c {
		names[i] = s.String()
	}
	return strings.Join(names, ", ")
}

// Members returns the individual sources behind s, flattening nested chains.
func Members(s Source) []Source {
	c, ok := s.(Chain)
	if !ok {
		if s == nil {
			return nil
		}
		return []Source{s}
	}
	var out []Source
	for _, m := range c {
		out = append(out, Members(m)...)
	}
	return out
}

// LookupFrom is Lookup that also reports which source supplied the value.
func (c Chain) LookupFrom(key string) (string, Source, bool) {
	for _, s := range c {
		if v, ok := s.Lookup(key); ok {
			return v, s, true
		}
	}
	return "", nil, false
}

// Resolve builds the lookup chain: the explicit env file when given
// (which must exist) or else the default env file (when present), followed
// by the process environment.
func Resolve(explicit, defaultPath string) (Chain, error) {
	var chain Chain
	switch {
	case explicit != "":
		f, err := Read(explicit)
		if err != nil {
			return nil, errors.Wrap(err, "reading env file")
		}
		chain = append(chain, f)
	case defaultPath != "":
		f, err := Read(defaultPath)
		if err == nil {
			chain = append(chain, f)
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrap(err, "reading default env file")
		}
	}
	return append(chain, Environ{}), nil
}
