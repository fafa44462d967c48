// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package train

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// MockCommandExecutor records invocations instead of running them.
type MockCommandExecutor struct {
	mu           sync.RWMutex
	commands     []MockCommand
	executeFunc  func(ctx context.Context, opts CommandOptions, name string, args ...string) error
	lookPathFunc func(file string) (string, error)
}

// MockCommand is one recorded invocation.
type MockCommand struct {
	Name  string
	Args  []string
	Dir   string
	Error error
}

func NewMockCommandExecutor() *MockCommandExecutor {
	return &MockCommandExecutor{}
}

// SetExecuteFunc overrides the default Execute behavior, which echoes the
// command line to the output writer and succeeds.
func (m *MockCommandExecutor) SetExecuteFunc(f func(ctx context.Context, opts CommandOptions, name string, args ...string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executeFunc = f
}

// SetLookPathFunc overrides the default LookPath behavior, which resolves
// every file under /usr/bin.
func (m *MockCommandExecutor) SetLookPathFunc(f func(file string) (string, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookPathFunc = f
}

func (m *MockCommandExecutor) Execute(ctx context.Context, opts CommandOptions, name string, args ...string) error {
	m.mu.RLock()
	f := m.executeFunc
	m.mu.RUnlock()
	var err error
	if f != nil {
		err = f(ctx, opts, name, args...)
	} else if opts.Output != nil {
		fmt.Fprintf(opts.Output, "mock output for: %s %s\n", name, strings.Join(args, " "))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, MockCommand{Name: name, Args: slices.Clone(args), Dir: opts.Dir, Error: err})
	return err
}

func (m *MockCommandExecutor) LookPath(file string) (string, error) {
	m.mu.RLock()
	f := m.lookPathFunc
	m.mu.RUnlock()
	if f != nil {
		return f(file)
	}
	return "/usr/bin/" + file, nil
}

// Commands returns the recorded invocations.
func (m *MockCommandExecutor) Commands() []MockCommand {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.commands)
}
