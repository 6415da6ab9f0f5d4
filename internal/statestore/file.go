// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package statestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/vk/provisiongrid/internal/ctxlog"
)

// ErrNotFound is returned by Load when no state has been saved yet.
var ErrNotFound = errors.New("state not found")

// File stores a State as a YAML document at Path.
type File struct {
	Path string
}

// NewFile returns a store writing to path.
func NewFile(path string) *File {
	return &File{Path: path}
}

// Load reads the saved state.
func (f *File) Load(ctx context.Context) (*State, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("State: Loading.", "path", f.Path)

	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w at %s", ErrNotFound, f.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var s State
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", f.Path, err)
	}
	logger.Debug("State: Loaded.", "run_id", s.RunID, "nodes", len(s.Nodes))
	return &s, nil
}

// Save writes s, replacing any previous state. The file is written to a
// temporary sibling first and renamed into place.
func (f *File) Save(ctx context.Context, s *State) error {
	raw, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".state-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temporary state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	ctxlog.FromContext(ctx).Debug("State: Saved.", "path", f.Path, "run_id", s.RunID, "nodes", len(s.Nodes))
	return nil
}
