// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package config

import (
	"context"
	"fmt"

	"github.com/vk/provisiongrid/internal/node"
	"github.com/vk/provisiongrid/internal/nodeid"
)

// Model is the loaded grid.
type Model struct {
	// Declarations are kept in source order: files in lexical path order, then
	// blocks in the order they appear in each file.
	Declarations []node.Declaration
	Outputs      []node.Output
	// Files lists the files the model was read from.
	Files []string
}

// Loader reads a grid from files or directories.
type Loader interface {
	Load(ctx context.Context, paths ...string) (*Model, error)
}

// Validate checks that every output refers to a declared node.
func (m *Model) Validate() error {
	declared := make(map[nodeid.ID]struct{}, len(m.Declarations))
	for _, d := range m.Declarations {
		declared[d.ID] = struct{}{}
	}
	for _, out := range m.Outputs {
		if _, ok := declared[out.Ref.Node]; !ok {
			return fmt.Errorf("output %q refers to undeclared node %q", out.Name, out.Ref.Node)
		}
	}
	return nil
}
