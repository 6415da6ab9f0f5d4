// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/provisiongrid/internal/config"
	"github.com/vk/provisiongrid/internal/ctxlog"
	"github.com/vk/provisiongrid/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

var rootSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "resource", LabelNames: []string{"type", "name"}},
		{Type: "gate", LabelNames: []string{"name"}},
		{Type: "value", LabelNames: []string{"name"}},
		{Type: "composite", LabelNames: []string{"name"}},
		{Type: "output", LabelNames: []string{"name"}},
	},
}

// Load parses every .hcl file under paths. Files are read in lexical path
// order and blocks in source order, which fixes the declaration order.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.CollectFiles(paths, ".hcl")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := &config.Model{Files: files}
	parser := hclparse.NewParser()
	outputNames := make(map[string]hcl.Range)

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		content, diags := hclFile.Body.Content(rootSchema)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, block := range content.Blocks {
			if block.Type == "output" {
				out, err := translateOutput(block)
				if err != nil {
					return nil, err
				}
				if prev, dup := outputNames[out.Name]; dup {
					return nil, fmt.Errorf("%s: output %q already declared at %s", block.DefRange, out.Name, prev)
				}
				outputNames[out.Name] = block.DefRange
				model.Outputs = append(model.Outputs, out)
				continue
			}
			decl, err := translateBlock(ctx, block)
			if err != nil {
				return nil, err
			}
			model.Declarations = append(model.Declarations, decl)
		}
	}

	logger.Debug("HCL loading complete.", "declarations", len(model.Declarations), "outputs", len(model.Outputs))
	return model, nil
}
