// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vk/provisiongrid/internal/graph"
	"github.com/vk/provisiongrid/internal/scheduler"
)

// writeOutputs prints the named outputs as a JSON or YAML document.
func writeOutputs(w io.Writer, format string, outputs map[string]any) error {
	var (
		raw []byte
		err error
	)
	switch format {
	case "yaml":
		raw, err = yaml.Marshal(outputs)
	default:
		raw, err = json.MarshalIndent(outputs, "", "  ")
		raw = append(raw, '\n')
	}
	if err != nil {
		return fmt.Errorf("failed to encode outputs: %w", err)
	}
	_, err = w.Write(raw)
	return err
}

// writePlan prints the creation order grouped into levels. Nodes in one
// level have no dependencies on each other and may run concurrently.
func writePlan(w io.Writer, g *graph.Graph) error {
	levels, err := scheduler.Levels(g)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Plan: %d nodes in %d levels\n", g.Len(), len(levels))
	for i, level := range levels {
		names := make([]string, 0, len(level))
		for _, id := range level {
			n, _ := g.Node(id)
			names = append(names, fmt.Sprintf("%s (%s)", id, n.Kind))
		}
		fmt.Fprintf(w, "  level %d: %s\n", i, strings.Join(names, ", "))
	}
	return nil
}
