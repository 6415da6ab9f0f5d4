// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package graph

import (
	"context"

	"github.com/vk/provisiongrid/internal/node"
	"github.com/vk/provisiongrid/internal/nodeid"
)

// NodeStatus is a point-in-time view of one node.
type NodeStatus struct {
	ID      nodeid.ID
	Kind    node.Kind
	State   node.State
	Outputs map[string]any
	Err     error
}

// Snapshot returns the status of every node in declaration order.
func (g *Graph) Snapshot(ctx context.Context) []NodeStatus {
	out := make([]NodeStatus, 0, len(g.order))
	for _, n := range g.order {
		st, _ := g.Status(ctx, n.ID())
		outputs, _ := g.Outputs(ctx, n.ID())
		out = append(out, NodeStatus{
			ID:      n.ID(),
			Kind:    n.Kind,
			State:   st,
			Outputs: outputs,
			Err:     g.Err(ctx, n.ID()),
		})
	}
	return out
}
