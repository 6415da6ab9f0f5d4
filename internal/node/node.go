// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package node

import (
	"github.com/vk/provisiongrid/internal/gate"
	"github.com/vk/provisiongrid/internal/nodeid"
)

// Declaration is one entry of the ordered declaration list handed to the
// graph builder.
type Declaration struct {
	ID        nodeid.ID
	Kind      Kind
	Inputs    map[string]Input
	DependsOn []nodeid.ID
	// Gate configures KindGate nodes and is ignored for every other kind.
	Gate *gate.Spec
}

// Node is a vertex of a built graph. It is immutable once the graph is
// built; its state and outputs live in the graph's state table.
type Node struct {
	Declaration
	// Index is the position of the declaration in the input list and is the
	// tie-breaker for every deterministic ordering.
	Index int
}

// ID returns the node's identifier.
func (n *Node) ID() nodeid.ID {
	return n.Declaration.ID
}

// References returns every reference used by the node's inputs, ordered by
// input name and deduplicated.
func (d *Declaration) References() []Reference {
	var refs []Reference
	seen := make(map[Reference]struct{})
	for _, name := range SortedInputNames(d.Inputs) {
		for _, ref := range d.Inputs[name].References() {
			if _, ok := seen[ref]; ok {
				continue
			}
			seen[ref] = struct{}{}
			refs = append(refs, ref)
		}
	}
	return refs
}

// Upstream returns the distinct nodes this declaration waits for: referenced
// nodes first, then explicit dependencies, each in first-seen order.
func (d *Declaration) Upstream() []nodeid.ID {
	var ids []nodeid.ID
	seen := make(map[nodeid.ID]struct{})
	add := func(id nodeid.ID) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, ref := range d.References() {
		add(ref.Node)
	}
	for _, id := range d.DependsOn {
		add(id)
	}
	return ids
}
