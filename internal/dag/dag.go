// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package dag

import (
	"fmt"
	"sort"

	"github.com/vk/provisiongrid/internal/nodeid"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[nodeid.ID]*vertex),
	}
}

// AddNode adds a new node with the given ID to the graph. It reports false,
// and changes nothing, if the node already exists.
func (g *Graph) AddNode(id nodeid.ID) bool {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return false
	}

	g.nodes[id] = &vertex{
		id:     id,
		index:  len(g.order),
		depSet: make(map[nodeid.ID]struct{}),
	}
	g.order = append(g.order, id)
	return true
}

// HasNode reports whether id is part of the graph.
func (g *Graph) HasNode(id nodeid.ID) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// AddEdge records that `toID` depends on `fromID`. Adding an existing edge
// is a no-op. A self edge is allowed: it is a one-node cycle and is left for
// the scheduler to report.
func (g *Graph) AddEdge(fromID, toID nodeid.ID) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}

	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	if _, exists := toNode.depSet[fromID]; exists {
		return nil
	}
	toNode.depSet[fromID] = struct{}{}
	toNode.deps = append(toNode.deps, fromID)
	fromNode.dependents = append(fromNode.dependents, toID)

	return nil
}

// Nodes returns every node id in insertion order.
func (g *Graph) Nodes() []nodeid.ID {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return append([]nodeid.ID(nil), g.order...)
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.order)
}

// Dependencies returns the ids the given node depends on, sorted by the
// insertion order of those nodes.
func (g *Graph) Dependencies(id nodeid.ID) ([]nodeid.ID, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return g.sorted(n.deps), nil
}

// Dependents returns the ids that depend on the given node, sorted by the
// insertion order of those nodes.
func (g *Graph) Dependents(id nodeid.ID) ([]nodeid.ID, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return g.sorted(n.dependents), nil
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	count := 0
	for _, n := range g.nodes {
		count += len(n.deps)
	}
	return count
}

// sorted copies ids and orders them by insertion index. Callers hold the lock.
func (g *Graph) sorted(ids []nodeid.ID) []nodeid.ID {
	out := append([]nodeid.ID(nil), ids...)
	sort.SliceStable(out, func(i, j int) bool {
		return g.nodes[out[i]].index < g.nodes[out[j]].index
	})
	return out
}
