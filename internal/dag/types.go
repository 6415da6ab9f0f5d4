// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package dag

import (
	"sync"

	"github.com/vk/provisiongrid/internal/nodeid"
)

// Graph is a collection of nodes and their dependencies.
// All operations on the graph are concurrency-safe.
type Graph struct {
	// mutex protects the nodes map during concurrent access.
	mutex sync.RWMutex
	// nodes stores all nodes in the graph, keyed by their unique ID.
	nodes map[nodeid.ID]*vertex
	// order lists node ids in insertion order.
	order []nodeid.ID
}

// vertex is un-exported to enforce interaction with the graph via ids.
type vertex struct {
	id    nodeid.ID
	index int
	// deps holds the nodes this node depends on (predecessors), in edge order.
	deps []nodeid.ID
	// dependents holds the nodes that depend on this node (successors), in edge order.
	dependents []nodeid.ID
	depSet     map[nodeid.ID]struct{}
}
