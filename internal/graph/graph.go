// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vk/provisiongrid/internal/dag"
	"github.com/vk/provisiongrid/internal/node"
	"github.com/vk/provisiongrid/internal/nodeid"
	"github.com/vk/provisiongrid/internal/nodestore"
)

// ErrFrozen is returned when the topology is changed after Freeze.
var ErrFrozen = errors.New("graph topology is frozen")

// Graph is the stateful execution context of a single provisioning run.
type Graph struct {
	topology *dag.Graph
	nodes    map[nodeid.ID]*node.Node
	order    []*node.Node
	store    nodestore.Store
	frozen   bool

	// mu guards the binding tables below.
	mu sync.Mutex
	// bound holds, per consumer, the values substituted for its references.
	bound map[nodeid.ID]map[node.Reference]any
	// satisfied holds, per consumer, the upstream nodes already bound into it.
	satisfied map[nodeid.ID]map[nodeid.ID]struct{}
}

// New creates an empty graph whose state lives in store.
func New(store nodestore.Store) *Graph {
	return &Graph{
		topology:  dag.New(),
		nodes:     make(map[nodeid.ID]*node.Node),
		store:     store,
		bound:     make(map[nodeid.ID]map[node.Reference]any),
		satisfied: make(map[nodeid.ID]map[nodeid.ID]struct{}),
	}
}

// Add registers a declaration as a new Pending node. The second return value
// is false if a node with the same id already exists.
func (g *Graph) Add(ctx context.Context, decl node.Declaration) (*node.Node, bool, error) {
	if g.frozen {
		return nil, false, ErrFrozen
	}
	if _, exists := g.nodes[decl.ID]; exists {
		return g.nodes[decl.ID], false, nil
	}
	n := &node.Node{Declaration: decl, Index: len(g.order)}
	if err := g.store.Init(ctx, decl.ID); err != nil {
		return nil, false, err
	}
	g.topology.AddNode(decl.ID)
	g.nodes[decl.ID] = n
	g.order = append(g.order, n)
	return n, true, nil
}

// Link adds an edge: `to` depends on `from`.
func (g *Graph) Link(from, to nodeid.ID) error {
	if g.frozen {
		return ErrFrozen
	}
	return g.topology.AddEdge(from, to)
}

// Freeze makes the topology immutable.
func (g *Graph) Freeze() {
	g.frozen = true
}

// Node looks a node up by id.
func (g *Graph) Node(id nodeid.ID) (*node.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns every node in declaration order.
func (g *Graph) Nodes() []*node.Node {
	return append([]*node.Node(nil), g.order...)
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int {
	return g.topology.EdgeCount()
}

// DependenciesOf returns the nodes id depends on, in declaration order.
func (g *Graph) DependenciesOf(id nodeid.ID) ([]nodeid.ID, error) {
	return g.topology.Dependencies(id)
}

// DependentsOf returns the nodes that depend on id, in declaration order.
func (g *Graph) DependentsOf(id nodeid.ID) ([]nodeid.ID, error) {
	return g.topology.Dependents(id)
}

// Status returns the node's current state.
func (g *Graph) Status(ctx context.Context, id nodeid.ID) (node.State, error) {
	return g.store.GetStatus(ctx, id)
}

// Transition applies one state machine edge.
func (g *Graph) Transition(ctx context.Context, id nodeid.ID, to node.State) error {
	_, err := g.store.Transition(ctx, id, to)
	return err
}

// Complete records outputs and moves the node Running→Complete. Outputs are
// stored first so no reader sees a Complete node without them.
func (g *Graph) Complete(ctx context.Context, id nodeid.ID, outputs map[string]any) error {
	st, err := g.store.GetStatus(ctx, id)
	if err != nil {
		return err
	}
	if err := node.CheckTransition(st, node.StateComplete); err != nil {
		return fmt.Errorf("node %s: %w", id, err)
	}
	if err := g.store.SetOutput(ctx, id, outputs); err != nil {
		return err
	}
	_, err = g.store.Transition(ctx, id, node.StateComplete)
	return err
}

// Fail records the error and moves the node Running→Failed.
func (g *Graph) Fail(ctx context.Context, id nodeid.ID, cause error) error {
	if _, err := g.store.Transition(ctx, id, node.StateFailed); err != nil {
		return err
	}
	return g.store.SetError(ctx, id, cause)
}

// MarkDependencyFailed records the cause and moves a Pending node to
// DependencyFailed.
func (g *Graph) MarkDependencyFailed(ctx context.Context, id nodeid.ID, cause error) error {
	if _, err := g.store.Transition(ctx, id, node.StateDependencyFailed); err != nil {
		return err
	}
	return g.store.SetError(ctx, id, cause)
}

// Outputs returns the outputs of a Complete node.
func (g *Graph) Outputs(ctx context.Context, id nodeid.ID) (map[string]any, bool) {
	out, ok, err := g.store.GetOutput(ctx, id)
	if err != nil {
		return nil, false
	}
	return out, ok
}

// Err returns the recorded failure of a node, if any.
func (g *Graph) Err(ctx context.Context, id nodeid.ID) error {
	nodeErr, err := g.store.GetError(ctx, id)
	if err != nil {
		return err
	}
	return nodeErr
}

// Satisfy records that `producer` is done from the point of view of
// `consumer`, merging the values produced for consumer's references. It
// returns the number of upstream nodes consumer still waits for and whether
// this call changed anything. A repeated call for the same pair is a no-op.
func (g *Graph) Satisfy(consumer, producer nodeid.ID, values map[node.Reference]any) (int, bool, error) {
	deps, err := g.topology.Dependencies(consumer)
	if err != nil {
		return 0, false, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	done := g.satisfied[consumer]
	if done == nil {
		done = make(map[nodeid.ID]struct{})
		g.satisfied[consumer] = done
	}
	if _, seen := done[producer]; seen {
		return len(deps) - len(done), false, nil
	}
	done[producer] = struct{}{}

	b := g.bound[consumer]
	if b == nil {
		b = make(map[node.Reference]any)
		g.bound[consumer] = b
	}
	for ref, v := range values {
		b[ref] = v
	}
	return len(deps) - len(done), true, nil
}

// Bound returns a copy of the values bound into a consumer so far.
func (g *Graph) Bound(consumer nodeid.ID) map[node.Reference]any {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := make(map[node.Reference]any, len(g.bound[consumer]))
	for k, v := range g.bound[consumer] {
		cp[k] = v
	}
	return cp
}

// ResolvedInputs resolves a node's declared inputs against its bound values.
func (g *Graph) ResolvedInputs(id nodeid.ID) (map[string]any, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return node.Resolve(n.Inputs, g.Bound(id))
}
