// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package builder

import (
	"context"
	"fmt"

	"github.com/vk/provisiongrid/internal/ctxlog"
	"github.com/vk/provisiongrid/internal/graph"
	"github.com/vk/provisiongrid/internal/inmemorystore"
	"github.com/vk/provisiongrid/internal/node"
	"github.com/vk/provisiongrid/internal/nodeid"
	"github.com/vk/provisiongrid/internal/nodestore"
)

// dependsOnAttribute names explicit dependencies in UnknownReferenceError.
const dependsOnAttribute = "depends_on"

// Option configures Build.
type Option func(*options)

type options struct {
	store nodestore.Store
}

// WithStore makes the graph keep node state in s instead of a fresh
// in-memory store.
func WithStore(s nodestore.Store) Option {
	return func(o *options) { o.store = s }
}

// Build constructs a frozen dependency graph from decls. Declaration order is
// preserved and becomes the tie-breaker for every later ordering.
func Build(ctx context.Context, decls []node.Declaration, opts ...Option) (*graph.Graph, error) {
	ctx = ctxlog.Ensure(ctx, nil)
	logger := ctxlog.FromContext(ctx)
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.store == nil {
		o.store = inmemorystore.New()
	}

	logger.Debug("Build: Starting graph construction.", "declarations", len(decls))
	g := graph.New(o.store)

	if err := createNodes(ctx, g, decls); err != nil {
		return nil, err
	}
	logger.Debug("Build: Node creation complete.", "node_count", g.Len())

	if err := linkNodes(ctx, g); err != nil {
		return nil, err
	}
	logger.Debug("Build: Node linking complete.", "edge_count", g.EdgeCount())

	g.Freeze()
	logger.Debug("Build: Graph construction successful.")
	return g, nil
}

func createNodes(ctx context.Context, g *graph.Graph, decls []node.Declaration) error {
	for i, decl := range decls {
		if decl.ID.IsZero() {
			return fmt.Errorf("declaration %d has no id", i)
		}
		n, added, err := g.Add(ctx, decl)
		if err != nil {
			return fmt.Errorf("error adding node %s: %w", decl.ID, err)
		}
		if !added {
			return &DuplicateNodeIDError{ID: decl.ID, First: n.Index, Second: i}
		}
	}
	return nil
}

// linkNodes adds implicit edges from input references, then explicit ones
// from depends_on, for every node in declaration order.
func linkNodes(ctx context.Context, g *graph.Graph) error {
	logger := ctxlog.FromContext(ctx)
	for _, n := range g.Nodes() {
		for _, name := range node.SortedInputNames(n.Inputs) {
			for _, ref := range n.Inputs[name].References() {
				if err := link(g, ref.Node, n.ID(), name); err != nil {
					return err
				}
				logger.Debug("Build: Linked implicit dependency.", "from", ref.Node, "to", n.ID(), "attribute", name)
			}
		}
		for _, dep := range n.DependsOn {
			if err := link(g, dep, n.ID(), dependsOnAttribute); err != nil {
				return err
			}
			logger.Debug("Build: Linked explicit dependency.", "from", dep, "to", n.ID())
		}
	}
	return nil
}

func link(g *graph.Graph, from, to nodeid.ID, attribute string) error {
	if _, ok := g.Node(from); !ok {
		return &UnknownReferenceError{From: to, To: from, Attribute: attribute}
	}
	if err := g.Link(from, to); err != nil {
		return fmt.Errorf("error linking %s -> %s: %w", from, to, err)
	}
	return nil
}
