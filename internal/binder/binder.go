// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package binder

import (
	"context"
	"fmt"

	"github.com/vk/provisiongrid/internal/ctxlog"
	"github.com/vk/provisiongrid/internal/graph"
	"github.com/vk/provisiongrid/internal/node"
	"github.com/vk/provisiongrid/internal/nodeid"
)

// Result is the outcome of running one node.
type Result struct {
	Outputs map[string]any
	Err     error
}

// DependencyFailedError is recorded on nodes that were never dispatched
// because an upstream node failed.
type DependencyFailedError struct {
	// Failed is the node whose own call failed.
	Failed nodeid.ID
	Cause  error
}

func (e *DependencyFailedError) Error() string {
	return fmt.Sprintf("dependency %s failed: %v", e.Failed, e.Cause)
}

func (e *DependencyFailedError) Unwrap() error {
	return e.Cause
}

// Binder applies node results to a graph. It is not safe for concurrent use;
// the run controller calls it from a single goroutine.
type Binder struct {
	g                  *graph.Graph
	onDependencyFailed func(ctx context.Context, id nodeid.ID, cause error)
}

// Option configures a Binder.
type Option func(*Binder)

// OnDependencyFailed registers fn to be called for every node marked
// DependencyFailed, in the order they are marked.
func OnDependencyFailed(fn func(ctx context.Context, id nodeid.ID, cause error)) Option {
	return func(b *Binder) { b.onDependencyFailed = fn }
}

// New creates a binder for g.
func New(g *graph.Graph, opts ...Option) *Binder {
	b := &Binder{g: g}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Seed moves every node without dependencies to Ready and returns them in
// declaration order.
func (b *Binder) Seed(ctx context.Context) ([]nodeid.ID, error) {
	var ready []nodeid.ID
	for _, n := range b.g.Nodes() {
		deps, err := b.g.DependenciesOf(n.ID())
		if err != nil {
			return nil, err
		}
		if len(deps) > 0 {
			continue
		}
		st, err := b.g.Status(ctx, n.ID())
		if err != nil {
			return nil, err
		}
		if st != node.StatePending {
			continue
		}
		if err := b.g.Transition(ctx, n.ID(), node.StateReady); err != nil {
			return nil, err
		}
		ready = append(ready, n.ID())
	}
	return ready, nil
}

// Bind records the result of node id and returns the dependents that became
// Ready because of it, in declaration order. Binding a node that is already
// Complete, Failed or DependencyFailed does nothing.
func (b *Binder) Bind(ctx context.Context, id nodeid.ID, res Result) ([]nodeid.ID, error) {
	logger := ctxlog.FromContext(ctx).With("node", id.String())

	st, err := b.g.Status(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.IsTerminal() {
		logger.Debug("Binder: Node already terminal, ignoring result.", "state", st)
		return nil, nil
	}

	if res.Err != nil {
		if err := b.g.Fail(ctx, id, res.Err); err != nil {
			return nil, err
		}
		logger.Debug("Binder: Node failed, propagating to dependents.", "error", res.Err)
		return nil, b.propagateFailure(ctx, id, res.Err)
	}

	if err := b.g.Complete(ctx, id, res.Outputs); err != nil {
		return nil, err
	}
	return b.release(ctx, id, res.Outputs)
}

// release binds the outputs of a completed producer into each dependent.
func (b *Binder) release(ctx context.Context, producer nodeid.ID, outputs map[string]any) ([]nodeid.ID, error) {
	logger := ctxlog.FromContext(ctx)
	dependents, err := b.g.DependentsOf(producer)
	if err != nil {
		return nil, err
	}

	var unblocked []nodeid.ID
	for _, dep := range dependents {
		st, err := b.g.Status(ctx, dep)
		if err != nil {
			return nil, err
		}
		if st != node.StatePending {
			continue
		}
		consumer, _ := b.g.Node(dep)
		values := valuesFor(consumer, producer, outputs)

		remaining, applied, err := b.g.Satisfy(dep, producer, values)
		if err != nil {
			return nil, err
		}
		logger.Debug("Binder: Bound outputs into dependent.", "producer", producer, "consumer", dep, "values", len(values), "remaining", remaining)
		if !applied || remaining > 0 {
			continue
		}
		if err := b.g.Transition(ctx, dep, node.StateReady); err != nil {
			return nil, err
		}
		unblocked = append(unblocked, dep)
	}
	return unblocked, nil
}

// valuesFor picks the producer outputs that consumer's inputs reference. A
// reference without a key binds the whole output map. Keys the producer did
// not output are left unbound and fail when the consumer resolves its inputs.
func valuesFor(consumer *node.Node, producer nodeid.ID, outputs map[string]any) map[node.Reference]any {
	values := make(map[node.Reference]any)
	for _, ref := range consumer.References() {
		if ref.Node != producer {
			continue
		}
		if ref.Key == "" {
			whole := make(map[string]any, len(outputs))
			for k, v := range outputs {
				whole[k] = v
			}
			values[ref] = whole
			continue
		}
		if v, ok := outputs[ref.Key]; ok {
			values[ref] = v
		}
	}
	return values
}

// propagateFailure marks every transitive Pending dependent of failed as
// DependencyFailed, breadth first in declaration order.
func (b *Binder) propagateFailure(ctx context.Context, failed nodeid.ID, cause error) error {
	logger := ctxlog.FromContext(ctx)
	queue := []nodeid.ID{failed}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		dependents, err := b.g.DependentsOf(cur)
		if err != nil {
			return err
		}
		for _, dep := range dependents {
			st, err := b.g.Status(ctx, dep)
			if err != nil {
				return err
			}
			if st != node.StatePending {
				continue
			}
			depErr := &DependencyFailedError{Failed: failed, Cause: cause}
			if err := b.g.MarkDependencyFailed(ctx, dep, depErr); err != nil {
				return err
			}
			logger.Debug("Binder: Marked dependency failed.", "node", dep, "failed", failed)
			if b.onDependencyFailed != nil {
				b.onDependencyFailed(ctx, dep, depErr)
			}
			queue = append(queue, dep)
		}
	}
	return nil
}
