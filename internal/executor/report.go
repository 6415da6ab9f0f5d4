// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package executor

import (
	"errors"
	"fmt"
	"time"

	"github.com/vk/provisiongrid/internal/graph"
	"github.com/vk/provisiongrid/internal/node"
	"github.com/vk/provisiongrid/internal/nodeid"
)

// NodeError attributes a failure to a node.
type NodeError struct {
	Node  nodeid.ID
	State node.State
	Err   error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Node, e.State, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// Report is the terminal snapshot of a run.
type Report struct {
	RunID string
	// Order is the creation order the run dispatched against.
	Order []nodeid.ID
	// Nodes holds every node in declaration order.
	Nodes []graph.NodeStatus
	// Outputs holds the named outputs whose source node completed.
	Outputs map[string]any
	// Cancelled is set when the run context ended before every node settled.
	Cancelled bool
	// Aborted is set when fail-fast stopped dispatching.
	Aborted  bool
	Started  time.Time
	Duration time.Duration
}

func (r *Report) filter(keep func(node.State) bool) []nodeid.ID {
	var ids []nodeid.ID
	for _, n := range r.Nodes {
		if keep(n.State) {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// Complete lists the nodes that completed.
func (r *Report) Complete() []nodeid.ID {
	return r.filter(func(s node.State) bool { return s == node.StateComplete })
}

// Failed lists the nodes whose own work failed.
func (r *Report) Failed() []nodeid.ID {
	return r.filter(func(s node.State) bool { return s == node.StateFailed })
}

// DependencyFailed lists the nodes skipped because an upstream node failed.
func (r *Report) DependencyFailed() []nodeid.ID {
	return r.filter(func(s node.State) bool { return s == node.StateDependencyFailed })
}

// NotStarted lists the nodes that never ran, which only happens when the run
// was cancelled or aborted.
func (r *Report) NotStarted() []nodeid.ID {
	return r.filter(func(s node.State) bool { return s == node.StatePending || s == node.StateReady })
}

// Status returns the recorded status of id.
func (r *Report) Status(id nodeid.ID) (graph.NodeStatus, bool) {
	for _, n := range r.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return graph.NodeStatus{}, false
}

// Succeeded reports whether every node completed.
func (r *Report) Succeeded() bool {
	return len(r.Complete()) == len(r.Nodes)
}

// Err joins the failure of every Failed and DependencyFailed node, in
// declaration order. It returns nil when there are none.
func (r *Report) Err() error {
	var errs []error
	for _, n := range r.Nodes {
		if n.State != node.StateFailed && n.State != node.StateDependencyFailed {
			continue
		}
		errs = append(errs, &NodeError{Node: n.ID, State: n.State, Err: n.Err})
	}
	return errors.Join(errs...)
}
