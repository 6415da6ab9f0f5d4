// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package statestore persists what a run created, so a later destroy can tear
// down exactly those resources.
package statestore

import (
	"time"

	"github.com/vk/provisiongrid/internal/graph"
	"github.com/vk/provisiongrid/internal/node"
	"github.com/vk/provisiongrid/internal/nodeid"
)

// State is the persisted record of one run.
type State struct {
	RunID   string      `yaml:"run_id"`
	SavedAt time.Time   `yaml:"saved_at"`
	Nodes   []NodeState `yaml:"nodes"`
}

// NodeState records one node's final state and, when it completed, its
// outputs.
type NodeState struct {
	ID      nodeid.ID      `yaml:"id"`
	Kind    string         `yaml:"kind"`
	State   node.State     `yaml:"state"`
	Outputs map[string]any `yaml:"outputs,omitempty"`
	Error   string         `yaml:"error,omitempty"`
}

// FromSnapshot builds a State from the node statuses of a finished run.
func FromSnapshot(runID string, nodes []graph.NodeStatus, now time.Time) *State {
	s := &State{RunID: runID, SavedAt: now.UTC(), Nodes: make([]NodeState, 0, len(nodes))}
	for _, n := range nodes {
		ns := NodeState{ID: n.ID, Kind: n.Kind.String(), State: n.State}
		if n.State == node.StateComplete {
			ns.Outputs = n.Outputs
		}
		if n.Err != nil {
			ns.Error = n.Err.Error()
		}
		s.Nodes = append(s.Nodes, ns)
	}
	return s
}

// Live returns the outputs of every node recorded as complete.
func (s *State) Live() map[nodeid.ID]map[string]any {
	live := make(map[nodeid.ID]map[string]any)
	for _, n := range s.Nodes {
		if n.State != node.StateComplete {
			continue
		}
		outputs := n.Outputs
		if outputs == nil {
			outputs = map[string]any{}
		}
		live[n.ID] = outputs
	}
	return live
}

// Retain returns a copy of s that keeps only the given nodes, in their
// original order.
func (s *State) Retain(ids []nodeid.ID) *State {
	keep := make(map[nodeid.ID]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	out := &State{RunID: s.RunID, SavedAt: s.SavedAt}
	for _, n := range s.Nodes {
		if keep[n.ID] {
			out.Nodes = append(out.Nodes, n)
		}
	}
	return out
}

// Empty reports whether no node in s is live.
func (s *State) Empty() bool {
	return len(s.Live()) == 0
}
