// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package nodestore defines the node state table: the mutable execution
// state (status, outputs, errors) of every node in a graph, kept apart from
// the graph's immutable topology.
//
// # State Transitions
//
// Status changes go through Transition, which only accepts the edges of the
// node state machine (see node.CanTransition). There is no way to set a
// status directly, so no caller can move a node backwards or skip a step.
package nodestore

import (
	"context"
	"errors"

	"github.com/vk/provisiongrid/internal/node"
	"github.com/vk/provisiongrid/internal/nodeid"
)

// ErrUnknownNode is returned for ids that were never registered with Init.
var ErrUnknownNode = errors.New("unknown node")

// Store holds per-node execution state. Implementations must be safe for
// concurrent use.
type Store interface {
	// Init registers a node in StatePending. Registering twice is an error.
	Init(ctx context.Context, id nodeid.ID) error
	// Transition atomically moves a node from its current status to `to` and
	// returns the status it left.
	Transition(ctx context.Context, id nodeid.ID, to node.State) (node.State, error)
	// GetStatus returns the current status.
	GetStatus(ctx context.Context, id nodeid.ID) (node.State, error)

	// SetOutput records the outputs of a completed node.
	SetOutput(ctx context.Context, id nodeid.ID, outputs map[string]any) error
	// GetOutput returns the recorded outputs and whether any were recorded.
	GetOutput(ctx context.Context, id nodeid.ID) (map[string]any, bool, error)

	// SetError records why a node failed or was never attempted.
	SetError(ctx context.Context, id nodeid.ID, nodeErr error) error
	// GetError returns the recorded error, or nil.
	GetError(ctx context.Context, id nodeid.ID) (error, error)
}
