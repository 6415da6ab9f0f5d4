// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the nodestore.Store interface.
//
// It uses sync.Map: the key space is fixed once the graph is built and each
// node's state is written by one worker at a time, which is the access
// pattern sync.Map is optimized for. Status changes use CompareAndSwap so a
// transition is checked and applied atomically.
package inmemorystore

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/provisiongrid/internal/node"
	"github.com/vk/provisiongrid/internal/nodeid"
	"github.com/vk/provisiongrid/internal/nodestore"
)

// Store is an in-memory implementation of nodestore.Store.
type Store struct {
	states  sync.Map // Key: nodeid.ID, Value: node.State
	outputs sync.Map // Key: nodeid.ID, Value: map[string]any
	errors  sync.Map // Key: nodeid.ID, Value: error
}

// New creates a new, empty in-memory node state store.
func New() *Store {
	return &Store{}
}

var _ nodestore.Store = (*Store)(nil)

// Init registers a node in StatePending.
func (s *Store) Init(ctx context.Context, id nodeid.ID) error {
	if _, loaded := s.states.LoadOrStore(id, node.StatePending); loaded {
		return fmt.Errorf("node %s already registered", id)
	}
	return nil
}

// Transition moves a node to `to` if the state machine allows it.
func (s *Store) Transition(ctx context.Context, id nodeid.ID, to node.State) (node.State, error) {
	for {
		cur, ok := s.states.Load(id)
		if !ok {
			return node.StatePending, fmt.Errorf("node %s: %w", id, nodestore.ErrUnknownNode)
		}
		from := cur.(node.State)
		if err := node.CheckTransition(from, to); err != nil {
			return from, fmt.Errorf("node %s: %w", id, err)
		}
		if s.states.CompareAndSwap(id, from, to) {
			return from, nil
		}
	}
}

// GetStatus retrieves the execution status of a specific node.
func (s *Store) GetStatus(ctx context.Context, id nodeid.ID) (node.State, error) {
	status, ok := s.states.Load(id)
	if !ok {
		return node.StatePending, fmt.Errorf("node %s: %w", id, nodestore.ErrUnknownNode)
	}
	return status.(node.State), nil
}

// SetOutput records the successful output of a node. The map is copied.
func (s *Store) SetOutput(ctx context.Context, id nodeid.ID, outputs map[string]any) error {
	if _, ok := s.states.Load(id); !ok {
		return fmt.Errorf("node %s: %w", id, nodestore.ErrUnknownNode)
	}
	cp := make(map[string]any, len(outputs))
	for k, v := range outputs {
		cp[k] = v
	}
	s.outputs.Store(id, cp)
	return nil
}

// GetOutput retrieves the recorded output of a completed node.
func (s *Store) GetOutput(ctx context.Context, id nodeid.ID) (map[string]any, bool, error) {
	output, ok := s.outputs.Load(id)
	if !ok {
		return nil, false, nil
	}
	return output.(map[string]any), true, nil
}

// SetError records the failure error of a node.
func (s *Store) SetError(ctx context.Context, id nodeid.ID, nodeErr error) error {
	if _, ok := s.states.Load(id); !ok {
		return fmt.Errorf("node %s: %w", id, nodestore.ErrUnknownNode)
	}
	s.errors.Store(id, nodeErr)
	return nil
}

// GetError retrieves the recorded error of a failed node.
func (s *Store) GetError(ctx context.Context, id nodeid.ID) (error, error) {
	err, ok := s.errors.Load(id)
	if !ok {
		return nil, nil // If not found, there is no error.
	}
	return err.(error), nil
}
