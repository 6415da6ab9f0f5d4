// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vk/provisiongrid/internal/backend"
)

// Call is one recorded backend invocation.
type Call struct {
	Op     backend.Op
	Node   string
	Type   string
	Inputs map[string]any
	ID     string
	// Start and End are read from the recorder's clock.
	Start time.Time
	End   time.Time
}

// RecordingBackend is an in-memory backend that records every call in order.
// Create echoes the inputs back as outputs plus an "id" and any per-node
// outputs configured in Outputs.
type RecordingBackend struct {
	// Clock timestamps calls. Defaults to wall time.
	Clock interface{ Now() time.Time }
	// Outputs adds computed attributes for a node id string.
	Outputs map[string]map[string]any
	// Fail makes Create or Delete of a node id string return the error.
	Fail map[string]error
	// Hold, when set, is called during Create before it returns; tests use it
	// to block or to observe concurrency.
	Hold func(ctx context.Context, node string)

	mu    sync.Mutex
	calls []Call
}

// NewRecordingBackend creates an empty recorder.
func NewRecordingBackend() *RecordingBackend {
	return &RecordingBackend{
		Outputs: make(map[string]map[string]any),
		Fail:    make(map[string]error),
	}
}

func (r *RecordingBackend) now() time.Time {
	if r.Clock != nil {
		return r.Clock.Now()
	}
	return time.Now()
}

// Create implements backend.Backend.
func (r *RecordingBackend) Create(ctx context.Context, resourceType string, inputs map[string]any) (map[string]any, error) {
	id, _ := backend.NodeFromContext(ctx)
	call := Call{Op: backend.OpCreate, Node: id.String(), Type: resourceType, Inputs: inputs, Start: r.now()}

	r.mu.Lock()
	idx := len(r.calls)
	r.calls = append(r.calls, call)
	r.mu.Unlock()

	if r.Hold != nil {
		r.Hold(ctx, call.Node)
	}

	end := r.now()
	r.mu.Lock()
	r.calls[idx].End = end
	err := r.Fail[call.Node]
	extra := r.Outputs[call.Node]
	r.mu.Unlock()

	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(inputs)+len(extra)+1)
	for k, v := range inputs {
		out[k] = v
	}
	out[backend.IDAttribute] = fmt.Sprintf("%s/%s", resourceType, id.Name)
	for k, v := range extra {
		out[k] = v
	}
	return out, nil
}

// Delete implements backend.Backend.
func (r *RecordingBackend) Delete(ctx context.Context, resourceType string, resourceID string) error {
	id, _ := backend.NodeFromContext(ctx)
	now := r.now()
	r.record(Call{Op: backend.OpDelete, Node: id.String(), Type: resourceType, ID: resourceID, Start: now, End: now})

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Fail[id.String()]
}

func (r *RecordingBackend) record(c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

// Calls returns a copy of all recorded calls in the order they started.
func (r *RecordingBackend) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Nodes returns the node ids of the recorded calls for op, in call order.
func (r *RecordingBackend) Nodes(op backend.Op) []string {
	var ids []string
	for _, c := range r.Calls() {
		if c.Op == op {
			ids = append(ids, c.Node)
		}
	}
	return ids
}

// Call returns the first recorded call for op on node.
func (r *RecordingBackend) Call(op backend.Op, node string) (Call, bool) {
	for _, c := range r.Calls() {
		if c.Op == op && c.Node == node {
			return c, true
		}
	}
	return Call{}, false
}
