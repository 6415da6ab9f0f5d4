// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package executor

import (
	"context"
	"time"

	"github.com/vk/provisiongrid/internal/node"
	"github.com/vk/provisiongrid/internal/nodeid"
)

// Event describes one node state change.
type Event struct {
	RunID string
	Node  nodeid.ID
	Kind  node.Kind
	State node.State
	Err   error
	Time  time.Time
}

// Observer is notified of node state changes. Calls come from the controller
// goroutine, one at a time, so implementations should not block for long.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, ev Event)

// Observe calls f(ctx, ev).
func (f ObserverFunc) Observe(ctx context.Context, ev Event) {
	f(ctx, ev)
}
