// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package events publishes run progress to sinks outside the process.
package events

import (
	"context"
	"time"

	"github.com/vk/provisiongrid/internal/ctxlog"
	"github.com/vk/provisiongrid/internal/executor"
)

// Payload is the wire form of an executor.Event.
type Payload struct {
	RunID string    `json:"run_id"`
	Node  string    `json:"node"`
	Kind  string    `json:"kind"`
	State string    `json:"state"`
	Error string    `json:"error,omitempty"`
	Time  time.Time `json:"time"`
}

// NewPayload converts ev to its wire form.
func NewPayload(ev executor.Event) Payload {
	p := Payload{
		RunID: ev.RunID,
		Node:  ev.Node.String(),
		Kind:  ev.Kind.String(),
		State: ev.State.String(),
		Time:  ev.Time.UTC(),
	}
	if ev.Err != nil {
		p.Error = ev.Err.Error()
	}
	return p
}

// Log is an Observer that traces every event at debug level.
type Log struct{}

// Observe implements executor.Observer.
func (Log) Observe(ctx context.Context, ev executor.Event) {
	attrs := []any{"node", ev.Node.String(), "kind", ev.Kind.String(), "state", ev.State.String()}
	if ev.Err != nil {
		attrs = append(attrs, "error", ev.Err)
	}
	ctxlog.FromContext(ctx).Debug("Events: Node state changed.", attrs...)
}

// Multi fans every event out to each observer in turn. Nil observers are
// skipped.
func Multi(observers ...executor.Observer) executor.Observer {
	var list []executor.Observer
	for _, o := range observers {
		if o != nil {
			list = append(list, o)
		}
	}
	return executor.ObserverFunc(func(ctx context.Context, ev executor.Event) {
		for _, o := range list {
			o.Observe(ctx, ev)
		}
	})
}
