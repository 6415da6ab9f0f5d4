// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package executor

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/vk/provisiongrid/internal/gate"
)

// DefaultWorkers bounds backend concurrency when no option is given.
const DefaultWorkers = 4

// Option configures an Executor.
type Option func(*Executor)

// WithWorkers sets the maximum number of nodes running at once. Values
// below 1 are treated as 1.
func WithWorkers(n int) Option {
	return func(e *Executor) {
		if n < 1 {
			n = 1
		}
		e.workers = n
	}
}

// WithFailFast stops dispatching new nodes after the first failure.
func WithFailFast(enabled bool) Option {
	return func(e *Executor) { e.failFast = enabled }
}

// WithClock sets the clock used by gates and event timestamps.
func WithClock(c gate.Clock) Option {
	return func(e *Executor) { e.clock = c }
}

// WithTracer records a span per node.
func WithTracer(t trace.Tracer) Option {
	return func(e *Executor) { e.tracer = t }
}

// WithMetrics records per-node counters and durations.
func WithMetrics(m *Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithObserver receives every node state change.
func WithObserver(o Observer) Option {
	return func(e *Executor) { e.observer = o }
}
