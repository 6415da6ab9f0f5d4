// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package executor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/vk/provisiongrid/internal/backend"
	"github.com/vk/provisiongrid/internal/binder"
	"github.com/vk/provisiongrid/internal/ctxlog"
	"github.com/vk/provisiongrid/internal/gate"
	"github.com/vk/provisiongrid/internal/graph"
	"github.com/vk/provisiongrid/internal/node"
	"github.com/vk/provisiongrid/internal/nodeid"
	"github.com/vk/provisiongrid/internal/scheduler"
)

const tracerName = "github.com/vk/provisiongrid/internal/executor"

// Executor runs graphs against a backend.
type Executor struct {
	backend  backend.Backend
	workers  int
	failFast bool
	clock    gate.Clock
	tracer   trace.Tracer
	metrics  *Metrics
	observer Observer
}

// New creates an executor that provisions through b.
func New(b backend.Backend, opts ...Option) *Executor {
	e := &Executor{
		backend: b,
		workers: DefaultWorkers,
		clock:   gate.RealClock(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// result is what a worker sends back for one node.
type result struct {
	id  nodeid.ID
	res binder.Result
	dur time.Duration
}

// Run provisions every node of g and returns the terminal snapshot. A cycle
// fails the run before any backend call. Node failures are reported in the
// Report, not as the returned error; cancellation of ctx likewise yields a
// report with Cancelled set. A handler that panics fails its node, and Run
// then returns the report together with an error wrapping each *PanicError.
func (e *Executor) Run(ctx context.Context, g *graph.Graph, outputs []node.Output) (*Report, error) {
	ctx = ctxlog.Ensure(ctx, nil)
	runID := uuid.NewString()
	logger := ctxlog.FromContext(ctx).With("run_id", runID)
	ctx = ctxlog.WithLogger(ctx, logger)
	started := e.clock.Now()

	order, err := scheduler.Order(g)
	if err != nil {
		return nil, err
	}
	logger.Info("🚀 Starting provisioning run.", "nodes", len(order), "workers", e.workers)

	position := make(map[nodeid.ID]int, len(order))
	for i, id := range order {
		position[id] = i
	}

	b := binder.New(g, binder.OnDependencyFailed(func(ctx context.Context, id nodeid.ID, cause error) {
		n, _ := g.Node(id)
		e.metrics.skipped(n.Kind)
		logger.Warn("⏭️ Skipping node, a dependency failed.", "node", id.String(), "error", cause)
		e.notify(ctx, runID, n, node.StateDependencyFailed, cause)
	}))

	ready := &readyQueue{position: position}
	seeded, err := b.Seed(ctx)
	if err != nil {
		return nil, fmt.Errorf("seeding ready nodes: %w", err)
	}
	ready.add(seeded...)

	// In-flight work must finish even after ctx is cancelled.
	workCtx := context.WithoutCancel(ctx)
	jobs := make(chan *node.Node)
	results := make(chan result, len(order))
	var workers errgroup.Group
	for i := 0; i < e.workers; i++ {
		workerID := i
		workers.Go(func() error {
			return e.worker(workCtx, ctx, g, jobs, results, workerID)
		})
	}

	var (
		inFlight  int
		stopped   bool
		cancelled bool
		aborted   bool
		runErr    error
		done      = ctx.Done()
	)
	for {
		if !stopped && ctx.Err() != nil {
			stopped, cancelled = true, true
			logger.Warn("🛑 Run cancelled, waiting for in-flight nodes.", "in_flight", inFlight)
		}
		for !stopped && inFlight < e.workers && ready.len() > 0 {
			id := ready.pop()
			if err := g.Transition(ctx, id, node.StateRunning); err != nil {
				runErr = err
				stopped = true
				break
			}
			n, _ := g.Node(id)
			e.notify(ctx, runID, n, node.StateRunning, nil)
			e.metrics.started()
			jobs <- n
			inFlight++
		}
		if inFlight == 0 {
			break
		}

		select {
		case r := <-results:
			inFlight--
			n, _ := g.Node(r.id)
			if errors.Is(r.res.Err, errGateInterrupted) {
				// The gate never finished waiting; it goes back to Ready and
				// its dependents stay Pending.
				if err := g.Transition(ctx, r.id, node.StateReady); err != nil {
					runErr = err
					stopped = true
					continue
				}
				e.metrics.interrupted()
				e.notify(ctx, runID, n, node.StateReady, nil)
				continue
			}
			unblocked, err := b.Bind(ctx, r.id, r.res)
			if err != nil {
				runErr = fmt.Errorf("binding %s: %w", r.id, err)
				stopped = true
				continue
			}
			state := node.StateComplete
			if r.res.Err != nil {
				state = node.StateFailed
			}
			e.metrics.finished(n.Kind, state, r.dur)
			e.notify(ctx, runID, n, state, r.res.Err)
			ready.add(unblocked...)

			if r.res.Err != nil && e.failFast && !stopped {
				stopped, aborted = true, true
				logger.Warn("🛑 Fail-fast enabled, no further nodes will be dispatched.", "node", r.id.String())
			}
		case <-done:
			done = nil
		}
	}
	close(jobs)
	workerErr := workers.Wait()
	if runErr != nil {
		return nil, runErr
	}

	report := &Report{
		RunID:     runID,
		Order:     order,
		Nodes:     g.Snapshot(ctx),
		Outputs:   namedOutputs(ctx, g, outputs),
		Cancelled: cancelled,
		Aborted:   aborted,
		Started:   started,
		Duration:  e.clock.Now().Sub(started),
	}
	logger.Info("🏁 Provisioning run finished.",
		"complete", len(report.Complete()),
		"failed", len(report.Failed()),
		"dependency_failed", len(report.DependencyFailed()),
		"not_started", len(report.NotStarted()),
		"cancelled", cancelled,
	)
	if workerErr != nil {
		return report, fmt.Errorf("worker: %w", workerErr)
	}
	return report, nil
}

// namedOutputs resolves the declared outputs. An output whose source node
// did not complete, or did not produce the key, is omitted.
func namedOutputs(ctx context.Context, g *graph.Graph, outputs []node.Output) map[string]any {
	named := make(map[string]any, len(outputs))
	for _, out := range outputs {
		st, err := g.Status(ctx, out.Ref.Node)
		if err != nil || st != node.StateComplete {
			continue
		}
		values, ok := g.Outputs(ctx, out.Ref.Node)
		if !ok {
			continue
		}
		if out.Ref.Key == "" {
			named[out.Name] = values
			continue
		}
		if v, ok := values[out.Ref.Key]; ok {
			named[out.Name] = v
		}
	}
	return named
}

func (e *Executor) notify(ctx context.Context, runID string, n *node.Node, state node.State, err error) {
	if e.observer == nil {
		return
	}
	e.observer.Observe(ctx, Event{
		RunID: runID,
		Node:  n.ID(),
		Kind:  n.Kind,
		State: state,
		Err:   err,
		Time:  e.clock.Now(),
	})
}

// readyQueue holds Ready nodes and yields them in creation order.
type readyQueue struct {
	ids      []nodeid.ID
	position map[nodeid.ID]int
}

func (q *readyQueue) add(ids ...nodeid.ID) {
	if len(ids) == 0 {
		return
	}
	q.ids = append(q.ids, ids...)
	sort.SliceStable(q.ids, func(i, j int) bool {
		return q.position[q.ids[i]] < q.position[q.ids[j]]
	})
}

func (q *readyQueue) pop() nodeid.ID {
	id := q.ids[0]
	q.ids = q.ids[1:]
	return id
}

func (q *readyQueue) len() int {
	return len(q.ids)
}
