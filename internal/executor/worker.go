// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vk/provisiongrid/internal/backend"
	"github.com/vk/provisiongrid/internal/binder"
	"github.com/vk/provisiongrid/internal/ctxlog"
	"github.com/vk/provisiongrid/internal/gate"
	"github.com/vk/provisiongrid/internal/graph"
	"github.com/vk/provisiongrid/internal/node"
	"github.com/vk/provisiongrid/internal/nodeid"
)

// errGateInterrupted marks a gate whose wait ended because the run was
// cancelled. Such a gate is not a failure.
var errGateInterrupted = errors.New("gate interrupted")

// PanicError is the failure recorded for a node whose work panicked.
type PanicError struct {
	Node  nodeid.ID
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("node %s panicked: %v", e.Node, e.Value)
}

// worker runs nodes until jobs is closed. Backend calls run under workCtx,
// which outlives cancellation; gates wait under runCtx and stop early when
// the run is cancelled. A panicking node fails and the worker carries on; the
// panics are returned once jobs is drained.
func (e *Executor) worker(workCtx, runCtx context.Context, g *graph.Graph, jobs <-chan *node.Node, results chan<- result, workerID int) error {
	logger := ctxlog.FromContext(workCtx)
	logger.Debug("Worker started.", "workerID", workerID)

	var panics []error
	for n := range jobs {
		start := e.clock.Now()
		outputs, err := e.runRecovered(workCtx, runCtx, g, n)
		var pe *PanicError
		if errors.As(err, &pe) {
			panics = append(panics, err)
		}
		results <- result{
			id:  n.ID(),
			res: binder.Result{Outputs: outputs, Err: err},
			dur: e.clock.Now().Sub(start),
		}
	}
	logger.Debug("Worker finished.", "workerID", workerID, "panics", len(panics))
	return errors.Join(panics...)
}

func (e *Executor) runRecovered(workCtx, runCtx context.Context, g *graph.Graph, n *node.Node) (outputs map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			outputs = nil
			err = &PanicError{Node: n.ID(), Value: r, Stack: debug.Stack()}
			ctxlog.FromContext(workCtx).Error("🔥 Node panicked.", "node", n.ID().String(), "panic", r)
		}
	}()
	return e.runNode(workCtx, runCtx, g, n)
}

func (e *Executor) runNode(workCtx, runCtx context.Context, g *graph.Graph, n *node.Node) (map[string]any, error) {
	ctx, span := e.tracer.Start(workCtx, "provision "+n.ID().String(), trace.WithAttributes(
		attribute.String("node.id", n.ID().String()),
		attribute.String("node.kind", n.Kind.String()),
	))
	defer span.End()

	logger := ctxlog.FromContext(ctx).With("node", n.ID().String(), "kind", n.Kind.String())
	ctx = ctxlog.WithLogger(ctx, logger)

	outputs, err := e.dispatch(ctx, runCtx, g, n)
	if errors.Is(err, errGateInterrupted) {
		logger.Warn("🛑 Gate wait interrupted, node not started.")
		span.AddEvent("interrupted")
		return nil, err
	}
	if err != nil {
		logger.Error("❌ Node failed.", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	logger.Info("✅ Node complete.")
	return outputs, nil
}

func (e *Executor) dispatch(ctx, runCtx context.Context, g *graph.Graph, n *node.Node) (map[string]any, error) {
	logger := ctxlog.FromContext(ctx)

	inputs, err := g.ResolvedInputs(n.ID())
	if err != nil {
		return nil, err
	}

	switch n.Kind {
	case node.KindOperation:
		logger.Info("▶️ Creating resource.")
		logger.Debug("Resolved inputs.", "inputs", inputs)
		out, err := e.backend.Create(backend.WithNode(ctx, n.ID()), n.ID().Type, inputs)
		if err != nil {
			return nil, backend.Wrap(backend.OpCreate, n.ID().Type, err)
		}
		if out == nil {
			out = map[string]any{}
		}
		return out, nil

	case node.KindGate:
		spec := gate.Spec{}
		if n.Gate != nil {
			spec = *n.Gate
		}
		logger.Info("⏳ Waiting on gate.", "min_duration", spec.MinDuration, "polling", spec.Poller != nil)
		// The gate logs through the node logger but stops on run cancellation.
		gateCtx := ctxlog.WithLogger(trace.ContextWithSpan(runCtx, trace.SpanFromContext(ctx)), logger)
		if err := gate.Wait(gateCtx, spec, e.clock); err != nil {
			return nil, fmt.Errorf("%w: %w", errGateInterrupted, err)
		}
		return map[string]any{}, nil

	case node.KindValue, node.KindComposite:
		return inputs, nil
	}
	return nil, fmt.Errorf("unsupported node kind %s", n.Kind)
}
