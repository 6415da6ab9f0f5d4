// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package executor

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vk/provisiongrid/internal/backend"
	"github.com/vk/provisiongrid/internal/ctxlog"
	"github.com/vk/provisiongrid/internal/graph"
	"github.com/vk/provisiongrid/internal/node"
	"github.com/vk/provisiongrid/internal/nodeid"
	"github.com/vk/provisiongrid/internal/scheduler"
)

// TeardownReport is the outcome of a teardown.
type TeardownReport struct {
	// Deleted lists the nodes whose resources were deleted, in call order.
	Deleted []nodeid.ID
	// Retained lists live nodes that were left in place, either because their
	// delete failed or because a dependent of theirs is still live.
	Retained []nodeid.ID
	// Failures holds the delete error of each node whose own delete failed.
	Failures map[nodeid.ID]error
	// Cancelled is set when ctx ended before every node was visited.
	Cancelled bool
}

// Err joins the delete failures in teardown order.
func (r *TeardownReport) Err() error {
	var errs []error
	for _, id := range r.Retained {
		if err, ok := r.Failures[id]; ok {
			errs = append(errs, &NodeError{Node: id, State: node.StateFailed, Err: err})
		}
	}
	return errors.Join(errs...)
}

// Teardown deletes, in reverse creation order, every operation node of g that
// appears in live, which maps node ids to the outputs recorded when they were
// created. Deletes run one at a time so a node is only deleted after every
// node depending on it is gone. A node with a live dependent left behind is
// retained too.
func (e *Executor) Teardown(ctx context.Context, g *graph.Graph, live map[nodeid.ID]map[string]any) (*TeardownReport, error) {
	ctx = ctxlog.Ensure(ctx, nil)
	logger := ctxlog.FromContext(ctx)

	order, err := scheduler.TeardownOrder(g)
	if err != nil {
		return nil, err
	}
	logger.Info("🧹 Starting teardown.", "live", len(live))

	report := &TeardownReport{Failures: make(map[nodeid.ID]error)}
	retained := make(map[nodeid.ID]bool)

	for _, id := range order {
		n, _ := g.Node(id)
		blocker, err := liveDependent(g, id, retained)
		if err != nil {
			return nil, err
		}
		outputs, isLive := live[id]
		if n.Kind != node.KindOperation || !isLive {
			// Carry retention through gates and values to their own upstream.
			if !blocker.IsZero() {
				retained[id] = true
			}
			continue
		}

		retain := func() {
			retained[id] = true
			report.Retained = append(report.Retained, id)
		}
		switch {
		case ctx.Err() != nil:
			report.Cancelled = true
			retain()
		case !blocker.IsZero():
			logger.Warn("⚠️ Retaining resource, a dependent is still live.", "node", id.String(), "dependent", blocker.String())
			retain()
		default:
			if err := e.deleteNode(ctx, n, outputs); err != nil {
				logger.Error("❌ Delete failed, retaining resource.", "node", id.String(), "error", err)
				report.Failures[id] = err
				retain()
				continue
			}
			report.Deleted = append(report.Deleted, id)
		}
	}

	logger.Info("🏁 Teardown finished.", "deleted", len(report.Deleted), "retained", len(report.Retained))
	return report, nil
}

// liveDependent returns a retained node that depends on id, if any.
func liveDependent(g *graph.Graph, id nodeid.ID, retained map[nodeid.ID]bool) (nodeid.ID, error) {
	dependents, err := g.DependentsOf(id)
	if err != nil {
		return nodeid.ID{}, err
	}
	for _, dep := range dependents {
		if retained[dep] {
			return dep, nil
		}
	}
	return nodeid.ID{}, nil
}

func (e *Executor) deleteNode(ctx context.Context, n *node.Node, outputs map[string]any) error {
	resourceID := backend.ResourceID(n.ID(), outputs)
	ctx, span := e.tracer.Start(ctx, "delete "+n.ID().String(), trace.WithAttributes(
		attribute.String("node.id", n.ID().String()),
		attribute.String("resource.id", resourceID),
	))
	defer span.End()

	ctxlog.FromContext(ctx).Info("🗑️ Deleting resource.", "node", n.ID().String(), "resource_id", resourceID)
	err := e.backend.Delete(backend.WithNode(ctx, n.ID()), n.ID().Type, resourceID)
	e.metrics.deleted(err)
	if err != nil {
		err = backend.Wrap(backend.OpDelete, n.ID().Type, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
