// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/vk/provisiongrid/internal/backend"
	"github.com/vk/provisiongrid/internal/builder"
	"github.com/vk/provisiongrid/internal/config"
	"github.com/vk/provisiongrid/internal/ctxlog"
	"github.com/vk/provisiongrid/internal/events"
	"github.com/vk/provisiongrid/internal/executor"
	"github.com/vk/provisiongrid/internal/graph"
	"github.com/vk/provisiongrid/internal/statestore"
)

// ErrCancelled is returned when a run stopped because its context ended.
var ErrCancelled = errors.New("run cancelled")

// Run loads the grid and plans, applies or destroys it according to the
// configured mode.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "mode", a.config.Mode)

	a.startHealthcheckServer(ctx)
	defer a.closeHealthcheckServer(ctx)

	model, err := a.load(ctx)
	if err != nil {
		return err
	}

	g, err := builder.Build(ctx, model.Declarations)
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}
	a.logger.Debug("Dependency graph built.", "node_count", g.Len(), "edge_count", g.EdgeCount())

	switch a.config.Mode {
	case ModePlan:
		return a.plan(g)
	case ModeDestroy:
		return a.destroy(ctx, g)
	default:
		return a.apply(ctx, g, model)
	}
}

func (a *App) load(ctx context.Context) (*config.Model, error) {
	model, err := a.loader.Load(ctx, a.config.GridPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	a.logger.Debug("Configuration loaded.", "files", len(model.Files), "declarations", len(model.Declarations), "outputs", len(model.Outputs))
	return model, nil
}

// backend wraps the registry in the configured rate limit and retry
// policy. Retries go through the limiter too.
func (a *App) backend() backend.Backend {
	var b backend.Backend = a.registry
	if a.config.DispatchRate > 0 {
		b = backend.WithRateLimit(b, rate.NewLimiter(rate.Limit(a.config.DispatchRate), 1))
	}
	if a.config.BackendRetries > 0 {
		b = backend.WithRetry(b, backend.RetryOptions{MaxRetries: a.config.BackendRetries})
	}
	return b
}

func (a *App) newExecutor(ctx context.Context) (*executor.Executor, func(), error) {
	tracer, shutdown, err := a.setupTracing()
	if err != nil {
		return nil, nil, err
	}

	observers := []executor.Observer{events.Log{}}
	var sink *events.SocketIO
	if a.config.EventsURL != "" {
		sink, err = events.DialSocketIO(ctx, a.config.EventsURL, events.SocketIOOptions{})
		if err != nil {
			a.logger.Warn("⚠️ Events sink unavailable, continuing without it.", "url", a.config.EventsURL, "error", err)
		} else {
			observers = append(observers, sink)
		}
	}

	exec := executor.New(a.backend(),
		executor.WithWorkers(a.config.Workers),
		executor.WithFailFast(a.config.FailFast),
		executor.WithTracer(tracer),
		executor.WithMetrics(a.runMetrics),
		executor.WithObserver(events.Multi(observers...)),
	)
	cleanup := func() {
		if sink != nil {
			sink.Close()
		}
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			a.logger.Warn("⚠️ Failed to flush traces.", "error", err)
		}
	}
	return exec, cleanup, nil
}

func (a *App) plan(g *graph.Graph) error {
	if err := writePlan(a.outW, g); err != nil {
		return fmt.Errorf("failed to plan: %w", err)
	}
	return nil
}

func (a *App) apply(ctx context.Context, g *graph.Graph, model *config.Model) error {
	exec, cleanup, err := a.newExecutor(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	// A report comes back with an error only when a handler panicked; what
	// was created is still recorded.
	report, runErr := exec.Run(ctx, g, model.Outputs)
	if report == nil {
		return fmt.Errorf("execution failed: %w", runErr)
	}

	store := statestore.NewFile(a.config.StatePath)
	if err := store.Save(ctx, statestore.FromSnapshot(report.RunID, report.Nodes, a.now())); err != nil {
		return err
	}
	if err := writeOutputs(a.outW, a.config.OutputFormat, report.Outputs); err != nil {
		return err
	}

	switch {
	case runErr != nil:
		return fmt.Errorf("execution failed: %w", runErr)
	case report.Cancelled:
		return ErrCancelled
	case !report.Succeeded():
		return fmt.Errorf("provisioning finished with failures: %w", report.Err())
	}
	a.logger.Info("✅ All resources provisioned.", "run_id", report.RunID, "duration", report.Duration)
	return nil
}

func (a *App) destroy(ctx context.Context, g *graph.Graph) error {
	store := statestore.NewFile(a.config.StatePath)
	state, err := store.Load(ctx)
	if errors.Is(err, statestore.ErrNotFound) {
		a.logger.Warn("⚠️ No state found, nothing to destroy.", "path", a.config.StatePath)
		return nil
	}
	if err != nil {
		return err
	}

	exec, cleanup, err := a.newExecutor(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	live := state.Live()
	a.logger.Debug("Destroying recorded resources.", "run_id", state.RunID, "live", len(live))
	report, err := exec.Teardown(ctx, g, live)
	if err != nil {
		return fmt.Errorf("teardown failed: %w", err)
	}

	keep := report.Retained
	for id := range live {
		if _, ok := g.Node(id); !ok {
			a.logger.Warn("⚠️ Recorded resource is no longer declared, keeping it in state.", "node", id.String())
			keep = append(keep, id)
		}
	}
	if err := store.Save(ctx, state.Retain(keep)); err != nil {
		return err
	}

	switch {
	case report.Cancelled:
		return ErrCancelled
	case len(report.Failures) > 0:
		return fmt.Errorf("teardown finished with failures: %w", report.Err())
	}
	a.logger.Info("🗑️ All recorded resources deleted.", "deleted", len(report.Deleted))
	return nil
}
