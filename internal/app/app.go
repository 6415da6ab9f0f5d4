// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vk/provisiongrid/internal/config"
	"github.com/vk/provisiongrid/internal/executor"
	"github.com/vk/provisiongrid/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	loader     config.Loader
	modules    []registry.Module
	registry   *registry.Registry
	metrics    *prometheus.Registry
	runMetrics *executor.Metrics
	httpServer *http.Server
	now        func() time.Time
}

// NewApp is the constructor for the main application. It returns an App
// with its own isolated logger, registry and metrics registry. Without
// explicit modules the core modules are registered.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = coreModules()
	}
	reg := registry.New(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules), "types", reg.Types())

	metrics := prometheus.NewRegistry()
	metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &App{
		outW:       outW,
		logger:     logger,
		config:     cfg,
		loader:     loader,
		modules:    modules,
		registry:   reg,
		metrics:    metrics,
		runMetrics: executor.NewMetrics(metrics),
		now:        time.Now,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Metrics returns the registry the run metrics are recorded in.
func (a *App) Metrics() *prometheus.Registry {
	return a.metrics
}

// Close releases module resources such as cloud clients.
func (a *App) Close() error {
	var errs []error
	for _, m := range a.modules {
		if c, ok := m.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
