// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/provisiongrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// gridFlag collects repeated --grid values.
type gridFlag []string

func (g *gridFlag) String() string { return strings.Join(*g, ",") }

func (g *gridFlag) Set(v string) error {
	*g = append(*g, v)
	return nil
}

// Parse processes command-line arguments against the process environment.
// It returns a populated Config, a boolean indicating if the program should
// exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	return ParseWithEnv(args, nil, output)
}

// ParseWithEnv is Parse with an explicit environment. A nil environ means
// the process environment.
func ParseWithEnv(args []string, environ map[string]string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	defaults, err := loadEnv(environ)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	flagSet := flag.NewFlagSet("provisiongrid", flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, `
ProvisionGrid - Declarative, dependency-ordered resource provisioning.

Usage:
  provisiongrid [options] [GRID_PATH...]

Arguments:
  GRID_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Every option can also be set through a PROVISIONGRID_* environment variable,
e.g. PROVISIONGRID_WORKERS=8. Flags win over the environment.

Options:
`)
		flagSet.PrintDefaults()
	}

	var grids gridFlag
	flagSet.Var(&grids, "grid", "Path to a grid file or directory. May be repeated.")
	flagSet.Var(&grids, "g", "Path to a grid file or directory (shorthand).")
	statePath := flagSet.String("state", defaults.State, "Path of the state file written by apply and read by destroy.")
	destroy := flagSet.Bool("destroy", false, "Delete the resources recorded in the state file.")
	plan := flagSet.Bool("plan", false, "Print the creation order without calling the backend.")
	workers := flagSet.Int("workers", defaults.Workers, "Maximum number of nodes running at once.")
	failFast := flagSet.Bool("fail-fast", defaults.FailFast, "Stop dispatching new nodes after the first failure.")
	outputFormat := flagSet.String("output-format", defaults.OutputFormat, "Format of the named outputs. Options: 'json' or 'yaml'.")
	logFormat := flagSet.String("log-format", defaults.LogFormat, "Log output format. Options: 'text' or 'json'.")
	logLevel := flagSet.String("log-level", defaults.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	healthPort := flagSet.Int("healthcheck-port", defaults.HealthcheckPort, "Port for the HTTP health check and metrics server. 0 is disabled.")
	trace := flagSet.String("trace", defaults.Trace, "Span exporter. Options: 'none' or 'stdout'.")
	eventsURL := flagSet.String("events-url", defaults.EventsURL, "socket.io server that receives node progress events.")
	retries := flagSet.Uint64("backend-retries", defaults.BackendRetries, "Retries for transient backend failures. 0 disables retries.")
	dispatchRate := flagSet.Float64("dispatch-rate", defaults.DispatchRate, "Maximum backend calls per second. 0 is unlimited.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	paths := append([]string(nil), grids...)
	paths = append(paths, flagSet.Args()...)
	if len(paths) == 0 {
		paths = defaults.Grid
	}
	if len(paths) == 0 {
		slog.Debug("No grid path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	mode := app.ModeApply
	switch {
	case *destroy && *plan:
		return nil, false, &ExitError{Code: 2, Message: "--destroy and --plan cannot be used together"}
	case *destroy:
		mode = app.ModeDestroy
	case *plan:
		mode = app.ModePlan
	}

	config, err := app.NewConfig(app.Config{
		GridPaths:       paths,
		StatePath:       *statePath,
		Mode:            mode,
		Workers:         *workers,
		FailFast:        *failFast,
		OutputFormat:    strings.ToLower(*outputFormat),
		LogFormat:       strings.ToLower(*logFormat),
		LogLevel:        strings.ToLower(*logLevel),
		HealthcheckPort: *healthPort,
		Trace:           strings.ToLower(*trace),
		EventsURL:       *eventsURL,
		BackendRetries:  *retries,
		DispatchRate:    *dispatchRate,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
