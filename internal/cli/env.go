// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package cli

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// envDefaults holds the PROVISIONGRID_* variables. They seed the flag
// defaults.
type envDefaults struct {
	Grid            []string `env:"PROVISIONGRID_GRID" envSeparator:","`
	State           string   `env:"PROVISIONGRID_STATE" envDefault:".provisiongrid/state.yaml"`
	Workers         int      `env:"PROVISIONGRID_WORKERS" envDefault:"4"`
	FailFast        bool     `env:"PROVISIONGRID_FAIL_FAST"`
	OutputFormat    string   `env:"PROVISIONGRID_OUTPUT_FORMAT" envDefault:"json"`
	LogFormat       string   `env:"PROVISIONGRID_LOG_FORMAT" envDefault:"text"`
	LogLevel        string   `env:"PROVISIONGRID_LOG_LEVEL" envDefault:"info"`
	HealthcheckPort int      `env:"PROVISIONGRID_HEALTHCHECK_PORT"`
	Trace           string   `env:"PROVISIONGRID_TRACE" envDefault:"none"`
	EventsURL       string   `env:"PROVISIONGRID_EVENTS_URL"`
	BackendRetries  uint64   `env:"PROVISIONGRID_BACKEND_RETRIES"`
	DispatchRate    float64  `env:"PROVISIONGRID_DISPATCH_RATE"`
}

// loadEnv reads envDefaults from environ, or from the process environment
// when environ is nil.
func loadEnv(environ map[string]string) (*envDefaults, error) {
	var d envDefaults
	var err error
	if environ == nil {
		err = env.Parse(&d)
	} else {
		err = env.ParseWithOptions(&d, env.Options{Environment: environ})
	}
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &d, nil
}
