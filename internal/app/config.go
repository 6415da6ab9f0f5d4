// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Mode selects what a run does with the loaded grid.
type Mode string

const (
	// ModeApply creates every declared resource.
	ModeApply Mode = "apply"
	// ModePlan prints the creation order without calling the backend.
	ModePlan Mode = "plan"
	// ModeDestroy deletes the resources recorded in the state file.
	ModeDestroy Mode = "destroy"
)

// DefaultStatePath is where state is kept when no path is configured.
const DefaultStatePath = ".provisiongrid/state.yaml"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	GridPaths []string `validate:"required,min=1,dive,required"`
	StatePath string   `validate:"required"`
	Mode      Mode     `validate:"oneof=apply plan destroy"`

	Workers  int `validate:"min=1,max=256"`
	FailFast bool

	OutputFormat    string `validate:"oneof=json yaml"`
	LogFormat       string `validate:"oneof=text json"`
	LogLevel        string `validate:"oneof=debug info warn error"`
	HealthcheckPort int    `validate:"min=0,max=65535"`
	Trace           string `validate:"oneof=none stdout"`
	EventsURL       string `validate:"omitempty,url"`

	// BackendRetries is how many times a transient backend failure is
	// retried. Zero disables retries.
	BackendRetries uint64 `validate:"max=20"`
	// DispatchRate caps backend calls per second. Zero means unlimited.
	DispatchRate float64 `validate:"min=0"`
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// NewConfig fills in defaults for unset fields and validates the result.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.StatePath == "" {
		cfg.StatePath = DefaultStatePath
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeApply
	}
	if cfg.Workers == 0 {
		cfg.Workers = 4
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "json"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Trace == "" {
		cfg.Trace = "none"
	}

	if err := configValidator.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
