// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package gate

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/vk/provisiongrid/internal/ctxlog"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxWait      = 10 * time.Minute
)

// Poller checks an external readiness condition.
type Poller interface {
	Poll(ctx context.Context) (bool, error)
}

// PollerFunc adapts a function to the Poller interface.
type PollerFunc func(ctx context.Context) (bool, error)

// Poll calls f(ctx).
func (f PollerFunc) Poll(ctx context.Context) (bool, error) {
	return f(ctx)
}

// Spec configures a single gate.
type Spec struct {
	// MinDuration is always waited in full before polling starts.
	MinDuration time.Duration
	// Poller is optional. When nil the gate completes right after MinDuration.
	Poller Poller
	// PollInterval is the first delay between polls; later delays grow.
	PollInterval time.Duration
	// MaxWait bounds the whole gate, measured from the moment it starts.
	MaxWait time.Duration
}

// Wait blocks until the gate's condition holds. It returns an error only when
// ctx is done before that.
func Wait(ctx context.Context, spec Spec, clock Clock) error {
	logger := ctxlog.FromContext(ctx)
	if clock == nil {
		clock = RealClock()
	}
	start := clock.Now()

	if spec.MinDuration > 0 {
		logger.Debug("Gate: waiting for minimum duration.", "duration", spec.MinDuration)
		if err := clock.Sleep(ctx, spec.MinDuration); err != nil {
			return err
		}
	}
	if spec.Poller == nil {
		logger.Debug("Gate: no poller configured, condition satisfied.")
		return nil
	}

	interval := spec.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	maxWait := spec.MaxWait
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	deadline := start.Add(maxWait)

	pacer := &backoff.ExponentialBackOff{
		InitialInterval:     interval,
		RandomizationFactor: 0,
		Multiplier:          1.5,
		MaxInterval:         6 * interval,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	pacer.Reset()

	for attempt := 1; ; attempt++ {
		ok, err := spec.Poller.Poll(ctx)
		switch {
		case err != nil:
			logger.Debug("Gate: poll returned an error, treating as not ready.", "attempt", attempt, "error", err)
		case ok:
			logger.Debug("Gate: poll confirmed condition.", "attempt", attempt, "elapsed", clock.Now().Sub(start))
			return nil
		default:
			logger.Debug("Gate: condition not yet observable.", "attempt", attempt)
		}

		remaining := deadline.Sub(clock.Now())
		if remaining <= 0 {
			logger.Warn("⏳ Gate poll did not confirm before max wait, continuing.", "max_wait", maxWait, "attempts", attempt)
			return nil
		}
		next := pacer.NextBackOff()
		if next > remaining {
			next = remaining
		}
		if err := clock.Sleep(ctx, next); err != nil {
			return err
		}
	}
}
