// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package backend

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/vk/provisiongrid/internal/ctxlog"
)

// RetryOptions tunes WithRetry.
type RetryOptions struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

type retrying struct {
	next Backend
	opts RetryOptions
}

// WithRetry retries transient failures of next with exponential backoff.
// Terminal failures are returned on the first attempt.
func WithRetry(next Backend, opts RetryOptions) Backend {
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 500 * time.Millisecond
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = 30 * time.Second
	}
	return &retrying{next: next, opts: opts}
}

func (r *retrying) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.opts.InitialInterval
	b.MaxInterval = r.opts.MaxInterval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, r.opts.MaxRetries), ctx)
}

func (r *retrying) Create(ctx context.Context, resourceType string, inputs map[string]any) (map[string]any, error) {
	var out map[string]any
	attempt := 0
	operation := func() error {
		attempt++
		var err error
		out, err = r.next.Create(ctx, resourceType, inputs)
		return r.classify(ctx, OpCreate, resourceType, attempt, err)
	}
	if err := backoff.Retry(operation, r.policy(ctx)); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *retrying) Delete(ctx context.Context, resourceType string, id string) error {
	attempt := 0
	operation := func() error {
		attempt++
		return r.classify(ctx, OpDelete, resourceType, attempt, r.next.Delete(ctx, resourceType, id))
	}
	return backoff.Retry(operation, r.policy(ctx))
}

func (r *retrying) classify(ctx context.Context, op Op, resourceType string, attempt int, err error) error {
	if err == nil {
		return nil
	}
	if !IsTransient(err) {
		return backoff.Permanent(err)
	}
	ctxlog.FromContext(ctx).Warn("Transient backend failure, will retry.", "op", op, "type", resourceType, "attempt", attempt, "error", err)
	return err
}
