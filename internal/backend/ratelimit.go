// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package backend

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

type rateLimited struct {
	next    Backend
	limiter *rate.Limiter
}

// WithRateLimit makes every call to next wait for a token from limiter.
func WithRateLimit(next Backend, limiter *rate.Limiter) Backend {
	return &rateLimited{next: next, limiter: limiter}
}

func (r *rateLimited) Create(ctx context.Context, resourceType string, inputs map[string]any) (map[string]any, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return r.next.Create(ctx, resourceType, inputs)
}

func (r *rateLimited) Delete(ctx context.Context, resourceType string, id string) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return r.next.Delete(ctx, resourceType, id)
}
