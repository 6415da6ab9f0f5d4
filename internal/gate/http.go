// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package gate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPPoller reports ready once a GET on URL answers with a 2xx status.
type HTTPPoller struct {
	URL    string
	Client *http.Client
}

// NewHTTPPoller creates a poller with a short per-request timeout.
func NewHTTPPoller(url string) *HTTPPoller {
	return &HTTPPoller{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Poll performs one GET request.
func (p *HTTPPoller) Poll(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create poll request: %w", err)
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("poll request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}
