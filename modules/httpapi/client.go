// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/vk/provisiongrid/internal/backend"
	"github.com/vk/provisiongrid/internal/ctxlog"
)

type client struct {
	http *http.Client
}

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s returned %d %s", e.Method, e.URL, e.Status, http.StatusText(e.Status))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// classify marks throttling and server errors as transient.
func classify(err *StatusError) error {
	if err.Status == http.StatusTooManyRequests || err.Status >= 500 {
		return backend.Transient(err)
	}
	return err
}

func (c *client) create(ctx context.Context, input *Input) (map[string]any, error) {
	method := input.Method
	if method == "" {
		method = http.MethodPost
	}
	logger := ctxlog.FromContext(ctx).With("method", method, "url", input.URL)

	payload, err := json.Marshal(input.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, input.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range input.Headers {
		req.Header.Set(k, v)
	}

	logger.Debug("HTTP resource: Sending create request.")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, backend.Transient(fmt.Errorf("failed to execute request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classify(&StatusError{Method: method, URL: input.URL, Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))})
	}

	out := make(map[string]any)
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("response from %s is not a JSON object: %w", input.URL, err)
		}
	}

	location, err := objectURL(input, resp.Header.Get("Location"), out)
	if err != nil {
		return nil, err
	}
	out[backend.IDAttribute] = location
	out["url"] = location
	out["status_code"] = resp.StatusCode

	logger.Debug("HTTP resource: Created.", "location", location, "status", resp.StatusCode)
	return out, nil
}

// objectURL works out where the created object lives: the Location header
// resolved against the collection URL, else the collection URL joined with
// the id field of the response.
func objectURL(input *Input, location string, body map[string]any) (string, error) {
	base, err := url.Parse(input.URL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", input.URL, err)
	}
	if location != "" {
		ref, err := url.Parse(location)
		if err != nil {
			return "", fmt.Errorf("invalid Location header %q: %w", location, err)
		}
		return base.ResolveReference(ref).String(), nil
	}

	field := input.IDField
	if field == "" {
		field = "id"
	}
	id, ok := body[field]
	if !ok || id == nil || fmt.Sprint(id) == "" {
		return "", fmt.Errorf("response from %s has no Location header and no %q field", input.URL, field)
	}
	return strings.TrimSuffix(input.URL, "/") + "/" + url.PathEscape(fmt.Sprint(id)), nil
}

func (c *client) delete(ctx context.Context, id string) error {
	logger := ctxlog.FromContext(ctx).With("url", id)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, id, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	logger.Debug("HTTP resource: Sending delete request.")
	resp, err := c.http.Do(req)
	if err != nil {
		return backend.Transient(fmt.Errorf("failed to execute request: %w", err))
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		logger.Debug("HTTP resource: Already gone.")
		return nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return classify(&StatusError{Method: http.MethodDelete, URL: id, Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))})
	}
	return nil
}
