// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package httpapi provides the 'http_resource' resource type: an object
// provisioned through a plain REST collection. Create POSTs the body as JSON
// to the collection URL and Delete sends DELETE to the created object's URL.
package httpapi

import (
	"net/http"
	"time"

	"github.com/vk/provisiongrid/internal/registry"
)

// ResourceType is the type name this module registers.
const ResourceType = "http_resource"

const defaultTimeout = 30 * time.Second

// Module implements the registry.Module interface for this package.
type Module struct {
	// Client is used for every request. A nil Client gets a default one with
	// a 30s timeout.
	Client *http.Client
}

// Input defines the arguments of an http_resource.
type Input struct {
	URL     string            `cty:"url" validate:"required,url"`
	Method  string            `cty:"method" validate:"omitempty,oneof=POST PUT"`
	Body    map[string]any    `cty:"body"`
	Headers map[string]string `cty:"headers"`
	// IDField names the response field holding the object id when the
	// server does not answer with a Location header. Defaults to "id".
	IDField string `cty:"id_field"`
}

// Register registers the http_resource with the registry.
func (m *Module) Register(r *registry.Registry) {
	c := &client{http: m.Client}
	if c.http == nil {
		c.http = &http.Client{Timeout: defaultTimeout}
	}
	registry.Register(r, ResourceType, registry.Resource[Input]{
		Create: c.create,
		Delete: c.delete,
	})
}
