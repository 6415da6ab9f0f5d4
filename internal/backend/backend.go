// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package backend

import (
	"context"

	"github.com/vk/provisiongrid/internal/nodeid"
)

// Backend creates and deletes resources of a concrete type.
type Backend interface {
	// Create provisions a resource from fully resolved inputs and returns its
	// computed attributes. An "id" attribute, when present, is what Delete
	// receives later.
	Create(ctx context.Context, resourceType string, inputs map[string]any) (map[string]any, error)
	// Delete removes a previously created resource.
	Delete(ctx context.Context, resourceType string, id string) error
}

// Func adapts two functions to the Backend interface.
type Func struct {
	CreateFn func(ctx context.Context, resourceType string, inputs map[string]any) (map[string]any, error)
	DeleteFn func(ctx context.Context, resourceType string, id string) error
}

func (f Func) Create(ctx context.Context, resourceType string, inputs map[string]any) (map[string]any, error) {
	if f.CreateFn == nil {
		return map[string]any{}, nil
	}
	return f.CreateFn(ctx, resourceType, inputs)
}

func (f Func) Delete(ctx context.Context, resourceType string, id string) error {
	if f.DeleteFn == nil {
		return nil
	}
	return f.DeleteFn(ctx, resourceType, id)
}

// IDAttribute is the output key a backend uses to report a resource's identity.
const IDAttribute = "id"

// ResourceID returns the identity Delete should receive for a created node:
// its "id" output if it is a non-empty string, else the node id itself.
func ResourceID(node nodeid.ID, outputs map[string]any) string {
	if id, ok := outputs[IDAttribute].(string); ok && id != "" {
		return id
	}
	return node.String()
}

type nodeKey struct{}

// WithNode attaches the id of the node being provisioned to ctx, so backends
// can log or tag resources with it.
func WithNode(ctx context.Context, id nodeid.ID) context.Context {
	return context.WithValue(ctx, nodeKey{}, id)
}

// NodeFromContext returns the node id attached by WithNode.
func NodeFromContext(ctx context.Context) (nodeid.ID, bool) {
	id, ok := ctx.Value(nodeKey{}).(nodeid.ID)
	return id, ok
}
