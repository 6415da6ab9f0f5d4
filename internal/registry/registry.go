// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/vk/provisiongrid/internal/backend"
	"github.com/vk/provisiongrid/internal/ctxlog"
)

// Module is the interface that all modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// handler is the type-erased form of a registered Resource.
type handler struct {
	create func(ctx context.Context, inputs map[string]any) (map[string]any, error)
	delete func(ctx context.Context, id string) error
}

// Registry holds the handlers of every registered resource type.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]*handler
	validate *validator.Validate
}

// New creates a registry and registers the given modules into it.
func New(modules ...Module) *Registry {
	r := &Registry{
		handlers: make(map[string]*handler),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

var _ backend.Backend = (*Registry)(nil)

// Types returns the registered resource types in lexical order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Has reports whether resourceType has a handler.
func (r *Registry) Has(resourceType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[resourceType]
	return ok
}

func (r *Registry) lookup(resourceType string) (*handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[resourceType]
	if !ok {
		return nil, fmt.Errorf("no handler registered for resource type %q", resourceType)
	}
	return h, nil
}

// Create implements backend.Backend.
func (r *Registry) Create(ctx context.Context, resourceType string, inputs map[string]any) (map[string]any, error) {
	h, err := r.lookup(resourceType)
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Registry: Dispatching create.", "type", resourceType)
	return h.create(ctx, inputs)
}

// Delete implements backend.Backend.
func (r *Registry) Delete(ctx context.Context, resourceType string, id string) error {
	h, err := r.lookup(resourceType)
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Registry: Dispatching delete.", "type", resourceType, "id", id)
	if h.delete == nil {
		return nil
	}
	return h.delete(ctx, id)
}
