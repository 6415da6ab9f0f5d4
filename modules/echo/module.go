// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package echo provides the 'echo' resource type: a local stand-in that
// returns its inputs plus a freshly minted id. It backs dry runs and tests
// that need a real registry without touching a remote API.
package echo

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/vk/provisiongrid/internal/backend"
	"github.com/vk/provisiongrid/internal/ctxlog"
	"github.com/vk/provisiongrid/internal/registry"
)

// ResourceType is the type name this module registers.
const ResourceType = "echo"

// Module implements the registry.Module interface for this package.
// It remembers the ids it minted so Delete can report unknown ones.
type Module struct {
	mu   sync.Mutex
	live map[string]bool
}

// Register registers the echo resource with the registry.
func (m *Module) Register(r *registry.Registry) {
	registry.Register(r, ResourceType, registry.Resource[map[string]any]{
		Create: m.create,
		Delete: m.delete,
	})
}

func (m *Module) create(ctx context.Context, input *map[string]any) (map[string]any, error) {
	id := uuid.NewString()
	out := make(map[string]any, len(*input)+1)
	for k, v := range *input {
		out[k] = v
	}
	out[backend.IDAttribute] = id

	m.mu.Lock()
	if m.live == nil {
		m.live = make(map[string]bool)
	}
	m.live[id] = true
	m.mu.Unlock()

	logger := ctxlog.FromContext(ctx)
	if n, ok := backend.NodeFromContext(ctx); ok {
		logger = logger.With("node", n.String())
	}
	logger.Debug("Echo: Created resource.", "id", id, "attributes", len(out))
	return out, nil
}

func (m *Module) delete(ctx context.Context, id string) error {
	m.mu.Lock()
	known := m.live[id]
	delete(m.live, id)
	m.mu.Unlock()

	if !known {
		ctxlog.FromContext(ctx).Warn("⚠️ Echo resource was not created by this process, nothing to delete.", "id", id)
		return nil
	}
	ctxlog.FromContext(ctx).Debug("Echo: Deleted resource.", "id", id)
	return nil
}

// Live returns how many resources this module currently holds.
func (m *Module) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}
