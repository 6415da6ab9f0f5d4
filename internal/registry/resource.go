// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package registry

import (
	"context"
	"fmt"
	"reflect"

	"github.com/vk/provisiongrid/internal/ctyconv"
)

// Resource describes how one resource type is created and deleted. I is the
// handler's input struct; resolved inputs are decoded into it through its
// `cty` tags and checked against its `validate` tags.
type Resource[I any] struct {
	Create func(ctx context.Context, input *I) (map[string]any, error)
	// Delete is optional; a nil Delete makes teardown a no-op for the type.
	Delete func(ctx context.Context, id string) error
}

// Register adds a handler for resourceType. It panics if the type is already
// registered, which is a programming error.
func Register[I any](r *Registry, resourceType string, res Resource[I]) {
	if res.Create == nil {
		panic(fmt.Sprintf("resource type '%s' has no create handler", resourceType))
	}
	h := &handler{
		create: func(ctx context.Context, inputs map[string]any) (map[string]any, error) {
			input := new(I)
			if err := decodeInput(inputs, input); err != nil {
				return nil, fmt.Errorf("invalid inputs for %s: %w", resourceType, err)
			}
			if reflect.TypeOf(input).Elem().Kind() == reflect.Struct {
				if err := r.validate.StructCtx(ctx, input); err != nil {
					return nil, fmt.Errorf("invalid inputs for %s: %w", resourceType, err)
				}
			}
			return res.Create(ctx, input)
		},
		delete: res.Delete,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[resourceType]; exists {
		panic(fmt.Sprintf("resource type '%s' already registered", resourceType))
	}
	r.handlers[resourceType] = h
}

// decodeInput lifts resolved inputs back into cty and decodes them into
// target, so handlers see the same conversions HCL expressions do.
func decodeInput(inputs map[string]any, target any) error {
	val, err := ctyconv.FromNative(inputs)
	if err != nil {
		return err
	}
	return ctyconv.Decode(val, target)
}
