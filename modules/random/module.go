// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package random provides the 'random_string' resource type, used for the
// unique suffixes that globally named resources such as buckets need.
package random

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/vk/provisiongrid/internal/ctxlog"
	"github.com/vk/provisiongrid/internal/registry"
)

// ResourceType is the type name this module registers.
const ResourceType = "random_string"

const (
	lower   = "abcdefghijklmnopqrstuvwxyz"
	upper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	numeric = "0123456789"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments of a random_string resource.
type Input struct {
	Length  int   `cty:"length" validate:"min=1,max=256"`
	Upper   bool  `cty:"upper"`
	Special bool  `cty:"special"`
	Numeric *bool `cty:"numeric"`
}

// Register registers the random_string resource with the registry.
func (m *Module) Register(r *registry.Registry) {
	registry.Register(r, ResourceType, registry.Resource[Input]{
		Create: create,
	})
}

func create(ctx context.Context, input *Input) (map[string]any, error) {
	result, err := generate(input)
	if err != nil {
		return nil, fmt.Errorf("failed to generate random string: %w", err)
	}
	ctxlog.FromContext(ctx).Debug("Random: Generated string.", "length", input.Length)
	return map[string]any{
		"id":     result,
		"result": result,
	}, nil
}

// alphabet returns the characters input allows. Lowercase letters are always
// included; digits are on unless explicitly disabled.
func alphabet(input *Input) string {
	chars := lower
	if input.Upper {
		chars += upper
	}
	if input.Numeric == nil || *input.Numeric {
		chars += numeric
	}
	if input.Special {
		chars += "-_"
	}
	return chars
}

func generate(input *Input) (string, error) {
	chars := alphabet(input)
	size := big.NewInt(int64(len(chars)))
	buf := make([]byte, input.Length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		buf[i] = chars[n.Int64()]
	}
	return string(buf), nil
}
