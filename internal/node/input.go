// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package node

import (
	"fmt"
	"sort"

	"github.com/vk/provisiongrid/internal/nodeid"
)

// Reference points at one output of another node. An empty Key refers to the
// node as a whole: its full output map, or just its completion for a gate.
type Reference struct {
	Node nodeid.ID
	Key  string
}

// String renders the reference as `type.name.key`.
func (r Reference) String() string {
	if r.Key == "" {
		return r.Node.String()
	}
	return r.Node.String() + "." + r.Key
}

// Expression is an input computed from one or more references once their
// values are bound, e.g. a string template.
type Expression interface {
	References() []Reference
	Evaluate(values map[Reference]any) (any, error)
}

// Input is a single input attribute. Exactly one of Literal, Ref or Expr is
// meaningful; Ref and Expr take precedence in that order.
type Input struct {
	Literal any
	Ref     *Reference
	Expr    Expression
}

// Literal builds a literal input.
func Literal(v any) Input {
	return Input{Literal: v}
}

// Ref builds a reference input.
func Ref(id nodeid.ID, key string) Input {
	return Input{Ref: &Reference{Node: id, Key: key}}
}

// Expr builds an expression input.
func Expr(e Expression) Input {
	return Input{Expr: e}
}

// IsLiteral reports whether the input carries no references.
func (in Input) IsLiteral() bool {
	return in.Ref == nil && in.Expr == nil
}

// References lists the references the input needs before it can be resolved.
func (in Input) References() []Reference {
	switch {
	case in.Ref != nil:
		return []Reference{*in.Ref}
	case in.Expr != nil:
		return in.Expr.References()
	}
	return nil
}

// MissingValueError is returned when a referenced output was never produced.
type MissingValueError struct {
	Attribute string
	Ref       Reference
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("input %q: %s produced no value for %q", e.Attribute, e.Ref.Node, e.Ref.Key)
}

// Resolve turns declared inputs into concrete values using the values bound
// for each reference. It fails if any reference has no bound value.
func Resolve(inputs map[string]Input, bound map[Reference]any) (map[string]any, error) {
	resolved := make(map[string]any, len(inputs))
	for _, name := range SortedInputNames(inputs) {
		in := inputs[name]
		switch {
		case in.Ref != nil:
			v, ok := bound[*in.Ref]
			if !ok {
				return nil, &MissingValueError{Attribute: name, Ref: *in.Ref}
			}
			resolved[name] = v
		case in.Expr != nil:
			values := make(map[Reference]any)
			for _, ref := range in.Expr.References() {
				v, ok := bound[ref]
				if !ok {
					return nil, &MissingValueError{Attribute: name, Ref: ref}
				}
				values[ref] = v
			}
			v, err := in.Expr.Evaluate(values)
			if err != nil {
				return nil, fmt.Errorf("input %q: %w", name, err)
			}
			resolved[name] = v
		default:
			resolved[name] = in.Literal
		}
	}
	return resolved, nil
}

// SortedInputNames returns the input names in lexical order.
func SortedInputNames(inputs map[string]Input) []string {
	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
