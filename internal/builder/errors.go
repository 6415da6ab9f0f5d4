// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package builder

import (
	"fmt"

	"github.com/vk/provisiongrid/internal/nodeid"
)

// DuplicateNodeIDError is returned when two declarations share an id.
type DuplicateNodeIDError struct {
	ID nodeid.ID
	// First and Second are the declaration positions of the clash.
	First, Second int
}

func (e *DuplicateNodeIDError) Error() string {
	return fmt.Sprintf("duplicate node id %q (declarations %d and %d)", e.ID, e.First, e.Second)
}

// UnknownReferenceError is returned when a node references or depends on an
// id that was never declared.
type UnknownReferenceError struct {
	From nodeid.ID
	To   nodeid.ID
	// Attribute is the input that holds the reference, or "depends_on".
	Attribute string
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("node %q: %s refers to undeclared node %q", e.From, e.Attribute, e.To)
}
