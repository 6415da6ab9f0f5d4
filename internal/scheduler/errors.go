// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package scheduler

import (
	"strings"

	"github.com/vk/provisiongrid/internal/nodeid"
)

// CycleError reports a dependency cycle. Each member depends on the one before
// it, and the first member depends on the last.
type CycleError struct {
	Members []nodeid.ID
}

func (e *CycleError) Error() string {
	parts := make([]string, 0, len(e.Members)+1)
	for _, id := range e.Members {
		parts = append(parts, id.String())
	}
	if len(e.Members) > 0 {
		parts = append(parts, e.Members[0].String())
	}
	return "dependency cycle detected: " + strings.Join(parts, " -> ")
}

// Contains reports whether id is a member of the cycle.
func (e *CycleError) Contains(id nodeid.ID) bool {
	for _, m := range e.Members {
		if m == id {
			return true
		}
	}
	return false
}
