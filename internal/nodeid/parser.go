// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package nodeid

import (
	"fmt"
	"regexp"
	"strings"
)

// segmentRegex matches a single identifier half, e.g. `google_project` or `wait-for-apis`.
var segmentRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)

// Parse creates an ID by parsing its canonical `type.name` representation.
func Parse(rawID string) (ID, error) {
	if rawID == "" {
		return ID{}, fmt.Errorf("identifier cannot be empty")
	}

	typ, name, ok := strings.Cut(rawID, ".")
	if !ok {
		return ID{}, fmt.Errorf("identifier %q must have the form type.name", rawID)
	}
	if err := ValidateSegment(typ); err != nil {
		return ID{}, fmt.Errorf("identifier %q: type: %w", rawID, err)
	}
	if err := ValidateSegment(name); err != nil {
		return ID{}, fmt.Errorf("identifier %q: name: %w", rawID, err)
	}

	return ID{Type: typ, Name: name}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(rawID string) ID {
	id, err := Parse(rawID)
	if err != nil {
		panic(err)
	}
	return id
}

// ValidateSegment checks one half of an identifier.
func ValidateSegment(s string) error {
	if s == "" {
		return fmt.Errorf("empty segment")
	}
	if !segmentRegex.MatchString(s) {
		return fmt.Errorf("invalid segment %q", s)
	}
	return nil
}
