// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package node

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTransition is returned when a state change is not one of the
// allowed edges of the node state machine.
var ErrInvalidTransition = errors.New("invalid state transition")

// State represents the execution state of a node in the graph.
type State int32

const (
	StatePending State = iota
	StateReady
	StateRunning
	StateComplete
	StateFailed
	// StateDependencyFailed is applied without dispatch to nodes downstream
	// of a Failed node.
	StateDependencyFailed
)

var stateNames = map[State]string{
	StatePending:          "pending",
	StateReady:            "ready",
	StateRunning:          "running",
	StateComplete:         "complete",
	StateFailed:           "failed",
	StateDependencyFailed: "dependency_failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// ParseState is the inverse of State.String.
func ParseState(s string) (State, error) {
	for st, name := range stateNames {
		if strings.EqualFold(name, s) {
			return st, nil
		}
	}
	return StatePending, fmt.Errorf("unknown node state %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(b []byte) error {
	parsed, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// IsTerminal reports whether no further transition can leave s.
func (s State) IsTerminal() bool {
	switch s {
	case StateComplete, StateFailed, StateDependencyFailed:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is an edge of the state machine:
// Pending→Ready→Running→{Complete|Failed}, and Pending→DependencyFailed.
// Running→Ready returns a gate whose wait was interrupted by cancellation.
func CanTransition(from, to State) bool {
	switch from {
	case StatePending:
		return to == StateReady || to == StateDependencyFailed
	case StateReady:
		return to == StateRunning
	case StateRunning:
		return to == StateComplete || to == StateFailed || to == StateReady
	}
	return false
}

// CheckTransition returns a wrapped ErrInvalidTransition if from -> to is not allowed.
func CheckTransition(from, to State) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
