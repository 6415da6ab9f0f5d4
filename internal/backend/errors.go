// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package backend

import (
	"errors"
	"fmt"
)

// Op names a backend operation.
type Op string

const (
	OpCreate Op = "create"
	OpDelete Op = "delete"
)

// Error is a classified backend failure.
type Error struct {
	Op        Op
	Type      string
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	class := "terminal"
	if e.Transient {
		class = "transient"
	}
	return fmt.Sprintf("backend %s %s failed (%s): %v", e.Op, e.Type, class, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// transientError marks an error as eligible for retry.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient wraps err so IsTransient reports true for it.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err, or anything it wraps, was classified as
// transient by a backend.
func IsTransient(err error) bool {
	var be *Error
	if errors.As(err, &be) && be.Transient {
		return true
	}
	var te *transientError
	return errors.As(err, &te)
}

// Wrap classifies err as an *Error for op on resourceType. Errors that are
// already *Error are returned unchanged.
func Wrap(op Op, resourceType string, err error) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return err
	}
	return &Error{Op: op, Type: resourceType, Transient: IsTransient(err), Err: err}
}
