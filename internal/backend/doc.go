// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package backend defines the Provisioning Backend collaborator: the thing
// that actually creates and deletes resources of a given type and reports
// their computed attributes.
//
// The core never retries a backend call. Errors are classified as transient
// or terminal by the backend itself; WithRetry is an optional decorator that
// absorbs transient failures before they reach the core.
package backend
