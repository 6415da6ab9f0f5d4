// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package binder captures the result of a finished node and pushes it
// downstream: outputs are bound into the inputs of dependent nodes, which
// become Ready once every node they wait for is Complete, and failures are
// spread to every transitive dependent as DependencyFailed.
package binder
