// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package graph provides the Dependency Graph: the declared nodes, the union
// of explicit and inferred edges, and the node state table.
//
// The Graph is a facade over two parts:
//   - Topology (dag.Graph plus the node declarations). Built once by the
//     builder and frozen; it never changes afterwards.
//   - State (nodestore.Store plus the per-consumer bound values). Mutated
//     during a run only through the state machine transitions, and only by
//     the run controller and the output binder.
//
// # Lifecycle
//
//  1. Created by the builder, populated with Add and Link.
//  2. Frozen once assembly is complete.
//  3. Queried by the scheduler, mutated by the run controller and binder.
//  4. Discarded after the run, or replayed in reverse for teardown.
package graph
