// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package dag provides a concurrency-safe directed graph keyed by node id.
//
// Nodes and edges remember insertion order, so every query returns ids in a
// reproducible order. The graph performs no cycle checking; ordering and
// cycle detection belong to the scheduler.
package dag
