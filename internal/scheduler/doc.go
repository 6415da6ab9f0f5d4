// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package scheduler computes deterministic creation and teardown orders for a
// built graph and rejects graphs that contain a cycle.
//
// Among nodes whose dependencies are all placed, the one declared first is
// placed next, so the same declarations always produce the same order.
// Teardown is the exact reverse of creation: a node is torn down only after
// every node that depends on it.
package scheduler
