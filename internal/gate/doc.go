// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package gate implements the Propagation Delay Gate: a node that stays
// Running for a minimum duration, or until an external poll confirms a
// condition, so that backend side effects of its predecessors are observable
// before any dependent starts.
//
// A gate has no failure mode of its own. A poll that never confirms is given
// up on after MaxWait and the gate completes with a warning.
package gate
