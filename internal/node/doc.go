// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package node defines the Resource Node: a declared infrastructure unit with
// an identity, a kind, input attributes that are literals or references to
// other nodes' outputs, and explicit dependency edges. It also owns the node
// state machine shared by every component that reads or writes node state.
package node
