// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package config defines the format-agnostic model of a provisioning grid and
// the Loader interface that format-specific packages implement.
//
// The Model is the single input of the graph builder: an ordered list of node
// declarations plus the named outputs to surface once a run finishes.
package config
