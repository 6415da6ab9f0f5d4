// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package node

// Output is a named value surfaced to the caller once a run finishes, e.g.
// the public URL of a gateway.
type Output struct {
	Name string
	Ref  Reference
}
