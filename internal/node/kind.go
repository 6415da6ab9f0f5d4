// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package node

import "fmt"

// Kind distinguishes how a node produces its outputs.
type Kind int

const (
	// KindOperation nodes are created and deleted by the provisioning backend.
	KindOperation Kind = iota
	// KindValue nodes produce their resolved inputs as outputs, locally.
	KindValue
	// KindGate nodes wait for backend side effects to become observable.
	KindGate
	// KindComposite nodes group other nodes and re-export their outputs.
	KindComposite
)

func (k Kind) String() string {
	switch k {
	case KindOperation:
		return "operation"
	case KindValue:
		return "value"
	case KindGate:
		return "gate"
	case KindComposite:
		return "composite"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// IsLocal reports whether the kind never calls the backend.
func (k Kind) IsLocal() bool {
	return k != KindOperation
}
