// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package registry maps resource types to the Go handlers that create and
// delete them. A populated *Registry is the provisioning backend handed to
// the executor: it decodes a node's resolved inputs into the handler's typed
// input struct, validates it, and dispatches by resource type.
package registry
