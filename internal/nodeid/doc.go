// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

/*
Package nodeid provides a structured, type-safe identifier for the nodes of a
provisioning graph.

The canonical format is `type.name`, e.g. `storage_bucket.speech` or
`gate.wait_for_apis`. The type half is the resource type for operation nodes
and one of the reserved words `gate`, `value` or `composite` for the other
node kinds.
*/
package nodeid
