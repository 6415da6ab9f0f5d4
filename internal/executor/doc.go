// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

/*
Package executor drives a built graph to completion against a provisioning
backend.

A single controller goroutine owns every state change. It seeds the nodes
without dependencies, hands Ready nodes to a bounded pool of workers in
scheduler order, and binds each result as it comes back, which releases
dependents or marks them DependencyFailed. Workers only resolve inputs and
call the backend, so the controller never races with itself.

A failed node never stops independent branches unless fail-fast is enabled.
Cancelling the run context stops new dispatches; calls already in flight
finish and are bound before Run returns its report.

Teardown walks the reverse creation order and deletes every resource that a
previous run created.
*/
package executor
