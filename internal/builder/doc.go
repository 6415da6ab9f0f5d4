// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

/*
Package builder turns an ordered list of node declarations into a frozen
*graph.Graph.

Construction runs in three passes:

 1. Node creation: every declaration becomes a Pending node. A second
    declaration with an id already seen fails the build with
    *DuplicateNodeIDError.

 2. Dependency linking: each reference used by a node's inputs adds an
    implicit edge from the referenced node, and each `depends_on` entry adds
    an explicit one. A target that is not declared fails the build with
    *UnknownReferenceError. Self references are kept as edges so the
    scheduler can report them as a one-node cycle.

 3. Freezing: the topology becomes immutable and is handed to the scheduler.

The builder never checks for cycles; ordering is the scheduler's job.
*/
package builder
