// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package broadcast defines the documents the provisioned translation
// service publishes for its listeners, and the rules a listener applies when
// reading them.
//
// A Session is keyed by a course id and carries the status and the languages
// on offer. Its messages are ordered by UpdatedAt and map a language code to
// a Translation. Listeners tolerate gaps: a missing language falls back to
// the closest code by prefix, and otherwise renders a placeholder.
package broadcast
