// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package journal keeps a local history of role change saves.
//
// Every save attempt reported by a changeroles.Coordinator becomes one
// row in a SQLite database: a random ID, the room, role, and acting
// user, start and finish times, the outcome, and the per-user plan
// encoded with lib/codec. The plan's intended changes (not their
// results) are fingerprinted with a domain-keyed BLAKE3 hash, so a
// retry of the same plan shares its predecessor's fingerprint.
//
// [Journal] implements changeroles.Recorder.
package journal
