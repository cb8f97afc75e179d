// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging is the Matrix client-server API client used by
// bureau-roles.
//
// [Client] holds the homeserver URL and HTTP transport. [DirectSession]
// adds an access token (kept in a secret.Buffer) and exposes the calls
// role management needs: room membership, state event read and write,
// alias resolution, identity checks, and /sync. [Session] is the
// interface over those calls so tests can substitute a fake.
//
// [RoomWatcher] follows one room through /sync long-polling and hands
// back events that match a predicate. The member directory uses it to
// notice membership and power level changes.
//
// Every non-2xx response becomes a [*MatrixError] carrying the Matrix
// errcode and HTTP status; use [IsMatrixError] to test for a code.
// Request paths are built by concatenation with url.PathEscape on each
// identifier segment, since room IDs and aliases contain '!', '#', and
// ':' which must be escaped exactly once.
package messaging
