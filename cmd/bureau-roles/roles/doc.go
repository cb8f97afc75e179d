// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package roles implements the "bureau-roles roles" commands: list,
// summary, apply, edit, watch, and history. Each connects with the
// shared session flags, resolves the room argument (a room ID or an
// alias), and drives the roster directory, the role assigner, and the
// change-roles coordinator.
package roles
