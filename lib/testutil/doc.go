// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds channel helpers shared by bureau-roles tests.
// [RequireReceive] and [RequireClosed] are the only places tests touch
// the wall clock: the timeout exists to fail a hung test, never to
// order events.
package testutil
