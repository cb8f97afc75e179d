// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package changeroles coordinates editing which members of a room hold
// one role.
//
// A [Coordinator] is created per (room, role). [Coordinator.LoadInitial]
// records the members currently holding the role as the initial
// snapshot and as the working selection. The operator then searches
// the room ([Coordinator.Search]), toggles members in and out of the
// selection ([Coordinator.ToggleSelection]), and commits
// ([Coordinator.Save]). Save promotes every member added to the
// selection and demotes every member removed from it to the baseline
// role, attempting all of them even when some fail.
//
// Leaving with unsaved changes goes through a confirmation step
// ([Coordinator.RequestExit], [Coordinator.CancelExit]). A successful
// save moves the exit axis to Success after a short delay so a UI can
// dismiss its progress indicator before closing.
//
// State is published as immutable [State] snapshots: read the latest
// with [Coordinator.State] or receive updates from
// [Coordinator.Subscribe]. Asynchronous operations return a [*Task]
// handle; [Coordinator.Close] cancels all of them. Role changes the
// homeserver already accepted stay applied.
package changeroles
