// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package roster models a room's member list for role management.
//
// A [Member] pairs a Matrix room member with the [schema.Role] its
// power level falls in. [Directory] lists and observes members;
// [Assigner] changes a member's role. [MatrixDirectory] and
// [MatrixAssigner] implement both against a homeserver through a
// messaging.Session.
//
// The pure helpers [Search], [Sort], and [Summarize] implement the
// list shown to an operator: joined members matching a query, ordered
// by role and then name, plus admin and moderator counts.
package roster
