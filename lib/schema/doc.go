// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the Matrix state event content that
// bureau-roles reads and writes, and the mapping between power levels
// and the role tiers operators work with.
//
// Roles are coarse bands over the integer power level: admin at 100 and
// above, moderator from 50, user below that. [RoleForPowerLevel] maps a
// level to its band; [Role.PowerLevel] gives the canonical level written
// when a role is assigned.
//
// [UpdatePowerLevels] is the only write path. It performs one read and
// one write of m.room.power_levels and lets the caller veto the change
// after seeing the current content.
package schema
