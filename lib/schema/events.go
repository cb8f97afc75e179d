// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "github.com/bureau-foundation/bureau-roles/lib/ref"

// Matrix event types read or written by bureau-roles.
const (
	MatrixEventTypePowerLevels ref.EventType = "m.room.power_levels"
	MatrixEventTypeRoomMember  ref.EventType = "m.room.member"
)
