// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"fmt"
	"strings"
)

// Role is a member's permission tier within a room.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"

	// RoleUnknown marks a member whose tier could not be determined.
	// It is never assigned.
	RoleUnknown Role = "unknown"
)

// BaselineRole is the tier a member returns to when removed from an
// elevated role. Removal demotes; it never kicks.
const BaselineRole = RoleUser

// Canonical power levels for each assignable role.
const (
	PowerLevelAdmin     = 100
	PowerLevelModerator = 50
	PowerLevelUser      = 0
)

// RoleForPowerLevel returns the tier a power level falls in.
func RoleForPowerLevel(level int) Role {
	switch {
	case level >= PowerLevelAdmin:
		return RoleAdmin
	case level >= PowerLevelModerator:
		return RoleModerator
	default:
		return RoleUser
	}
}

// ParseRole parses a role name as typed on the command line or stored
// in configuration. "mod" is accepted for moderator and "regular" for
// user.
func ParseRole(raw string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "admin":
		return RoleAdmin, nil
	case "moderator", "mod":
		return RoleModerator, nil
	case "user", "regular":
		return RoleUser, nil
	}
	return "", fmt.Errorf("unknown role %q (want admin, moderator, or user)", raw)
}

// PowerLevel returns the level written when r is assigned. RoleUnknown
// and unrecognized values are not assignable.
func (r Role) PowerLevel() (int, error) {
	switch r {
	case RoleAdmin:
		return PowerLevelAdmin, nil
	case RoleModerator:
		return PowerLevelModerator, nil
	case RoleUser:
		return PowerLevelUser, nil
	}
	return 0, fmt.Errorf("role %q has no power level", string(r))
}

// Rank orders roles for display: admin 0, moderator 1, user 2, anything
// else 3.
func (r Role) Rank() int {
	switch r {
	case RoleAdmin:
		return 0
	case RoleModerator:
		return 1
	case RoleUser:
		return 2
	}
	return 3
}

// IsElevated reports whether r is above the baseline. Only elevated
// roles can be the target of a role-change flow.
func (r Role) IsElevated() bool {
	return r == RoleAdmin || r == RoleModerator
}

// String returns the role name.
func (r Role) String() string { return string(r) }
