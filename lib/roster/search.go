// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roster

import (
	"slices"
	"strings"

	"github.com/bureau-foundation/bureau-roles/lib/schema"
)

// Search returns the joined members whose user ID or display name
// fuzzily matches query, sorted with [Compare]. Matching is
// case-insensitive and accepts the query's characters in order with
// gaps between them, so "bb" finds "Bob" and "alc" finds "@alice:x".
// An empty query matches every joined member. The input is not
// modified.
func Search(members []Member, query string) []Member {
	return SearchFunc(members, query, Compare)
}

// SearchFunc is [Search] with the result order given by compare.
func SearchFunc(members []Member, query string, compare func(a, b Member) int) []Member {
	pattern := matchPattern(query)
	var results []Member
	for _, member := range members {
		if member.Membership != MembershipJoin || !matches(member, pattern) {
			continue
		}
		results = append(results, member)
	}
	slices.SortStableFunc(results, compare)
	return results
}

// Compare orders members by role rank (admin first), then display
// name ignoring case, then user ID.
func Compare(a, b Member) int {
	if rankA, rankB := a.Role.Rank(), b.Role.Rank(); rankA != rankB {
		return rankA - rankB
	}
	if byName := strings.Compare(strings.ToLower(a.DisplayName), strings.ToLower(b.DisplayName)); byName != 0 {
		return byName
	}
	return a.UserID.Compare(b.UserID)
}

// Sort sorts members in place with [Compare].
func Sort(members []Member) {
	slices.SortStableFunc(members, Compare)
}

// WithRole returns the members holding exactly role, in input order.
func WithRole(members []Member, role schema.Role) []Member {
	var matched []Member
	for _, member := range members {
		if member.Role == role {
			matched = append(matched, member)
		}
	}
	return matched
}

// Summary counts the elevated members of a room.
type Summary struct {
	Admins     int `json:"admins"`
	Moderators int `json:"moderators"`
}

// Summarize counts admins and moderators across every listed member,
// whatever their membership: an invited admin still holds the level.
func Summarize(members []Member) Summary {
	var summary Summary
	for _, member := range members {
		switch member.Role {
		case schema.RoleAdmin:
			summary.Admins++
		case schema.RoleModerator:
			summary.Moderators++
		}
	}
	return summary
}
