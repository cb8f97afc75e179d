// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package changeroles

import (
	"github.com/bureau-foundation/bureau-roles/lib/ref"
	"github.com/bureau-foundation/bureau-roles/lib/roster"
	"github.com/bureau-foundation/bureau-roles/lib/schema"
)

// ToggleSelection removes member from the working selection if present
// and adds it otherwise. It does not consult CanRemove; callers that
// present members interactively should. Toggles before the initial
// load has succeeded are ignored.
func (c *Coordinator) ToggleSelection(member roster.Member) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed || !c.loaded {
		return
	}
	if _, ok := c.selected[member.UserID]; ok {
		delete(c.selected, member.UserID)
	} else {
		c.selected[member.UserID] = member.User()
	}
	c.notifyLocked()
}

// CanRemove reports whether the coordinator's requester may change
// member's selection.
func (c *Coordinator) CanRemove(member roster.Member) bool {
	return CanRemove(member, c.requesterID)
}

// CanRemove is the demotion policy: an admin may only be demoted by
// themself, and every other member may be changed by anyone.
func CanRemove(member roster.Member, requesterID ref.UserID) bool {
	if member.Role == schema.RoleAdmin {
		return member.UserID == requesterID
	}
	return true
}

// hasPendingChangesLocked compares the selection to the snapshot as
// sets of user IDs.
func (c *Coordinator) hasPendingChangesLocked() bool {
	if len(c.selected) != len(c.initial) {
		return true
	}
	for userID := range c.selected {
		if _, ok := c.initial[userID]; !ok {
			return true
		}
	}
	return false
}

// diffLocked returns the users to promote and to demote, each sorted by
// user ID.
func (c *Coordinator) diffLocked() (toAdd, toRemove []roster.User) {
	added := make(map[ref.UserID]roster.User)
	for userID, user := range c.selected {
		if _, ok := c.initial[userID]; !ok {
			added[userID] = user
		}
	}
	removed := make(map[ref.UserID]roster.User)
	for userID, user := range c.initial {
		if _, ok := c.selected[userID]; !ok {
			removed[userID] = user
		}
	}
	return sortedUsers(added), sortedUsers(removed)
}
