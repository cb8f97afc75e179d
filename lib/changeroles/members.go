// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package changeroles

import (
	"context"

	"github.com/bureau-foundation/bureau-roles/lib/ref"
	"github.com/bureau-foundation/bureau-roles/lib/roster"
)

// LoadInitial reads the room's members and stores those holding
// exactly the coordinator's role as both the initial snapshot and the
// working selection. The snapshot is taken once: after a successful
// load, LoadInitial returns a finished task and does no I/O. If a load
// is already running its task is returned.
//
// On a directory failure the snapshot stays empty, State.LoadErr is
// set, and the task fails with the same *DirectoryError. Only then may
// the load be retried.
func (c *Coordinator) LoadInitial() *Task {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed {
		return finishedTask(ErrClosed)
	}
	if c.loaded {
		return finishedTask(nil)
	}
	if c.loadTask != nil && c.loadTask.running() {
		return c.loadTask
	}

	c.loadTask = c.startLocked(func(ctx context.Context) error {
		members, err := c.directory.ListMembers(ctx, c.roomID)

		c.mutex.Lock()
		defer c.mutex.Unlock()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			directoryErr := &DirectoryError{Op: "load", RoomID: c.roomID, Err: err}
			c.loadErr = directoryErr
			c.logger.Warn("initial member load failed", "error", err)
			c.notifyLocked()
			return directoryErr
		}

		holders := roster.WithRole(members, c.role)
		c.initial = make(map[ref.UserID]roster.User, len(holders))
		c.selected = make(map[ref.UserID]roster.User, len(holders))
		for _, member := range holders {
			c.initial[member.UserID] = member.User()
			c.selected[member.UserID] = member.User()
		}
		c.loaded = true
		c.loadErr = nil
		c.logger.Debug("initial snapshot loaded",
			"members", len(members),
			"holders", len(holders),
		)
		c.notifyLocked()
		return nil
	})
	return c.loadTask
}

// Search lists the room's members and publishes the joined ones
// matching query, ordered by Config.Compare. A new search cancels the
// previous one, and only the latest search may publish; a superseded
// task ends with ErrSuperseded or a context error.
func (c *Coordinator) Search(query string) *Task {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed {
		return finishedTask(ErrClosed)
	}

	if c.searchTask != nil {
		c.searchTask.Cancel()
	}
	c.query = query
	c.searchGeneration++
	generation := c.searchGeneration
	c.notifyLocked()

	c.searchTask = c.startLocked(func(ctx context.Context) error {
		members, err := c.directory.ListMembers(ctx, c.roomID)

		c.mutex.Lock()
		defer c.mutex.Unlock()
		if generation != c.searchGeneration {
			return ErrSuperseded
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			directoryErr := &DirectoryError{Op: "search", RoomID: c.roomID, Err: err}
			c.searchErr = directoryErr
			c.logger.Warn("member search failed", "query", query, "error", err)
			c.notifyLocked()
			return directoryErr
		}
		c.applySearchLocked(members)
		return nil
	})
	return c.searchTask
}

func (c *Coordinator) applySearchLocked(members []roster.Member) {
	c.search = searchResultFor(roster.SearchFunc(members, c.query, c.compare))
	c.searchErr = nil
	c.notifyLocked()
}

// ToggleSearchActive flips whether the search field is open. The query
// and results are kept.
func (c *Coordinator) ToggleSearchActive() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed {
		return
	}
	c.searchActive = !c.searchActive
	c.notifyLocked()
}

// WatchMembers follows the room's member list and re-applies the
// current query to each new list, superseding any search in flight.
// The initial snapshot is not touched. The task runs until Close, its
// Cancel, or the directory stream ending. Calling it while a watch is
// running returns the running task.
func (c *Coordinator) WatchMembers() *Task {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed {
		return finishedTask(ErrClosed)
	}
	if c.watchTask != nil && c.watchTask.running() {
		return c.watchTask
	}

	c.watchTask = c.startLocked(func(ctx context.Context) error {
		updates, err := c.directory.ObserveMembers(ctx, c.roomID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			directoryErr := &DirectoryError{Op: "observe", RoomID: c.roomID, Err: err}
			c.mutex.Lock()
			c.searchErr = directoryErr
			c.notifyLocked()
			c.mutex.Unlock()
			return directoryErr
		}

		for members := range updates {
			c.mutex.Lock()
			if c.searchTask != nil {
				c.searchTask.Cancel()
			}
			c.searchGeneration++
			c.applySearchLocked(members)
			c.mutex.Unlock()
		}
		return ctx.Err()
	})
	return c.watchTask
}
