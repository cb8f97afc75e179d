// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package changeroles

import (
	"context"
	"time"

	"github.com/bureau-foundation/bureau-roles/lib/ref"
	"github.com/bureau-foundation/bureau-roles/lib/roster"
	"github.com/bureau-foundation/bureau-roles/lib/schema"
)

// Recorder receives a report after every save attempt.
// lib/journal implements it.
type Recorder interface {
	RecordSave(ctx context.Context, report SaveReport) error
}

// SaveReport describes one save attempt.
type SaveReport struct {
	RoomID      ref.RoomID
	Role        schema.Role
	RequesterID ref.UserID
	Started     time.Time
	Finished    time.Time
	// Outcomes lists every attempted assignment in the order issued:
	// additions first, then removals, each sorted by user ID.
	Outcomes []AssignmentOutcome
}

// AssignmentOutcome is the result of one assignment. Err is nil on
// success.
type AssignmentOutcome struct {
	UserID ref.UserID
	Role   schema.Role
	Err    error
}

// Errors returns the failed assignments in order, as *AssignmentError.
func (r SaveReport) Errors() []error {
	var errs []error
	for _, outcome := range r.Outcomes {
		if outcome.Err != nil {
			errs = append(errs, &AssignmentError{UserID: outcome.UserID, Role: outcome.Role, Err: outcome.Err})
		}
	}
	return errs
}

// Succeeded reports whether every assignment succeeded.
func (r SaveReport) Succeeded() bool {
	for _, outcome := range r.Outcomes {
		if outcome.Err != nil {
			return false
		}
	}
	return true
}

// Save applies the difference between the working selection and the
// initial snapshot: members added to the selection get the role,
// members removed from it get the baseline role. Every assignment is
// attempted. The save axis ends in Success, or in Failure carrying the
// first *AssignmentError; the rest are in the SaveReport given to the
// Recorder.
//
// Successful assignments are folded into the initial snapshot, so
// saving again after a partial failure only retries the failures.
// On Success the exit axis moves to Success after the exit delay.
//
// A Save while one is loading returns the running task. Before the
// initial load has succeeded there is nothing to diff against, so Save
// returns a finished task failing with ErrNotLoaded and leaves the save
// axis alone.
func (c *Coordinator) Save() *Task {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed {
		return finishedTask(ErrClosed)
	}
	if !c.loaded {
		return finishedTask(ErrNotLoaded)
	}
	if c.save.Is(ActionLoading) {
		return c.saveTask
	}

	toAdd, toRemove := c.diffLocked()
	c.save = AsyncAction{Status: ActionLoading}
	c.notifyLocked()

	c.saveTask = c.startLocked(func(ctx context.Context) error {
		report := SaveReport{
			RoomID:      c.roomID,
			Role:        c.role,
			RequesterID: c.requesterID,
			Started:     c.clock.Now(),
		}
		for _, user := range toAdd {
			report.Outcomes = append(report.Outcomes, c.assign(ctx, user, c.role))
		}
		for _, user := range toRemove {
			report.Outcomes = append(report.Outcomes, c.assign(ctx, user, schema.BaselineRole))
		}
		report.Finished = c.clock.Now()

		if c.recorder != nil {
			// Record even when the save was cancelled: some changes
			// may already be applied.
			if err := c.recorder.RecordSave(context.WithoutCancel(ctx), report); err != nil {
				c.logger.Warn("recording save failed", "error", err)
			}
		}

		errs := report.Errors()

		c.mutex.Lock()
		defer c.mutex.Unlock()
		c.foldLocked(report, toAdd)
		if len(errs) > 0 {
			c.save = failed(errs[0])
			c.logger.Warn("save finished with failures",
				"attempted", len(report.Outcomes),
				"failed", len(errs),
				"first_error", errs[0],
			)
			c.notifyLocked()
			return errs[0]
		}

		c.save = AsyncAction{Status: ActionSuccess}
		c.logger.Info("save finished", "attempted", len(report.Outcomes))
		c.notifyLocked()
		if !c.closed {
			if c.exitTimer != nil {
				c.exitTimer.Stop()
			}
			c.exitTimer = c.clock.AfterFunc(c.exitDelay, c.exitAfterSave)
		}
		return nil
	})
	return c.saveTask
}

func (c *Coordinator) assign(ctx context.Context, user roster.User, role schema.Role) AssignmentOutcome {
	err := c.assigner.SetRole(ctx, c.roomID, user.UserID, role)
	if err != nil {
		c.logger.Debug("assignment failed", "user_id", user.UserID, "target_role", role, "error", err)
	}
	return AssignmentOutcome{UserID: user.UserID, Role: role, Err: err}
}

// foldLocked moves successful assignments into the initial snapshot.
// The first len(toAdd) outcomes are the additions, in toAdd's order.
func (c *Coordinator) foldLocked(report SaveReport, toAdd []roster.User) {
	for i, outcome := range report.Outcomes {
		if outcome.Err != nil {
			continue
		}
		if i < len(toAdd) {
			c.initial[outcome.UserID] = toAdd[i]
		} else {
			delete(c.initial, outcome.UserID)
		}
	}
}

func (c *Coordinator) exitAfterSave() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.exitTimer = nil
	if c.closed {
		return
	}
	c.exit = AsyncAction{Status: ActionSuccess}
	c.notifyLocked()
}

// ClearError acknowledges a failed save. It has no effect unless the
// save axis is Failure and does not retry.
func (c *Coordinator) ClearError() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed || !c.save.Is(ActionFailure) {
		return
	}
	c.save = AsyncAction{}
	c.notifyLocked()
}
