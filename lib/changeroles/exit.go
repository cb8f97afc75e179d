// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package changeroles

// RequestExit asks to leave. From Uninitialized it moves to Confirming
// when there are unsaved changes and to Success otherwise. From any
// other state it moves to Success, so a second request confirms.
func (c *Coordinator) RequestExit() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed {
		return
	}
	if c.exit.Is(ActionUninitialized) && c.hasPendingChangesLocked() {
		c.exit = AsyncAction{Status: ActionConfirming}
	} else {
		c.exit = AsyncAction{Status: ActionSuccess}
	}
	c.notifyLocked()
}

// CancelExit backs out of the confirmation. It has no effect unless
// the exit axis is Confirming.
func (c *Coordinator) CancelExit() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed || !c.exit.Is(ActionConfirming) {
		return
	}
	c.exit = AsyncAction{}
	c.notifyLocked()
}
