// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package changeroles

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/bureau-roles/lib/ref"
	"github.com/bureau-foundation/bureau-roles/lib/schema"
)

// ErrClosed is returned by operations on a closed Coordinator.
var ErrClosed = errors.New("changeroles: coordinator closed")

// ErrNotLoaded is returned by Save before LoadInitial has succeeded.
var ErrNotLoaded = errors.New("changeroles: initial members not loaded")

// ErrSuperseded is the error of a search task whose result was
// discarded because a newer search or member update replaced it.
var ErrSuperseded = errors.New("changeroles: search superseded")

// DirectoryError wraps a member directory failure.
type DirectoryError struct {
	// Op is "load", "search", or "observe".
	Op     string
	RoomID ref.RoomID
	Err    error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("changeroles: %s members of %s: %v", e.Op, e.RoomID, e.Err)
}

func (e *DirectoryError) Unwrap() error { return e.Err }

// AssignmentError is one failed role assignment during a save.
type AssignmentError struct {
	UserID ref.UserID
	Role   schema.Role
	Err    error
}

func (e *AssignmentError) Error() string {
	return fmt.Sprintf("changeroles: assigning %s to %s: %v", e.Role, e.UserID, e.Err)
}

func (e *AssignmentError) Unwrap() error { return e.Err }
