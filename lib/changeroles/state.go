// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package changeroles

import (
	"github.com/bureau-foundation/bureau-roles/lib/ref"
	"github.com/bureau-foundation/bureau-roles/lib/roster"
	"github.com/bureau-foundation/bureau-roles/lib/schema"
)

// ActionStatus is the variant of an [AsyncAction].
type ActionStatus int

const (
	ActionUninitialized ActionStatus = iota
	ActionConfirming
	ActionLoading
	ActionSuccess
	ActionFailure
)

func (s ActionStatus) String() string {
	switch s {
	case ActionUninitialized:
		return "uninitialized"
	case ActionConfirming:
		return "confirming"
	case ActionLoading:
		return "loading"
	case ActionSuccess:
		return "success"
	case ActionFailure:
		return "failure"
	}
	return "invalid"
}

// AsyncAction is the state of one asynchronous axis (exit or save).
// Err is set only when Status is ActionFailure.
type AsyncAction struct {
	Status ActionStatus
	Err    error
}

// Is reports whether the action is in status.
func (a AsyncAction) Is(status ActionStatus) bool { return a.Status == status }

func failed(err error) AsyncAction {
	return AsyncAction{Status: ActionFailure, Err: err}
}

// SearchStatus is the variant of a [SearchResult].
type SearchStatus int

const (
	// SearchInitial means no search has completed yet.
	SearchInitial SearchStatus = iota
	SearchNoResults
	SearchResults
)

func (s SearchStatus) String() string {
	switch s {
	case SearchInitial:
		return "initial"
	case SearchNoResults:
		return "no_results"
	case SearchResults:
		return "results"
	}
	return "invalid"
}

// SearchResult is the outcome of the latest search. Members is
// non-empty exactly when Status is SearchResults.
type SearchResult struct {
	Status  SearchStatus
	Members []roster.Member
}

func searchResultFor(members []roster.Member) SearchResult {
	if len(members) == 0 {
		return SearchResult{Status: SearchNoResults}
	}
	return SearchResult{Status: SearchResults, Members: members}
}

// State is a snapshot of a Coordinator. Slices are owned by the
// snapshot; callers may keep them.
type State struct {
	RoomID ref.RoomID
	Role   schema.Role

	Query        string
	SearchActive bool
	Search       SearchResult
	// SearchErr is the failure of the latest search, if any. The
	// previous Search result is kept alongside it.
	SearchErr error

	// Selected is the working selection sorted by user ID.
	Selected          []roster.User
	HasPendingChanges bool

	Exit AsyncAction
	Save AsyncAction

	// Loaded is true once the initial snapshot has been read.
	Loaded bool
	// LoadErr is the *DirectoryError of a failed initial load. The
	// snapshot stays empty and LoadInitial may be retried.
	LoadErr error
}

// IsSelected reports whether userID is in the working selection.
func (s State) IsSelected(userID ref.UserID) bool {
	for _, user := range s.Selected {
		if user.UserID == userID {
			return true
		}
	}
	return false
}
