// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"

	"github.com/bureau-foundation/bureau-roles/lib/ref"
)

// Session is an authenticated Matrix session. [*DirectSession] is the
// production implementation.
type Session interface {
	// UserID returns the user the session acts as.
	UserID() ref.UserID

	// WhoAmI asks the homeserver which user the access token belongs to.
	WhoAmI(ctx context.Context) (ref.UserID, error)

	// ResolveAlias maps a room alias to its room ID.
	ResolveAlias(ctx context.Context, alias ref.RoomAlias) (ref.RoomID, error)

	// GetRoomMembers lists the room's member events.
	GetRoomMembers(ctx context.Context, roomID ref.RoomID) ([]RoomMember, error)

	// GetStateEvent returns the content of one state event. A missing
	// event is a *MatrixError with code M_NOT_FOUND.
	GetStateEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, stateKey string) (json.RawMessage, error)

	// SendStateEvent writes a state event and returns its event ID.
	SendStateEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, stateKey string, content any) (ref.EventID, error)

	// Sync performs one /sync request.
	Sync(ctx context.Context, options SyncOptions) (*SyncResponse, error)

	// Close releases the session's credentials.
	Close() error
}

var _ Session = (*DirectSession)(nil)
