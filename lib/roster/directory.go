// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roster

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/bureau-roles/lib/ref"
	"github.com/bureau-foundation/bureau-roles/lib/schema"
	"github.com/bureau-foundation/bureau-roles/messaging"
)

// Directory lists a room's members with their roles.
type Directory interface {
	// ListMembers returns every member of the room, any membership,
	// in no particular order.
	ListMembers(ctx context.Context, roomID ref.RoomID) ([]Member, error)

	// ObserveMembers delivers the current member list and then a fresh
	// list after each membership or power level change. Only the
	// latest list is buffered; a slow reader skips intermediate ones.
	// The channel is closed when ctx ends or the stream fails.
	ObserveMembers(ctx context.Context, roomID ref.RoomID) (<-chan []Member, error)
}

// MatrixDirectory reads members and power levels from a homeserver.
type MatrixDirectory struct {
	session messaging.Session
	logger  *slog.Logger
}

var _ Directory = (*MatrixDirectory)(nil)

// NewMatrixDirectory creates a directory over session. A nil logger
// uses slog.Default().
func NewMatrixDirectory(session messaging.Session, logger *slog.Logger) *MatrixDirectory {
	if logger == nil {
		logger = slog.Default()
	}
	return &MatrixDirectory{session: session, logger: logger}
}

// ListMembers fetches /members and m.room.power_levels concurrently and
// joins them. A room without a power levels event puts every member at
// level 0.
func (d *MatrixDirectory) ListMembers(ctx context.Context, roomID ref.RoomID) ([]Member, error) {
	var (
		roomMembers []messaging.RoomMember
		powerLevels *schema.PowerLevels
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		roomMembers, err = d.session.GetRoomMembers(groupCtx, roomID)
		return err
	})
	group.Go(func() error {
		var err error
		powerLevels, err = d.readPowerLevels(groupCtx, roomID)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("roster: listing members of %s: %w", roomID, err)
	}

	members := make([]Member, 0, len(roomMembers))
	for _, roomMember := range roomMembers {
		level := powerLevels.UserLevel(roomMember.UserID)
		members = append(members, Member{
			UserID:      roomMember.UserID,
			DisplayName: roomMember.DisplayName,
			AvatarURL:   roomMember.AvatarURL,
			Membership:  Membership(roomMember.Membership),
			Role:        schema.RoleForPowerLevel(level),
			PowerLevel:  level,
		})
	}
	return members, nil
}

func (d *MatrixDirectory) readPowerLevels(ctx context.Context, roomID ref.RoomID) (*schema.PowerLevels, error) {
	content, err := d.session.GetStateEvent(ctx, roomID, schema.MatrixEventTypePowerLevels, "")
	if err != nil {
		if messaging.IsMatrixError(err, messaging.ErrCodeNotFound) {
			d.logger.Debug("room has no power levels event", "room_id", roomID)
			return &schema.PowerLevels{}, nil
		}
		return nil, err
	}
	return schema.ParsePowerLevels(content)
}

// membershipAffecting is the event filter for ObserveMembers.
var membershipAffecting = []ref.EventType{
	schema.MatrixEventTypeRoomMember,
	schema.MatrixEventTypePowerLevels,
}

// ObserveMembers captures the /sync position, lists the members, and
// re-lists whenever an m.room.member or m.room.power_levels event
// arrives. A failed re-list is logged and the previous list stands.
func (d *MatrixDirectory) ObserveMembers(ctx context.Context, roomID ref.RoomID) (<-chan []Member, error) {
	// Capture the stream position before the first list so no change
	// between the two is missed.
	watcher, err := messaging.WatchRoom(ctx, d.session, roomID, &messaging.SyncFilter{
		Types: membershipAffecting,
	})
	if err != nil {
		return nil, fmt.Errorf("roster: observing %s: %w", roomID, err)
	}
	watcher.SetLogger(d.logger)

	initial, err := d.ListMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}

	updates := make(chan []Member, 1)
	updates <- initial

	go func() {
		defer close(updates)
		for {
			batch, err := watcher.Next(ctx)
			if err != nil {
				if ctx.Err() == nil {
					d.logger.Warn("member observation stopped",
						"room_id", roomID,
						"error", err,
					)
				}
				return
			}
			if !containsAffecting(batch) {
				continue
			}
			members, err := d.ListMembers(ctx, roomID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				d.logger.Warn("re-listing members after change failed",
					"room_id", roomID,
					"error", err,
				)
				continue
			}
			publishLatest(updates, members)
		}
	}()

	return updates, nil
}

func containsAffecting(events []messaging.Event) bool {
	for _, event := range events {
		if !event.IsState() {
			continue
		}
		for _, eventType := range membershipAffecting {
			if event.Type == eventType {
				return true
			}
		}
	}
	return false
}

// publishLatest replaces any unread list with members. The caller is
// the channel's only sender, so the send after the drain never blocks.
func publishLatest(updates chan []Member, members []Member) {
	select {
	case <-updates:
	default:
	}
	updates <- members
}
