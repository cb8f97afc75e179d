// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/bureau-roles/lib/ref"
)

// SyncFilter narrows what a RoomWatcher receives. The watched room is
// always the only room in the filter. A nil *SyncFilter means every
// state and timeline event of that room.
type SyncFilter struct {
	// Types restricts both state and timeline events to these event
	// types. Empty means all types.
	Types []ref.EventType

	// TimelineLimit caps timeline events per response. Zero leaves the
	// server default.
	TimelineLimit int
}

// buildInlineFilter renders the /sync filter JSON for one room.
// Presence and account data are always suppressed.
func buildInlineFilter(roomID ref.RoomID, filter *SyncFilter) string {
	roomFilter := map[string]any{
		"rooms": []string{roomID.String()},
	}
	if filter != nil {
		timeline := map[string]any{}
		if len(filter.Types) > 0 {
			types := make([]string, len(filter.Types))
			for i, eventType := range filter.Types {
				types[i] = eventType.String()
			}
			timeline["types"] = types
			roomFilter["state"] = map[string]any{"types": types}
		}
		if filter.TimelineLimit > 0 {
			timeline["limit"] = filter.TimelineLimit
		}
		if len(timeline) > 0 {
			roomFilter["timeline"] = timeline
		}
	}

	top := map[string]any{
		"room":         roomFilter,
		"presence":     map[string]any{"types": []string{}},
		"account_data": map[string]any{"types": []string{}},
	}
	data, _ := json.Marshal(top)
	return string(data)
}

// maxSyncRetries is the number of consecutive /sync failures tolerated
// before the watcher gives up.
const maxSyncRetries = 5

// longPollTimeout is the server-side hold for /sync, in milliseconds.
const longPollTimeout = 30000

// retryTimeout is the hold used right after a failed /sync so the
// round-trip itself is the backoff.
const retryTimeout = 1000

// RoomWatcher follows one room's /sync stream from a captured
// position. Not safe for concurrent use; create one watcher per
// goroutine. Session.Sync is stateless (the since token is a query
// parameter), so several watchers can share a session.
type RoomWatcher struct {
	session   Session
	roomID    ref.RoomID
	filter    string
	nextBatch string
	pending   []Event
	logger    *slog.Logger
}

// WatchRoom captures the current stream position with a non-blocking
// /sync. The watcher only sees events arriving after this call.
func WatchRoom(ctx context.Context, session Session, roomID ref.RoomID, filter *SyncFilter) (*RoomWatcher, error) {
	if roomID.IsZero() {
		return nil, fmt.Errorf("messaging: WatchRoom requires a non-zero room ID")
	}
	inlineFilter := buildInlineFilter(roomID, filter)
	response, err := session.Sync(ctx, SyncOptions{
		SetTimeout: true,
		Timeout:    0,
		Filter:     inlineFilter,
	})
	if err != nil {
		return nil, fmt.Errorf("messaging: initial sync for room watch: %w", err)
	}
	return &RoomWatcher{
		session:   session,
		roomID:    roomID,
		filter:    inlineFilter,
		nextBatch: response.NextBatch,
		logger:    slog.Default(),
	}, nil
}

// SetLogger replaces the watcher's logger (slog.Default otherwise).
func (w *RoomWatcher) SetLogger(logger *slog.Logger) {
	if logger != nil {
		w.logger = logger
	}
}

// Next returns the next non-empty batch of room events, state events
// first. Events left pending by WaitForEvent are returned before any
// new /sync. Blocks until events arrive, ctx ends, or /sync fails more
// than maxSyncRetries times in a row.
func (w *RoomWatcher) Next(ctx context.Context) ([]Event, error) {
	if len(w.pending) > 0 {
		batch := w.pending
		w.pending = nil
		return batch, nil
	}

	var syncRetries int
	for {
		syncTimeout := longPollTimeout
		if syncRetries > 0 {
			syncTimeout = retryTimeout
		}
		response, err := w.session.Sync(ctx, SyncOptions{
			Since:      w.nextBatch,
			SetTimeout: true,
			Timeout:    syncTimeout,
			Filter:     w.filter,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("messaging: watching room %s: %w", w.roomID, ctx.Err())
			}
			syncRetries++
			if closer, ok := w.session.(interface{ CloseIdleConnections() }); ok {
				closer.CloseIdleConnections()
			}
			if syncRetries > maxSyncRetries {
				return nil, fmt.Errorf("messaging: sync failed %d consecutive times watching room %s: %w",
					syncRetries, w.roomID, err)
			}
			w.logger.Debug("room watcher sync error, retrying",
				"room_id", w.roomID,
				"attempt", syncRetries,
				"max_attempts", maxSyncRetries,
				"error", err,
			)
			continue
		}
		syncRetries = 0
		w.nextBatch = response.NextBatch

		// /sync returns as soon as any room has activity; the watched
		// room may be absent.
		joined, ok := response.Rooms.Join[w.roomID]
		if !ok {
			continue
		}
		stateCount := len(joined.State.Events)
		timelineCount := len(joined.Timeline.Events)
		if stateCount == 0 && timelineCount == 0 {
			continue
		}

		w.logger.Debug("room watcher received events",
			"room_id", w.roomID,
			"state_events", stateCount,
			"timeline_events", timelineCount,
		)

		batch := make([]Event, 0, stateCount+timelineCount)
		batch = append(batch, joined.State.Events...)
		batch = append(batch, joined.Timeline.Events...)
		return batch, nil
	}
}

// WaitForEvent blocks until an event matching predicate arrives.
// Non-matching events from the same batch stay pending for later
// calls, so nothing delivered alongside the match is lost.
func (w *RoomWatcher) WaitForEvent(ctx context.Context, predicate func(Event) bool) (Event, error) {
	var scanned []Event
	for {
		batch, err := w.Next(ctx)
		if err != nil {
			w.pending = append(scanned, w.pending...)
			return Event{}, err
		}
		for i, event := range batch {
			if predicate(event) {
				rest := append(scanned, batch[:i]...)
				w.pending = append(rest, batch[i+1:]...)
				return event, nil
			}
		}
		scanned = append(scanned, batch...)
	}
}

// SyncPosition returns the current stream token.
func (w *RoomWatcher) SyncPosition() string {
	return w.nextBatch
}

// RoomID returns the watched room.
func (w *RoomWatcher) RoomID() ref.RoomID {
	return w.roomID
}
