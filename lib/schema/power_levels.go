// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bureau-foundation/bureau-roles/lib/ref"
)

// PowerLevels is the content of an m.room.power_levels state event.
//
// Pointer fields distinguish "absent" from "explicitly zero" so a
// read-modify-write leaves every field the caller did not touch exactly
// as the server had it.
type PowerLevels struct {
	Users         map[string]int `json:"users,omitempty"`
	UsersDefault  *int           `json:"users_default,omitempty"`
	Events        map[string]int `json:"events,omitempty"`
	EventsDefault *int           `json:"events_default,omitempty"`
	StateDefault  *int           `json:"state_default,omitempty"`
	Invite        *int           `json:"invite,omitempty"`
	Ban           *int           `json:"ban,omitempty"`
	Kick          *int           `json:"kick,omitempty"`
	Redact        *int           `json:"redact,omitempty"`
	Notifications map[string]int `json:"notifications,omitempty"`
}

// ParsePowerLevels decodes raw state event content.
func ParsePowerLevels(content json.RawMessage) (*PowerLevels, error) {
	var powerLevels PowerLevels
	if err := json.Unmarshal(content, &powerLevels); err != nil {
		return nil, fmt.Errorf("parsing power levels: %w", err)
	}
	return &powerLevels, nil
}

// UserLevel returns the level of userID: the explicit entry if one
// exists, otherwise users_default, otherwise 0.
func (powerLevels *PowerLevels) UserLevel(userID ref.UserID) int {
	if level, ok := powerLevels.Users[userID.String()]; ok {
		return level
	}
	if powerLevels.UsersDefault != nil {
		return *powerLevels.UsersDefault
	}
	return 0
}

// UserRole returns the tier userID currently holds.
func (powerLevels *PowerLevels) UserRole(userID ref.UserID) Role {
	return RoleForPowerLevel(powerLevels.UserLevel(userID))
}

// SetUserLevel records an explicit level for userID.
func (powerLevels *PowerLevels) SetUserLevel(userID ref.UserID, level int) {
	if powerLevels.Users == nil {
		powerLevels.Users = make(map[string]int)
	}
	powerLevels.Users[userID.String()] = level
}

// StateSession is the part of the Matrix client-server API needed to
// read and write a state event. messaging.DirectSession satisfies it.
type StateSession interface {
	GetStateEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, stateKey string) (json.RawMessage, error)
	SendStateEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, stateKey string, content any) (ref.EventID, error)
}

// UpdatePowerLevels reads the room's power levels, passes them to
// mutate, and writes the result back. If mutate returns an error
// nothing is written and the error is returned unwrapped so callers can
// match sentinel errors from their own mutate function.
//
// The read and write are not atomic with respect to other writers; a
// concurrent change between them is overwritten.
func UpdatePowerLevels(ctx context.Context, session StateSession, roomID ref.RoomID, mutate func(*PowerLevels) error) (ref.EventID, error) {
	content, err := session.GetStateEvent(ctx, roomID, MatrixEventTypePowerLevels, "")
	if err != nil {
		return ref.EventID{}, fmt.Errorf("reading power levels for %s: %w", roomID, err)
	}
	powerLevels, err := ParsePowerLevels(content)
	if err != nil {
		return ref.EventID{}, fmt.Errorf("%s: %w", roomID, err)
	}

	if err := mutate(powerLevels); err != nil {
		return ref.EventID{}, err
	}

	eventID, err := session.SendStateEvent(ctx, roomID, MatrixEventTypePowerLevels, "", powerLevels)
	if err != nil {
		return ref.EventID{}, fmt.Errorf("writing power levels for %s: %w", roomID, err)
	}
	return eventID, nil
}
