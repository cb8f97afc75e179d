// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roster

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/bureau-foundation/bureau-roles/lib/ref"
	"github.com/bureau-foundation/bureau-roles/lib/schema"
	"github.com/bureau-foundation/bureau-roles/messaging"
)

// fakeSession is an in-memory homeserver for one room. Sync returns
// immediately when since is empty and otherwise blocks on syncs.
type fakeSession struct {
	userID ref.UserID

	mutex       sync.Mutex
	members     []messaging.RoomMember
	powerLevels json.RawMessage // nil means M_NOT_FOUND
	membersErr  error
	writes      []schema.PowerLevels
	listCalls   int
	// sendErrs are returned, in order, by the next SendStateEvent
	// calls before any write is accepted.
	sendErrs []error

	syncs chan *messaging.SyncResponse
}

func newFakeSession(userID string) *fakeSession {
	return &fakeSession{
		userID: ref.MustParseUserID(userID),
		syncs:  make(chan *messaging.SyncResponse),
	}
}

func (s *fakeSession) setPowerLevels(users map[string]int) {
	data, err := json.Marshal(schema.PowerLevels{Users: users})
	if err != nil {
		panic(err)
	}
	s.mutex.Lock()
	s.powerLevels = data
	s.mutex.Unlock()
}

func (s *fakeSession) addMember(userID, displayName, membership string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.members = append(s.members, messaging.RoomMember{
		UserID:      ref.MustParseUserID(userID),
		DisplayName: displayName,
		Membership:  membership,
	})
}

func (s *fakeSession) UserID() ref.UserID { return s.userID }

func (s *fakeSession) WhoAmI(context.Context) (ref.UserID, error) { return s.userID, nil }

func (s *fakeSession) ResolveAlias(context.Context, ref.RoomAlias) (ref.RoomID, error) {
	return ref.RoomID{}, &messaging.MatrixError{Code: messaging.ErrCodeNotFound, StatusCode: 404}
}

func (s *fakeSession) GetRoomMembers(ctx context.Context, roomID ref.RoomID) ([]messaging.RoomMember, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.listCalls++
	if s.membersErr != nil {
		return nil, s.membersErr
	}
	return append([]messaging.RoomMember(nil), s.members...), nil
}

func (s *fakeSession) GetStateEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, stateKey string) (json.RawMessage, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if eventType != schema.MatrixEventTypePowerLevels || s.powerLevels == nil {
		return nil, &messaging.MatrixError{Code: messaging.ErrCodeNotFound, StatusCode: 404}
	}
	return append(json.RawMessage(nil), s.powerLevels...), nil
}

func (s *fakeSession) SendStateEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, stateKey string, content any) (ref.EventID, error) {
	data, err := json.Marshal(content)
	if err != nil {
		return ref.EventID{}, err
	}
	var written schema.PowerLevels
	if err := json.Unmarshal(data, &written); err != nil {
		return ref.EventID{}, err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if len(s.sendErrs) > 0 {
		err := s.sendErrs[0]
		s.sendErrs = s.sendErrs[1:]
		return ref.EventID{}, err
	}
	s.powerLevels = data
	s.writes = append(s.writes, written)
	return ref.MustParseEventID("$write"), nil
}

func (s *fakeSession) Sync(ctx context.Context, options messaging.SyncOptions) (*messaging.SyncResponse, error) {
	if options.Since == "" {
		return &messaging.SyncResponse{NextBatch: "s0"}, nil
	}
	select {
	case response := <-s.syncs:
		return response, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *fakeSession) Close() error { return nil }

func (s *fakeSession) writeCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.writes)
}
