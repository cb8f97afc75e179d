// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roles

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bureau-foundation/bureau-roles/messaging"
)

const (
	testRoomID = "!ops:example.org"
	testAlias  = "#ops:example.org"
	testToken  = "syt_test_token"
	testUser   = "@alice:example.org"
)

// fakeHomeserver answers the Matrix endpoints the roles commands use
// for a single room.
type fakeHomeserver struct {
	server *httptest.Server

	mutex       sync.Mutex
	members     []messaging.RoomMemberEvent
	users       map[string]int
	rejectPuts  bool
	puts        int
	eventSerial int

	// syncEvents releases one long-poll /sync with a power levels
	// event.
	syncEvents chan struct{}
}

func newFakeHomeserver(t *testing.T) *fakeHomeserver {
	t.Helper()
	fake := &fakeHomeserver{
		users: map[string]int{
			"@alice:example.org": 100,
			"@bob:example.org":   100,
			"@carol:example.org": 50,
			"@erin:example.org":  50,
		},
		syncEvents: make(chan struct{}, 4),
	}
	fake.addMember("@alice:example.org", "Alice", "join")
	fake.addMember("@bob:example.org", "Bob", "join")
	fake.addMember("@carol:example.org", "Carol", "join")
	fake.addMember("@dave:example.org", "Dave", "join")
	fake.addMember("@erin:example.org", "Erin", "invite")

	fake.server = httptest.NewServer(http.HandlerFunc(fake.serveHTTP))
	t.Cleanup(fake.server.Close)
	return fake
}

func (f *fakeHomeserver) addMember(userID, displayName, membership string) {
	f.members = append(f.members, messaging.RoomMemberEvent{
		Type:     "m.room.member",
		StateKey: userID,
		Content: messaging.RoomMemberContent{
			Membership:  membership,
			DisplayName: displayName,
		},
	})
}

// level returns userID's explicit power level and whether one is set.
func (f *fakeHomeserver) level(userID string) (int, bool) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	level, ok := f.users[userID]
	return level, ok
}

func (f *fakeHomeserver) setLevel(userID string, level int) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.users[userID] = level
}

func (f *fakeHomeserver) putCount() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.puts
}

func (f *fakeHomeserver) setRejectPuts(reject bool) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.rejectPuts = reject
}

// sessionArgs are the flags that point a command at the fake.
func (f *fakeHomeserver) sessionArgs() []string {
	return []string{"--homeserver", f.server.URL, "--token", testToken, "--user-id", testUser}
}

func (f *fakeHomeserver) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+testToken {
		writeMatrixError(w, http.StatusUnauthorized, "M_UNKNOWN_TOKEN", "bad token")
		return
	}

	roomPrefix := "/_matrix/client/v3/rooms/" + testRoomID
	path := r.URL.Path
	switch {
	case path == "/_matrix/client/v3/account/whoami":
		writeJSON(w, map[string]string{"user_id": testUser})
	case path == "/_matrix/client/v3/directory/room/"+testAlias:
		writeJSON(w, map[string]any{"room_id": testRoomID, "servers": []string{"example.org"}})
	case strings.HasPrefix(path, "/_matrix/client/v3/directory/room/"):
		writeMatrixError(w, http.StatusNotFound, "M_NOT_FOUND", "no such alias")
	case path == roomPrefix+"/members":
		f.mutex.Lock()
		chunk := append([]messaging.RoomMemberEvent(nil), f.members...)
		f.mutex.Unlock()
		writeJSON(w, map[string]any{"chunk": chunk})
	case path == roomPrefix+"/state/m.room.power_levels" && r.Method == http.MethodGet:
		f.mutex.Lock()
		users := make(map[string]int, len(f.users))
		for userID, level := range f.users {
			users[userID] = level
		}
		f.mutex.Unlock()
		writeJSON(w, map[string]any{"users": users, "users_default": 0})
	case path == roomPrefix+"/state/m.room.power_levels" && r.Method == http.MethodPut:
		f.handlePut(w, r)
	case path == "/_matrix/client/v3/sync":
		f.handleSync(w, r)
	default:
		writeMatrixError(w, http.StatusNotFound, "M_UNRECOGNIZED", "unexpected "+r.Method+" "+path)
	}
}

func (f *fakeHomeserver) handlePut(w http.ResponseWriter, r *http.Request) {
	var content struct {
		Users map[string]int `json:"users"`
	}
	if err := json.NewDecoder(r.Body).Decode(&content); err != nil {
		writeMatrixError(w, http.StatusBadRequest, "M_BAD_JSON", err.Error())
		return
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.rejectPuts {
		writeMatrixError(w, http.StatusForbidden, "M_FORBIDDEN", "not allowed")
		return
	}
	f.puts++
	f.eventSerial++
	f.users = content.Users
	if f.users == nil {
		f.users = make(map[string]int)
	}
	writeJSON(w, map[string]string{"event_id": fmt.Sprintf("$power%d", f.eventSerial)})
}

// handleSync answers the initial position sync at once and holds
// later syncs until syncEvents fires or the client gives up.
func (f *fakeHomeserver) handleSync(w http.ResponseWriter, r *http.Request) {
	since := r.URL.Query().Get("since")
	if since == "" {
		writeJSON(w, map[string]any{"next_batch": "s0"})
		return
	}
	select {
	case <-f.syncEvents:
	case <-r.Context().Done():
		return
	}
	f.mutex.Lock()
	f.eventSerial++
	eventID := fmt.Sprintf("$sync%d", f.eventSerial)
	f.mutex.Unlock()
	writeJSON(w, map[string]any{
		"next_batch": since + "1",
		"rooms": map[string]any{
			"join": map[string]any{
				testRoomID: map[string]any{
					"timeline": map[string]any{
						"events": []map[string]any{{
							"event_id":  eventID,
							"type":      "m.room.power_levels",
							"sender":    testUser,
							"state_key": "",
							"content":   map[string]any{},
						}},
					},
				},
			},
		},
	})
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(value)
}

func writeMatrixError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"errcode": code, "error": message})
}
