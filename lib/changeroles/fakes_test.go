// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package changeroles

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/bureau-roles/lib/clock"
	"github.com/bureau-foundation/bureau-roles/lib/ref"
	"github.com/bureau-foundation/bureau-roles/lib/roster"
	"github.com/bureau-foundation/bureau-roles/lib/schema"
)

var (
	testRoom      = ref.MustParseRoomID("!room:test.local")
	testRequester = ref.MustParseUserID("@admin:test.local")
	testEpoch     = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func member(userID, displayName string, role schema.Role) roster.Member {
	level, _ := role.PowerLevel()
	return roster.Member{
		UserID:      ref.MustParseUserID(userID),
		DisplayName: displayName,
		Membership:  roster.MembershipJoin,
		Role:        role,
		PowerLevel:  level,
	}
}

// fakeDirectory serves a fixed member list. listHook, when set,
// replaces ListMembers entirely.
type fakeDirectory struct {
	mutex    sync.Mutex
	members  []roster.Member
	err      error
	calls    int
	listHook func(ctx context.Context, call int) ([]roster.Member, error)

	observe    chan []roster.Member
	observeErr error
}

func (d *fakeDirectory) ListMembers(ctx context.Context, roomID ref.RoomID) ([]roster.Member, error) {
	d.mutex.Lock()
	d.calls++
	call := d.calls
	hook := d.listHook
	members := append([]roster.Member(nil), d.members...)
	err := d.err
	d.mutex.Unlock()

	if hook != nil {
		return hook(ctx, call)
	}
	return members, err
}

func (d *fakeDirectory) ObserveMembers(ctx context.Context, roomID ref.RoomID) (<-chan []roster.Member, error) {
	if d.observeErr != nil {
		return nil, d.observeErr
	}
	out := make(chan []roster.Member)
	go func() {
		defer close(out)
		for {
			select {
			case members := <-d.observe:
				select {
				case out <- members:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

type assignment struct {
	UserID ref.UserID
	Role   schema.Role
}

// fakeAssigner records calls and fails the users in failures. With
// gate set, every call blocks until gate is closed or ctx ends.
type fakeAssigner struct {
	mutex    sync.Mutex
	calls    []assignment
	failures map[string]error
	gate     chan struct{}
	started  chan struct{}
}

func (a *fakeAssigner) SetRole(ctx context.Context, roomID ref.RoomID, userID ref.UserID, role schema.Role) error {
	a.mutex.Lock()
	a.calls = append(a.calls, assignment{UserID: userID, Role: role})
	gate := a.gate
	started := a.started
	err := a.failures[userID.String()]
	a.mutex.Unlock()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (a *fakeAssigner) recorded() []assignment {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return append([]assignment(nil), a.calls...)
}

type recordingRecorder struct {
	mutex   sync.Mutex
	reports []SaveReport
}

func (r *recordingRecorder) RecordSave(ctx context.Context, report SaveReport) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.reports = append(r.reports, report)
	return nil
}

type harness struct {
	coordinator *Coordinator
	directory   *fakeDirectory
	assigner    *fakeAssigner
	recorder    *recordingRecorder
	clock       *clock.FakeClock
}

func newHarness(t *testing.T, role schema.Role, members ...roster.Member) *harness {
	t.Helper()
	h := &harness{
		directory: &fakeDirectory{members: members, observe: make(chan []roster.Member)},
		assigner:  &fakeAssigner{failures: map[string]error{}},
		recorder:  &recordingRecorder{},
		clock:     clock.Fake(testEpoch),
	}
	coordinator, err := New(Config{
		RoomID:      testRoom,
		Role:        role,
		RequesterID: testRequester,
		Directory:   h.directory,
		Assigner:    h.assigner,
		Recorder:    h.recorder,
		Clock:       h.clock,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { coordinator.Close() })
	h.coordinator = coordinator
	return h
}

// wait runs task to completion and returns its error.
func wait(t *testing.T, task *Task) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second) //nolint:realclock test hang prevention
	defer cancel()
	err := task.Wait(ctx)
	if ctx.Err() != nil {
		t.Fatal("task did not finish")
	}
	return err
}

// load runs LoadInitial and fails the test on error.
func (h *harness) load(t *testing.T) State {
	t.Helper()
	if err := wait(t, h.coordinator.LoadInitial()); err != nil {
		t.Fatalf("LoadInitial: %v", err)
	}
	return h.coordinator.State()
}

func selectedIDs(state State) []string {
	ids := make([]string, len(state.Selected))
	for i, user := range state.Selected {
		ids[i] = user.UserID.String()
	}
	return ids
}

func memberIDs(members []roster.Member) []string {
	ids := make([]string, len(members))
	for i, member := range members {
		ids[i] = member.UserID.String()
	}
	return ids
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
