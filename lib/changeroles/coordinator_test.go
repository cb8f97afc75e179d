// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package changeroles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bureau-foundation/bureau-roles/lib/ref"
	"github.com/bureau-foundation/bureau-roles/lib/roster"
	"github.com/bureau-foundation/bureau-roles/lib/schema"
	"github.com/bureau-foundation/bureau-roles/lib/testutil"
)

func TestNewValidates(t *testing.T) {
	t.Parallel()
	directory := &fakeDirectory{}
	assigner := &fakeAssigner{}
	valid := Config{
		RoomID:      testRoom,
		Role:        schema.RoleModerator,
		RequesterID: testRequester,
		Directory:   directory,
		Assigner:    assigner,
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing room", func(c *Config) { c.RoomID = ref.RoomID{} }},
		{"baseline role", func(c *Config) { c.Role = schema.RoleUser }},
		{"unknown role", func(c *Config) { c.Role = schema.RoleUnknown }},
		{"missing requester", func(c *Config) { c.RequesterID = ref.UserID{} }},
		{"missing directory", func(c *Config) { c.Directory = nil }},
		{"missing assigner", func(c *Config) { c.Assigner = nil }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			config := valid
			test.mutate(&config)
			if _, err := New(config); err == nil {
				t.Error("expected error")
			}
		})
	}

	coordinator, err := New(valid)
	if err != nil {
		t.Fatalf("New(valid): %v", err)
	}
	coordinator.Close()
}

func TestLoadInitialTakesExactRoleHolders(t *testing.T) {
	t.Parallel()
	invited := member("@invited:test.local", "Invited", schema.RoleModerator)
	invited.Membership = roster.MembershipInvite
	h := newHarness(t, schema.RoleModerator,
		member("@admin:test.local", "Admin", schema.RoleAdmin),
		member("@mod:test.local", "Mod", schema.RoleModerator),
		member("@user:test.local", "User", schema.RoleUser),
		invited,
	)

	state := h.load(t)
	if !state.Loaded || state.LoadErr != nil {
		t.Fatalf("Loaded = %v, LoadErr = %v", state.Loaded, state.LoadErr)
	}
	want := []string{"@invited:test.local", "@mod:test.local"}
	if got := selectedIDs(state); !sameStrings(got, want) {
		t.Errorf("selection = %v, want %v", got, want)
	}
	if state.HasPendingChanges {
		t.Error("fresh load should have no pending changes")
	}
}

func TestLoadInitialFailureThenRetry(t *testing.T) {
	t.Parallel()
	h := newHarness(t, schema.RoleAdmin, member("@admin:test.local", "Admin", schema.RoleAdmin))
	boom := errors.New("homeserver unavailable")
	h.directory.err = boom

	err := wait(t, h.coordinator.LoadInitial())
	var directoryErr *DirectoryError
	if !errors.As(err, &directoryErr) || directoryErr.Op != "load" || !errors.Is(err, boom) {
		t.Fatalf("LoadInitial error = %v, want load DirectoryError wrapping cause", err)
	}
	state := h.coordinator.State()
	if state.Loaded || state.LoadErr == nil || len(state.Selected) != 0 {
		t.Fatalf("after failure: Loaded=%v LoadErr=%v Selected=%v", state.Loaded, state.LoadErr, selectedIDs(state))
	}

	h.directory.mutex.Lock()
	h.directory.err = nil
	h.directory.mutex.Unlock()
	state = h.load(t)
	if state.LoadErr != nil || !sameStrings(selectedIDs(state), []string{"@admin:test.local"}) {
		t.Errorf("after retry: LoadErr=%v Selected=%v", state.LoadErr, selectedIDs(state))
	}
}

func TestLoadInitialSnapshotIsTakenOnce(t *testing.T) {
	t.Parallel()
	mod := member("@mod:test.local", "Mod", schema.RoleModerator)
	bob := member("@bob:test.local", "Bob", schema.RoleUser)
	h := newHarness(t, schema.RoleModerator, mod, bob)
	h.load(t)
	h.coordinator.ToggleSelection(bob)

	// The room changes underneath the editor.
	h.directory.mutex.Lock()
	h.directory.members = append(h.directory.members, member("@carol:test.local", "Carol", schema.RoleModerator))
	h.directory.mutex.Unlock()

	if err := wait(t, h.coordinator.LoadInitial()); err != nil {
		t.Fatalf("second LoadInitial: %v", err)
	}
	h.directory.mutex.Lock()
	calls := h.directory.calls
	h.directory.mutex.Unlock()
	if calls != 1 {
		t.Errorf("directory listed %d times, want 1", calls)
	}

	state := h.coordinator.State()
	want := []string{"@bob:test.local", "@mod:test.local"}
	if !sameStrings(selectedIDs(state), want) || !state.HasPendingChanges {
		t.Fatalf("selection = %v pending = %v, want %v pending", selectedIDs(state), state.HasPendingChanges, want)
	}

	if err := wait(t, h.coordinator.Save()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	assignments := h.assigner.recorded()
	if len(assignments) != 1 || assignments[0].UserID != bob.UserID || assignments[0].Role != schema.RoleModerator {
		t.Errorf("assignments = %+v, want only bob promoted", assignments)
	}
}

func TestToggleBeforeLoadIsIgnored(t *testing.T) {
	t.Parallel()
	h := newHarness(t, schema.RoleModerator, member("@mod:test.local", "Mod", schema.RoleModerator))
	h.coordinator.ToggleSelection(member("@early:test.local", "Early", schema.RoleUser))
	if state := h.coordinator.State(); len(state.Selected) != 0 || state.HasPendingChanges {
		t.Fatalf("before load: selected=%v pending=%v", selectedIDs(state), state.HasPendingChanges)
	}
	state := h.load(t)
	if !sameStrings(selectedIDs(state), []string{"@mod:test.local"}) || state.HasPendingChanges {
		t.Errorf("after load: selected=%v pending=%v", selectedIDs(state), state.HasPendingChanges)
	}
}

func TestSaveBeforeLoadFails(t *testing.T) {
	t.Parallel()
	mod := member("@mod:test.local", "Mod", schema.RoleModerator)
	h := newHarness(t, schema.RoleModerator, mod)

	started := make(chan struct{})
	release := make(chan struct{})
	h.directory.listHook = func(ctx context.Context, call int) ([]roster.Member, error) {
		close(started)
		select {
		case <-release:
			return []roster.Member{mod}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	load := h.coordinator.LoadInitial()
	testutil.RequireClosed(t, started, 5*time.Second, "load started")
	if err := wait(t, h.coordinator.Save()); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Save during load = %v, want ErrNotLoaded", err)
	}
	if got := h.coordinator.State().Save.Status; got != ActionUninitialized {
		t.Errorf("Save axis = %s, want uninitialized", got)
	}

	close(release)
	if err := wait(t, load); err != nil {
		t.Fatalf("LoadInitial: %v", err)
	}
	state := h.coordinator.State()
	if !sameStrings(selectedIDs(state), []string{"@mod:test.local"}) || state.HasPendingChanges {
		t.Errorf("after load: selected=%v pending=%v", selectedIDs(state), state.HasPendingChanges)
	}
	if calls := h.assigner.recorded(); len(calls) != 0 {
		t.Errorf("assignments = %+v, want none", calls)
	}
}

func TestToggleSelectionIsAnInvolution(t *testing.T) {
	t.Parallel()
	bob := member("@bob:test.local", "Bob", schema.RoleUser)
	h := newHarness(t, schema.RoleModerator, member("@mod:test.local", "Mod", schema.RoleModerator))
	before := selectedIDs(h.load(t))

	h.coordinator.ToggleSelection(bob)
	state := h.coordinator.State()
	if !state.IsSelected(bob.UserID) || !state.HasPendingChanges {
		t.Fatalf("after first toggle: selected=%v pending=%v", selectedIDs(state), state.HasPendingChanges)
	}
	h.coordinator.ToggleSelection(bob)
	state = h.coordinator.State()
	if !sameStrings(selectedIDs(state), before) || state.HasPendingChanges {
		t.Errorf("after second toggle: selected=%v pending=%v", selectedIDs(state), state.HasPendingChanges)
	}
}

func TestPendingChangesUsesSetInequality(t *testing.T) {
	t.Parallel()
	mod := member("@mod:test.local", "Mod", schema.RoleModerator)
	other := member("@other:test.local", "Other", schema.RoleUser)
	h := newHarness(t, schema.RoleModerator, mod, other)
	h.load(t)

	// Same size, different members.
	h.coordinator.ToggleSelection(mod)
	h.coordinator.ToggleSelection(other)
	state := h.coordinator.State()
	if len(state.Selected) != 1 || !state.HasPendingChanges {
		t.Errorf("swap: selected=%v pending=%v, want one member and pending", selectedIDs(state), state.HasPendingChanges)
	}
}

func TestCanRemove(t *testing.T) {
	t.Parallel()
	self := member("@admin:test.local", "Me", schema.RoleAdmin)
	peer := member("@peer:test.local", "Peer", schema.RoleAdmin)
	mod := member("@mod:test.local", "Mod", schema.RoleModerator)
	user := member("@user:test.local", "User", schema.RoleUser)

	tests := []struct {
		name      string
		member    roster.Member
		requester ref.UserID
		want      bool
	}{
		{"admin demoting self", self, testRequester, true},
		{"admin demoting peer admin", peer, testRequester, false},
		{"moderator by admin", mod, testRequester, true},
		{"moderator by someone else", mod, peer.UserID, true},
		{"user by anyone", user, mod.UserID, true},
		{"admin by moderator", self, mod.UserID, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := CanRemove(test.member, test.requester); got != test.want {
				t.Errorf("CanRemove = %v, want %v", got, test.want)
			}
		})
	}

	h := newHarness(t, schema.RoleAdmin)
	if !h.coordinator.CanRemove(self) || h.coordinator.CanRemove(peer) {
		t.Error("Coordinator.CanRemove should apply the policy with the configured requester")
	}
}

func TestRequestExit(t *testing.T) {
	t.Parallel()

	t.Run("no pending changes exits immediately", func(t *testing.T) {
		h := newHarness(t, schema.RoleModerator)
		h.load(t)
		h.coordinator.RequestExit()
		if got := h.coordinator.State().Exit.Status; got != ActionSuccess {
			t.Errorf("Exit = %s, want success", got)
		}
	})

	t.Run("pending changes confirm first", func(t *testing.T) {
		h := newHarness(t, schema.RoleModerator)
		h.load(t)
		h.coordinator.ToggleSelection(member("@bob:test.local", "Bob", schema.RoleUser))

		h.coordinator.RequestExit()
		if got := h.coordinator.State().Exit.Status; got != ActionConfirming {
			t.Fatalf("Exit = %s, want confirming", got)
		}
		h.coordinator.RequestExit()
		if got := h.coordinator.State().Exit.Status; got != ActionSuccess {
			t.Errorf("Exit = %s, want success", got)
		}
	})

	t.Run("cancel returns to uninitialized", func(t *testing.T) {
		h := newHarness(t, schema.RoleModerator)
		h.load(t)
		h.coordinator.ToggleSelection(member("@bob:test.local", "Bob", schema.RoleUser))
		h.coordinator.RequestExit()
		h.coordinator.CancelExit()
		if got := h.coordinator.State().Exit.Status; got != ActionUninitialized {
			t.Errorf("Exit = %s, want uninitialized", got)
		}
		h.coordinator.RequestExit()
		if got := h.coordinator.State().Exit.Status; got != ActionConfirming {
			t.Errorf("Exit after cancel = %s, want confirming again", got)
		}
	})

	t.Run("cancel outside confirming does nothing", func(t *testing.T) {
		h := newHarness(t, schema.RoleModerator)
		h.load(t)
		h.coordinator.RequestExit()
		h.coordinator.CancelExit()
		if got := h.coordinator.State().Exit.Status; got != ActionSuccess {
			t.Errorf("Exit = %s, want success to stand", got)
		}
	})
}

func TestSubscribeDeliversLatestState(t *testing.T) {
	t.Parallel()
	h := newHarness(t, schema.RoleModerator)
	updates, unsubscribe := h.coordinator.Subscribe()

	h.coordinator.ToggleSearchActive()
	h.coordinator.ToggleSearchActive()
	h.coordinator.ToggleSearchActive()

	state := testutil.RequireReceive(t, updates, 5*time.Second, "state after toggles")
	if !state.SearchActive {
		t.Error("buffered state should be the latest (search active)")
	}
	select {
	case extra := <-updates:
		t.Errorf("unexpected second buffered state: %+v", extra)
	default:
	}

	unsubscribe()
	testutil.RequireClosed(t, updates, 5*time.Second, "unsubscribe closes the channel")
	unsubscribe()
}

func TestCloseStopsEverything(t *testing.T) {
	t.Parallel()
	h := newHarness(t, schema.RoleModerator)
	h.load(t)
	h.coordinator.ToggleSelection(member("@bob:test.local", "Bob", schema.RoleUser))

	h.assigner.gate = make(chan struct{})
	h.assigner.started = make(chan struct{}, 1)
	updates, _ := h.coordinator.Subscribe()

	saveTask := h.coordinator.Save()
	testutil.RequireReceive(t, h.assigner.started, 5*time.Second, "assignment started")

	if err := h.coordinator.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case <-saveTask.Done():
	default:
		t.Fatal("Close returned before the save task finished")
	}
	if !errors.Is(saveTask.Err(), context.Canceled) {
		t.Errorf("save error = %v, want context.Canceled", saveTask.Err())
	}

	for range updates {
	}
	if err := wait(t, h.coordinator.LoadInitial()); !errors.Is(err, ErrClosed) {
		t.Errorf("LoadInitial after Close = %v, want ErrClosed", err)
	}
	if err := wait(t, h.coordinator.Search("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("Search after Close = %v, want ErrClosed", err)
	}
	if err := wait(t, h.coordinator.Save()); !errors.Is(err, ErrClosed) {
		t.Errorf("Save after Close = %v, want ErrClosed", err)
	}
	closedUpdates, _ := h.coordinator.Subscribe()
	testutil.RequireClosed(t, closedUpdates, 5*time.Second, "subscribe after close")
	if err := h.coordinator.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	// The cancelled attempt is still journaled.
	h.recorder.mutex.Lock()
	defer h.recorder.mutex.Unlock()
	if len(h.recorder.reports) != 1 {
		t.Errorf("recorded %d reports, want 1", len(h.recorder.reports))
	}
}
