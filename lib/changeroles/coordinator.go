// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package changeroles

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/bureau-foundation/bureau-roles/lib/clock"
	"github.com/bureau-foundation/bureau-roles/lib/ref"
	"github.com/bureau-foundation/bureau-roles/lib/roster"
	"github.com/bureau-foundation/bureau-roles/lib/schema"
)

// DefaultExitDelay is how long after a successful save the exit axis
// moves to Success.
const DefaultExitDelay = 100 * time.Millisecond

// Config configures a Coordinator.
type Config struct {
	// RoomID is the room being edited. Required.
	RoomID ref.RoomID

	// Role is the role being edited. Must be admin or moderator.
	Role schema.Role

	// RequesterID is the acting user. It decides which admins
	// CanRemove allows. Required.
	RequesterID ref.UserID

	// Directory lists room members. Required.
	Directory roster.Directory

	// Assigner applies role changes. Required.
	Assigner roster.Assigner

	// Recorder, if set, receives a report after every save.
	Recorder Recorder

	// Compare orders search results. Defaults to roster.Compare
	// (role rank, then display name, then user ID).
	Compare func(a, b roster.Member) int

	// Clock defaults to clock.Real().
	Clock clock.Clock

	// ExitDelay defaults to DefaultExitDelay.
	ExitDelay time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Coordinator holds the selection state for one (room, role) pair.
// All methods are safe for concurrent use.
type Coordinator struct {
	roomID      ref.RoomID
	role        schema.Role
	requesterID ref.UserID
	directory   roster.Directory
	assigner    roster.Assigner
	recorder    Recorder
	compare     func(a, b roster.Member) int
	clock       clock.Clock
	exitDelay   time.Duration
	logger      *slog.Logger

	// ctx is the parent of every task context; cancel ends them all.
	ctx    context.Context
	cancel context.CancelFunc
	tasks  sync.WaitGroup

	mutex  sync.Mutex
	closed bool

	initial  map[ref.UserID]roster.User
	selected map[ref.UserID]roster.User
	loaded   bool
	loadErr  error

	query            string
	searchActive     bool
	search           SearchResult
	searchErr        error
	searchGeneration uint64

	exit AsyncAction
	save AsyncAction

	loadTask   *Task
	searchTask *Task
	saveTask   *Task
	watchTask  *Task
	exitTimer  *clock.Timer

	subscribers []chan State
}

// New creates a Coordinator. No I/O happens until LoadInitial or
// Search is called.
func New(config Config) (*Coordinator, error) {
	if config.RoomID.IsZero() {
		return nil, fmt.Errorf("changeroles: Config.RoomID is required")
	}
	if !config.Role.IsElevated() {
		return nil, fmt.Errorf("changeroles: role %q cannot be edited (want admin or moderator)", config.Role)
	}
	if config.RequesterID.IsZero() {
		return nil, fmt.Errorf("changeroles: Config.RequesterID is required")
	}
	if config.Directory == nil {
		return nil, fmt.Errorf("changeroles: Config.Directory is required")
	}
	if config.Assigner == nil {
		return nil, fmt.Errorf("changeroles: Config.Assigner is required")
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	exitDelay := config.ExitDelay
	if exitDelay <= 0 {
		exitDelay = DefaultExitDelay
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	compare := config.Compare
	if compare == nil {
		compare = roster.Compare
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		roomID:      config.RoomID,
		role:        config.Role,
		requesterID: config.RequesterID,
		directory:   config.Directory,
		assigner:    config.Assigner,
		recorder:    config.Recorder,
		compare:     compare,
		clock:       clk,
		exitDelay:   exitDelay,
		logger: logger.With(
			"room_id", config.RoomID,
			"role", config.Role,
		),
		ctx:      ctx,
		cancel:   cancel,
		initial:  make(map[ref.UserID]roster.User),
		selected: make(map[ref.UserID]roster.User),
	}, nil
}

// RoomID returns the room being edited.
func (c *Coordinator) RoomID() ref.RoomID { return c.roomID }

// Role returns the role being edited.
func (c *Coordinator) Role() schema.Role { return c.role }

// State returns the current snapshot.
func (c *Coordinator) State() State {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel that receives a snapshot after every
// state change, and a function that stops the subscription. Only the
// latest snapshot is buffered. The channel is closed by the returned
// function or by Close.
func (c *Coordinator) Subscribe() (<-chan State, func()) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	channel := make(chan State, 1)
	if c.closed {
		close(channel)
		return channel, func() {}
	}
	c.subscribers = append(c.subscribers, channel)

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			c.mutex.Lock()
			defer c.mutex.Unlock()
			for i, subscriber := range c.subscribers {
				if subscriber == channel {
					c.subscribers = slices.Delete(c.subscribers, i, i+1)
					close(channel)
					return
				}
			}
		})
	}
	return channel, unsubscribe
}

// Close cancels every outstanding task and the pending exit timer,
// waits for the tasks to return, and closes subscriber channels.
// Subsequent operations return ErrClosed or do nothing.
func (c *Coordinator) Close() error {
	c.mutex.Lock()
	if c.closed {
		c.mutex.Unlock()
		return nil
	}
	c.closed = true
	if c.exitTimer != nil {
		c.exitTimer.Stop()
		c.exitTimer = nil
	}
	c.mutex.Unlock()

	c.cancel()
	c.tasks.Wait()

	c.mutex.Lock()
	defer c.mutex.Unlock()
	for _, subscriber := range c.subscribers {
		close(subscriber)
	}
	c.subscribers = nil
	return nil
}

// startLocked runs fn on its own goroutine under a context derived
// from the coordinator's root. fn runs without the mutex held.
func (c *Coordinator) startLocked(fn func(ctx context.Context) error) *Task {
	ctx, cancel := context.WithCancel(c.ctx)
	task := newTask(cancel)
	c.tasks.Add(1)
	go func() {
		defer c.tasks.Done()
		err := fn(ctx)
		cancel()
		task.finish(err)
	}()
	return task
}

// notifyLocked publishes the current snapshot to every subscriber,
// replacing any snapshot a subscriber has not read yet. Every sender
// holds the mutex, so the send after the drain cannot block.
func (c *Coordinator) notifyLocked() {
	if c.closed || len(c.subscribers) == 0 {
		return
	}
	state := c.snapshotLocked()
	for _, subscriber := range c.subscribers {
		select {
		case <-subscriber:
		default:
		}
		subscriber <- state
	}
}

func (c *Coordinator) snapshotLocked() State {
	state := State{
		RoomID:            c.roomID,
		Role:              c.role,
		Query:             c.query,
		SearchActive:      c.searchActive,
		Search:            SearchResult{Status: c.search.Status, Members: slices.Clone(c.search.Members)},
		SearchErr:         c.searchErr,
		Selected:          sortedUsers(c.selected),
		HasPendingChanges: c.hasPendingChangesLocked(),
		Exit:              c.exit,
		Save:              c.save,
		Loaded:            c.loaded,
		LoadErr:           c.loadErr,
	}
	return state
}

func sortedUsers(set map[ref.UserID]roster.User) []roster.User {
	users := make([]roster.User, 0, len(set))
	for _, user := range set {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b roster.User) int {
		return a.UserID.Compare(b.UserID)
	})
	return users
}
