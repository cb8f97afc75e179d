// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package changeroles

import (
	"context"
)

// Task is a handle on one asynchronous coordinator operation.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func newTask(cancel context.CancelFunc) *Task {
	return &Task{cancel: cancel, done: make(chan struct{})}
}

// finishedTask returns a task that has already completed with err.
func finishedTask(err error) *Task {
	task := newTask(func() {})
	task.finish(err)
	return task
}

func (t *Task) finish(err error) {
	t.err = err
	close(t.done)
}

// Cancel asks the operation to stop. Safe to call more than once and
// after completion.
func (t *Task) Cancel() { t.cancel() }

// Done is closed when the operation has finished and its state change,
// if any, has been published.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err returns the operation's error after Done is closed, and nil
// before.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the operation finishes or ctx ends.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Task) running() bool {
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}
