// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the time source for every delay and timestamp in
// bureau-roles. Production code is handed Real(); tests hand in a
// FakeClock and move time forward explicitly with Advance.
//
// The interface is intentionally small: Now for timestamps, After for
// channel-based waits, and AfterFunc for scheduled callbacks (the
// coordinator's exit-after-save delay). Tests that start a goroutine
// which registers a timer call WaitForTimers before Advance so the
// registration cannot race the advance:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go worker(fake)
//	fake.WaitForTimers(1)
//	fake.Advance(100 * time.Millisecond)
package clock
