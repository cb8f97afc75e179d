// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package roleui is the interactive role editor: a bubbletea model
// that renders a [changeroles.Coordinator] and turns keystrokes into
// coordinator operations.
//
// The model holds no role state of its own. Every action is forwarded
// to the coordinator, after which the model re-reads its snapshot;
// changes the coordinator makes on its own (search results, member
// list updates, save completion) arrive through a subscription. The
// program quits when the coordinator's exit action reaches Success.
package roleui
