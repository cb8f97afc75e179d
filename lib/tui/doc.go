// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui holds terminal UI pieces shared by bureau-roles views:
// the color theme, a scrollbar, and ANSI-aware overlay splicing for
// modal prompts. Views built on bubbletea import it for a consistent
// look; each view owns its own layout and key handling.
package tui
