// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides validated, immutable Matrix identifiers used
// throughout bureau-roles: user IDs, room IDs, room aliases, event IDs,
// and event types.
//
// Each struct type wraps a single string and is constructed only
// through its Parse function, so a value in hand is always
// structurally valid. The zero value means "unset" and is detected with
// IsZero. All types implement encoding.TextMarshaler and
// encoding.TextUnmarshaler so they round-trip through JSON, YAML, and
// CBOR as plain strings, and all are comparable so they work as map
// keys.
package ref
