// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil bounds HTTP response reads for the Matrix client.
// A homeserver answering /members for a very large room can return
// megabytes of JSON; anything past MaxResponseSize is a broken or
// hostile server and is cut off rather than buffered.
package netutil

import "io"

// MaxResponseSize caps JSON API response bodies at 64 MB.
const MaxResponseSize int64 = 64 << 20

// ReadResponse reads at most MaxResponseSize bytes of body.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// Snippet returns at most limit bytes of body for an error message,
// marking the cut. Non-JSON error pages (a proxy's HTML, say) would
// otherwise swamp the log line.
func Snippet(body []byte, limit int) string {
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}
