// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds access tokens and age identities in memory that
// the Go runtime never sees.
//
// A [Buffer] is an anonymous mmap region locked into RAM (mlock) and
// excluded from core dumps (MADV_DONTDUMP). Close zeroes, unlocks, and
// unmaps it; any later read panics. [ReadFromPath] loads a secret from
// a file or stdin straight into a Buffer and scrubs the heap copy.
package secret
