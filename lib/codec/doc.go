// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the binary encoding used for data bureau-roles
// stores on disk. It is CBOR (RFC 8949) with Core Deterministic
// Encoding, so equal values always encode to equal bytes and the bytes
// can be hashed into stable fingerprints.
//
// Identifier types from lib/ref encode as CBOR text strings through
// their TextMarshaler, which keeps records readable with any CBOR
// diagnostic tool.
package codec
