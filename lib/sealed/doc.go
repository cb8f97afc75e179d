// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed encrypts and decrypts bureau-roles credential files
// with age.
//
// A credential file holds the homeserver URL and an admin access token.
// Operators who keep it on shared disks seal it to one or more x25519
// public keys; bureau-roles opens it at startup with the matching
// identity file. Sealed files use age's ASCII armor so they survive
// copy and paste. [Open] also accepts binary age files.
//
// Private keys and decrypted plaintext are returned as [secret.Buffer]
// values and must be closed by the caller.
package sealed
