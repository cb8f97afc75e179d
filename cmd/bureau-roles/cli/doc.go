// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework for bureau-roles: a small
// command tree over pflag with help output, typo suggestions for
// commands and flags, handled exit codes, --json output, and the
// shared flags for reaching a Matrix homeserver.
//
// Each command's Run receives a context cancelled on SIGINT/SIGTERM
// and a logger scoped with the command path.
package cli
