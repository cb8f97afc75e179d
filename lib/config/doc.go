// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the bureau-roles configuration file.
//
// The file is named by the --config flag or, failing that, the
// BUREAU_ROLES_CONFIG environment variable. Without either, [Default]
// applies. There is no search path and no per-field environment
// override: what the file says is what runs.
//
// Files ending in .json or .jsonc are read as JSON with comments and
// trailing commas allowed; anything else is YAML. Path fields accept
// ${VAR} and ${VAR:-default} references.
//
//	homeserver: https://matrix.example.org
//	credential_file: ${HOME}/.config/bureau-roles/credentials.age
//	identity_file: ${HOME}/.config/bureau-roles/identity.txt
//	journal_path: ${XDG_STATE_HOME:-/var/lib/bureau-roles}/journal.db
//	exit_delay: 100ms
//	assign_rate: 5
//	assign_burst: 3
//	request_timeout: 60s
package config
