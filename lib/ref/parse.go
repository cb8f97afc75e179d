// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"strings"
)

// splitSigilID splits a Matrix identifier of the form
// <sigil>localpart:server into its localpart and server. The first
// colon after the sigil separates the two, so servers with ports
// ("localhost:6167") survive intact.
func splitSigilID(identifier string, sigil byte, kind string) (localpart, server string, err error) {
	if len(identifier) < 2 || identifier[0] != sigil {
		return "", "", fmt.Errorf("invalid %s %q: must start with %c", kind, identifier, sigil)
	}
	localpart, server, found := strings.Cut(identifier[1:], ":")
	if !found {
		return "", "", fmt.Errorf("invalid %s %q: missing :server", kind, identifier)
	}
	if localpart == "" {
		return "", "", fmt.Errorf("invalid %s %q: empty localpart", kind, identifier)
	}
	if server == "" {
		return "", "", fmt.Errorf("invalid %s %q: empty server", kind, identifier)
	}
	for i := 0; i < len(server); i++ {
		if c := server[i]; c <= ' ' || c == '@' || c == '#' || c == '!' {
			return "", "", fmt.Errorf("invalid %s %q: bad character in server name at position %d", kind, identifier, i)
		}
	}
	return localpart, server, nil
}
