// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// maxSecretFileSize bounds ReadFromPath. Credential files and age
// identities are a few hundred bytes.
const maxSecretFileSize = 64 << 10

// ReadFromPath reads a secret from path, or from stdin when path is
// "-". Surrounding whitespace is trimmed. The heap copy is zeroed
// before returning.
func ReadFromPath(path string) (*Buffer, error) {
	var reader io.Reader
	if path == "-" {
		reader = os.Stdin
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("secret: %w", err)
		}
		defer file.Close()
		reader = file
	}

	data, err := io.ReadAll(io.LimitReader(reader, maxSecretFileSize))
	if err != nil {
		Zero(data)
		return nil, fmt.Errorf("secret: reading %s: %w", path, err)
	}
	defer Zero(data)

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("secret: %s is empty", path)
	}
	return NewFromBytes(trimmed)
}
