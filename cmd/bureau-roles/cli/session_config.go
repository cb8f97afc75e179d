// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/bureau-roles/lib/config"
	"github.com/bureau-foundation/bureau-roles/lib/ref"
	"github.com/bureau-foundation/bureau-roles/lib/sealed"
	"github.com/bureau-foundation/bureau-roles/lib/secret"
	"github.com/bureau-foundation/bureau-roles/messaging"
)

// Credential file keys.
const (
	CredentialHomeserverURL = "MATRIX_HOMESERVER_URL"
	CredentialToken         = "MATRIX_ADMIN_TOKEN"
	CredentialUserID        = "MATRIX_ADMIN_USER"
)

// SessionConfig holds the flags shared by every command that talks to
// the homeserver.
//
// Values are resolved in order: explicit flags, then the credential
// file, then the config file. The credential file is a KEY=VALUE file
// with MATRIX_HOMESERVER_URL, MATRIX_ADMIN_TOKEN, and optionally
// MATRIX_ADMIN_USER; it may be age-sealed, in which case
// --identity-file opens it. Without a user ID the session asks the
// homeserver who the token belongs to.
type SessionConfig struct {
	ConfigPath     string
	CredentialFile string
	IdentityFile   string
	HomeserverURL  string
	Token          string
	UserID         string
}

// AddFlags registers the session flags.
func (c *SessionConfig) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.ConfigPath, "config", "", "config file (default $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&c.CredentialFile, "credential-file", "", "KEY=VALUE credential file, plain or age-sealed")
	flagSet.StringVar(&c.IdentityFile, "identity-file", "", "age identity that opens a sealed credential file")
	flagSet.StringVar(&c.HomeserverURL, "homeserver", "", "Matrix homeserver URL (overrides credential file)")
	flagSet.StringVar(&c.Token, "token", "", "Matrix access token (overrides credential file)")
	flagSet.StringVar(&c.UserID, "user-id", "", "Matrix user ID of the token (overrides credential file)")
}

// Connection is an authenticated session and the configuration it was
// built from.
type Connection struct {
	Session *messaging.DirectSession
	Config  *config.Config
}

// Close releases the session's token and idle connections.
func (c *Connection) Close() error {
	c.Session.CloseIdleConnections()
	return c.Session.Close()
}

// LoadConfig reads the config file named by --config or the
// environment and applies the credential and identity file flags.
func (c *SessionConfig) LoadConfig() (*config.Config, error) {
	loaded, err := config.Load(c.ConfigPath)
	if err != nil {
		return nil, err
	}
	if c.CredentialFile != "" {
		loaded.CredentialFile = c.CredentialFile
	}
	if c.IdentityFile != "" {
		loaded.IdentityFile = c.IdentityFile
	}
	return loaded, nil
}

// Connect builds an authenticated session.
func (c *SessionConfig) Connect(ctx context.Context, logger *slog.Logger) (*Connection, error) {
	loaded, err := c.LoadConfig()
	if err != nil {
		return nil, err
	}

	homeserverURL, token, rawUserID := c.HomeserverURL, c.Token, c.UserID
	if loaded.CredentialFile != "" {
		credentials, err := ReadCredentials(loaded.CredentialFile, loaded.IdentityFile)
		if err != nil {
			return nil, err
		}
		homeserverURL = firstNonEmpty(homeserverURL, credentials[CredentialHomeserverURL])
		token = firstNonEmpty(token, credentials[CredentialToken])
		rawUserID = firstNonEmpty(rawUserID, credentials[CredentialUserID])
	}
	homeserverURL = firstNonEmpty(homeserverURL, loaded.Homeserver)

	if homeserverURL == "" {
		return nil, fmt.Errorf("--homeserver is required (or use --credential-file or a config file)")
	}
	if token == "" {
		return nil, fmt.Errorf("--token is required (or use --credential-file)")
	}
	var userID ref.UserID
	if rawUserID != "" {
		if userID, err = ref.ParseUserID(rawUserID); err != nil {
			return nil, fmt.Errorf("user ID: %w", err)
		}
	}

	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: homeserverURL,
		HTTPClient:    &http.Client{Timeout: loaded.RequestTimeout},
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}
	session, err := client.SessionFromToken(userID, token)
	if err != nil {
		return nil, err
	}

	if userID.IsZero() {
		userID, err = session.WhoAmI(ctx)
		session.Close()
		if err != nil {
			return nil, fmt.Errorf("identifying token owner: %w", err)
		}
		if session, err = client.SessionFromToken(userID, token); err != nil {
			return nil, err
		}
		logger.Debug("resolved token owner", "user_id", userID)
	}

	return &Connection{Session: session, Config: loaded}, nil
}

// ReadCredentials reads a credential file, opening it with the identity
// at identityPath when it is sealed.
func ReadCredentials(path, identityPath string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading credential file: %w", err)
	}
	defer secret.Zero(data)

	if !sealed.IsSealed(data) {
		return ParseCredentials(bytes.NewReader(data))
	}

	if identityPath == "" {
		return nil, fmt.Errorf("credential file %s is sealed; --identity-file is required", path)
	}
	identity, err := secret.ReadFromPath(identityPath)
	if err != nil {
		return nil, fmt.Errorf("reading identity: %w", err)
	}
	defer identity.Close()

	plaintext, err := sealed.Open(data, identity)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer plaintext.Close()
	return ParseCredentials(bytes.NewReader(plaintext.Bytes()))
}

// ParseCredentials parses KEY=VALUE lines. Blank lines and lines
// starting with "#" are skipped.
//
// The returned strings cannot be zeroed. The map is short-lived; the
// token moves into a secret.Buffer when the session is built.
func ParseCredentials(reader io.Reader) (map[string]string, error) {
	credentials := make(map[string]string)
	scanner := bufio.NewScanner(reader)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("credential line %d: expected KEY=VALUE", lineNumber)
		}
		credentials[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}
	return credentials, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
