// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the config file when --config is absent.
const EnvironmentVariable = "BUREAU_ROLES_CONFIG"

// longPollHold is the /sync hold the messaging package uses. The HTTP
// timeout must exceed it.
const longPollHold = 30 * time.Second

// Config is the bureau-roles configuration.
type Config struct {
	// Homeserver is the Matrix homeserver URL. A credential file's
	// MATRIX_HOMESERVER_URL takes precedence.
	Homeserver string `yaml:"homeserver"`

	// CredentialFile is a KEY=VALUE file holding MATRIX_HOMESERVER_URL,
	// MATRIX_ADMIN_TOKEN, and MATRIX_ADMIN_USER. It may be age-sealed.
	CredentialFile string `yaml:"credential_file"`

	// IdentityFile is the age private key that opens a sealed
	// credential file.
	IdentityFile string `yaml:"identity_file"`

	// JournalPath is the save history database. Empty disables the
	// journal.
	JournalPath string `yaml:"journal_path"`

	// ExitDelay is the pause between a successful save and closing the
	// editor.
	ExitDelay time.Duration `yaml:"exit_delay"`

	// AssignRate is role assignments per second; 0 means unlimited.
	AssignRate float64 `yaml:"assign_rate"`

	// AssignBurst is how many assignments may go back to back.
	AssignBurst int `yaml:"assign_burst"`

	// RequestTimeout bounds each HTTP request to the homeserver,
	// including /sync long-polls.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		ExitDelay:      100 * time.Millisecond,
		AssignRate:     5,
		AssignBurst:    3,
		RequestTimeout: 60 * time.Second,
	}
}

// Load reads the file at path, or at $BUREAU_ROLES_CONFIG when path is
// empty. With neither it returns Default(). The result is validated.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvironmentVariable)
	}
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads path over the defaults, expands variables, and
// validates.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	config, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return config, nil
}

// Parse decodes data over the defaults. ext selects the syntax: ".json"
// and ".jsonc" mean JSON with comments, anything else YAML.
func Parse(data []byte, ext string) (*Config, error) {
	switch strings.ToLower(ext) {
	case ".json", ".jsonc":
		// JSON is a subset of YAML, so once comments and trailing
		// commas are stripped the YAML decoder reads it, durations
		// included.
		data = jsonc.ToJSON(data)
	}

	config := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	config.expandVariables()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) expandVariables() {
	c.CredentialFile = expandVars(c.CredentialFile)
	c.IdentityFile = expandVars(c.IdentityFile)
	c.JournalPath = expandVars(c.JournalPath)
}

// varPattern matches ${NAME} and ${NAME:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars replaces variable references with environment values.
// An unset or empty variable takes its default, or "" without one.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Homeserver != "" {
		parsed, err := url.Parse(c.Homeserver)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			errs = append(errs, fmt.Errorf("homeserver %q must be an http or https URL", c.Homeserver))
		}
	}
	if c.ExitDelay < 0 {
		errs = append(errs, fmt.Errorf("exit_delay must not be negative"))
	}
	if c.AssignRate < 0 {
		errs = append(errs, fmt.Errorf("assign_rate must not be negative"))
	}
	if c.AssignBurst < 1 {
		errs = append(errs, fmt.Errorf("assign_burst must be at least 1"))
	}
	if c.RequestTimeout <= longPollHold {
		errs = append(errs, fmt.Errorf("request_timeout must exceed the %s /sync long-poll", longPollHold))
	}
	if c.IdentityFile != "" && c.CredentialFile == "" {
		errs = append(errs, fmt.Errorf("identity_file is set but credential_file is not"))
	}

	return errors.Join(errs...)
}
