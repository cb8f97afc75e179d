// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roles

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/bureau-foundation/bureau-roles/cmd/bureau-roles/cli"
	"github.com/bureau-foundation/bureau-roles/lib/journal"
	"github.com/bureau-foundation/bureau-roles/lib/ref"
	"github.com/bureau-foundation/bureau-roles/lib/roster"
	"github.com/bureau-foundation/bureau-roles/lib/schema"
	"github.com/bureau-foundation/bureau-roles/messaging"
)

// Command returns the "roles" command group writing to stdout.
func Command() *cli.Command {
	return newCommand(os.Stdout)
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "roles",
		Summary: "Inspect and change room roles",
		Description: `Inspect and change who holds the admin and moderator roles in a
Matrix room. Rooms are given as a room ID (!abc:server) or an alias
(#name:server).`,
		Subcommands: []*cli.Command{
			listCommand(out),
			summaryCommand(out),
			applyCommand(out),
			editCommand(),
			watchCommand(out),
			historyCommand(out),
		},
		Examples: []cli.Example{
			{
				Description: "List the moderators of a room",
				Command:     "bureau-roles roles list '#ops:example.org' --role moderator",
			},
			{
				Description: "Promote one member and demote another",
				Command:     "bureau-roles roles apply '#ops:example.org' --role moderator --add @ana:example.org --remove @bo:example.org",
			},
			{
				Description: "Edit the admin list interactively",
				Command:     "bureau-roles roles edit '#ops:example.org' --role admin",
			},
		},
	}
}

// environment is a connected session with the components built on it.
type environment struct {
	connection *cli.Connection
	directory  *roster.MatrixDirectory
	logger     *slog.Logger
}

func connect(ctx context.Context, session *cli.SessionConfig, logger *slog.Logger) (*environment, error) {
	connection, err := session.Connect(ctx, logger)
	if err != nil {
		return nil, err
	}
	return &environment{
		connection: connection,
		directory:  roster.NewMatrixDirectory(connection.Session, logger),
		logger:     logger,
	}, nil
}

func (e *environment) Close() {
	e.connection.Close()
}

func (e *environment) session() *messaging.DirectSession {
	return e.connection.Session
}

func (e *environment) newAssigner() (*roster.MatrixAssigner, error) {
	return roster.NewMatrixAssigner(roster.AssignerConfig{
		Session: e.connection.Session,
		Rate:    e.connection.Config.AssignRate,
		Burst:   e.connection.Config.AssignBurst,
		Logger:  e.logger,
	})
}

// openJournal opens the configured save journal, or returns nil when
// none is configured.
func openJournal(path string, logger *slog.Logger) (*journal.Journal, error) {
	if path == "" {
		return nil, nil
	}
	return journal.Open(journal.Config{Path: path, Logger: logger})
}

// resolveRoom turns a room ID or alias into a room ID, asking the
// homeserver for aliases.
func resolveRoom(ctx context.Context, session messaging.Session, raw string) (ref.RoomID, error) {
	switch {
	case strings.HasPrefix(raw, "!"):
		return ref.ParseRoomID(raw)
	case strings.HasPrefix(raw, "#"):
		alias, err := ref.ParseRoomAlias(raw)
		if err != nil {
			return ref.RoomID{}, err
		}
		roomID, err := session.ResolveAlias(ctx, alias)
		if err != nil {
			return ref.RoomID{}, fmt.Errorf("resolving %s: %w", alias, err)
		}
		return roomID, nil
	}
	return ref.RoomID{}, fmt.Errorf("room %q must be a room ID (!id:server) or alias (#name:server)", raw)
}

// roomArgument checks for exactly one positional argument.
func roomArgument(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("expected exactly one room argument, got %d", len(args))
	}
	return args[0], nil
}

// parseEditableRole parses a --role value that must name an elevated
// role.
func parseEditableRole(raw string) (schema.Role, error) {
	if raw == "" {
		return "", fmt.Errorf("--role is required (admin or moderator)")
	}
	role, err := schema.ParseRole(raw)
	if err != nil {
		return "", err
	}
	if !role.IsElevated() {
		return "", fmt.Errorf("--role %s cannot be edited; removing a member from a role returns them to %s", role, schema.BaselineRole)
	}
	return role, nil
}
