// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the bureau-roles command tree.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bureau-foundation/bureau-roles/cmd/bureau-roles/cli"
	credentialscmd "github.com/bureau-foundation/bureau-roles/cmd/bureau-roles/credentials"
	rolescmd "github.com/bureau-foundation/bureau-roles/cmd/bureau-roles/roles"
	"github.com/bureau-foundation/bureau-roles/lib/version"
)

// Root builds and returns the complete command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "bureau-roles",
		Description: `bureau-roles: manage admin and moderator roles in Matrix rooms.

List who holds a role, change it in one save from scripts, or edit it
interactively. Credentials come from flags, a KEY=VALUE credential
file (optionally age-sealed), and the config file, in that order.`,
		Subcommands: []*cli.Command{
			rolescmd.Command(),
			credentialscmd.Command(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					fmt.Fprintf(os.Stdout, "bureau-roles %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Count the admins and moderators of a room",
				Command:     "bureau-roles roles summary '#ops:example.org' --credential-file ./creds.age --identity-file ~/.config/bureau-roles/identity",
			},
			{
				Description: "Edit a room's moderators in the terminal",
				Command:     "bureau-roles roles edit '#ops:example.org' --role moderator",
			},
		},
	}
}
