// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roles

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/bureau-roles/cmd/bureau-roles/cli"
	"github.com/bureau-foundation/bureau-roles/lib/roster"
	"github.com/bureau-foundation/bureau-roles/lib/schema"
)

type listParams struct {
	cli.SessionConfig
	cli.JSONOutput
	Role  string
	Query string
}

func listCommand(out io.Writer) *cli.Command {
	var params listParams

	return &cli.Command{
		Name:    "list",
		Summary: "List joined members and their roles",
		Description: `List the room's joined members ordered by role (admins first), then
display name. --query keeps members whose user ID or display name
contains the text; --role keeps members holding exactly that role.`,
		Usage: "bureau-roles roles list <room> [--role admin|moderator|user] [--query text]",
		Examples: []cli.Example{
			{
				Description: "List every admin",
				Command:     "bureau-roles roles list '#ops:example.org' --role admin",
			},
			{
				Description: "Find members by name as JSON",
				Command:     "bureau-roles roles list '!abc:example.org' --query ana --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			params.SessionConfig.AddFlags(flagSet)
			params.JSONOutput.AddFlags(flagSet)
			flagSet.StringVar(&params.Role, "role", "", "only members holding this role")
			flagSet.StringVar(&params.Query, "query", "", "only members whose user ID or name contains this")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			room, err := roomArgument(args)
			if err != nil {
				return err
			}
			return runList(ctx, out, room, params, logger)
		},
	}
}

func runList(ctx context.Context, out io.Writer, room string, params listParams, logger *slog.Logger) error {
	var role schema.Role
	if params.Role != "" {
		parsed, err := schema.ParseRole(params.Role)
		if err != nil {
			return err
		}
		role = parsed
	}

	env, err := connect(ctx, &params.SessionConfig, logger)
	if err != nil {
		return err
	}
	defer env.Close()

	roomID, err := resolveRoom(ctx, env.session(), room)
	if err != nil {
		return err
	}
	members, err := env.directory.ListMembers(ctx, roomID)
	if err != nil {
		return err
	}
	members = roster.Search(members, params.Query)
	if role != "" {
		members = roster.WithRole(members, role)
	}

	if done, err := params.EmitJSON(out, members); done {
		return err
	}
	if len(members) == 0 {
		fmt.Fprintln(out, "no matching members")
		return nil
	}

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "USER\tNAME\tROLE\tLEVEL")
	for _, member := range members {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%d\n", member.UserID, member.DisplayName, member.Role, member.PowerLevel)
	}
	return writer.Flush()
}
