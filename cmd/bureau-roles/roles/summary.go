// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roles

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/bureau-roles/cmd/bureau-roles/cli"
	"github.com/bureau-foundation/bureau-roles/lib/roster"
)

type summaryParams struct {
	cli.SessionConfig
	cli.JSONOutput
}

func summaryCommand(out io.Writer) *cli.Command {
	var params summaryParams

	return &cli.Command{
		Name:    "summary",
		Summary: "Count admins and moderators",
		Description: `Print how many members hold the admin and moderator roles. Every
member with a power level counts, including invited and departed
members that still appear in the power levels.`,
		Usage: "bureau-roles roles summary <room> [--json]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("summary", pflag.ContinueOnError)
			params.SessionConfig.AddFlags(flagSet)
			params.JSONOutput.AddFlags(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			room, err := roomArgument(args)
			if err != nil {
				return err
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
			summary := roster.Summarize(members)

			if done, err := params.EmitJSON(out, summary); done {
				return err
			}
			fmt.Fprintf(out, "%s: %d admin(s), %d moderator(s)\n", roomID, summary.Admins, summary.Moderators)
			return nil
		},
	}
}
