// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roles

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/bureau-roles/cmd/bureau-roles/cli"
	"github.com/bureau-foundation/bureau-roles/lib/journal"
	"github.com/bureau-foundation/bureau-roles/lib/ref"
)

type historyParams struct {
	cli.SessionConfig
	cli.JSONOutput
	Journal string
	Limit   int
}

func historyCommand(out io.Writer) *cli.Command {
	var params historyParams

	return &cli.Command{
		Name:    "history",
		Summary: "Show recorded saves for a room",
		Description: `List the saves recorded in the journal for a room, newest first.
The journal is the config file's journal_path unless --journal is
given. Only an alias argument needs a homeserver connection.`,
		Usage: "bureau-roles roles history <room> [--limit N] [--journal path] [--json]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("history", pflag.ContinueOnError)
			params.SessionConfig.AddFlags(flagSet)
			params.JSONOutput.AddFlags(flagSet)
			flagSet.StringVar(&params.Journal, "journal", "", "journal database (overrides journal_path)")
			flagSet.IntVar(&params.Limit, "limit", 20, "maximum number of saves to show")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			room, err := roomArgument(args)
			if err != nil {
				return err
			}
			return runHistory(ctx, out, room, params, logger)
		},
	}
}

func runHistory(ctx context.Context, out io.Writer, room string, params historyParams, logger *slog.Logger) error {
	if params.Limit < 1 {
		return fmt.Errorf("--limit must be at least 1")
	}
	path := params.Journal
	if path == "" {
		loaded, err := params.SessionConfig.LoadConfig()
		if err != nil {
			return err
		}
		path = loaded.JournalPath
	}
	if path == "" {
		return fmt.Errorf("no journal configured: set journal_path in the config file or pass --journal")
	}

	var roomID ref.RoomID
	if strings.HasPrefix(room, "#") {
		env, err := connect(ctx, &params.SessionConfig, logger)
		if err != nil {
			return err
		}
		roomID, err = resolveRoom(ctx, env.session(), room)
		env.Close()
		if err != nil {
			return err
		}
	} else {
		parsed, err := ref.ParseRoomID(room)
		if err != nil {
			return err
		}
		roomID = parsed
	}

	history, err := journal.Open(journal.Config{Path: path, Logger: logger})
	if err != nil {
		return err
	}
	defer history.Close()

	entries, err := history.List(ctx, roomID, params.Limit)
	if err != nil {
		return err
	}
	if done, err := params.EmitJSON(out, entries); done {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintf(out, "no saves recorded for %s\n", roomID)
		return nil
	}

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "STARTED\tROLE\tREQUESTER\tOUTCOME\tCHANGES\tFAILED\tPLAN")
	for _, entry := range entries {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			entry.Started.UTC().Format(time.RFC3339),
			entry.Role,
			entry.RequesterID,
			entry.Outcome,
			entry.Attempted,
			entry.Failed,
			shortHash(entry.PlanHash),
		)
	}
	if err := writer.Flush(); err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.FirstError != "" {
			fmt.Fprintf(out, "%s first error: %s\n", entry.ID, entry.FirstError)
		}
	}
	return nil
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
