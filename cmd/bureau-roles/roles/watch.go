// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roles

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/bureau-roles/cmd/bureau-roles/cli"
	"github.com/bureau-foundation/bureau-roles/lib/ref"
	"github.com/bureau-foundation/bureau-roles/lib/roster"
)

type watchParams struct {
	cli.SessionConfig
	cli.JSONOutput
}

// watchEvent is one line of watch output.
type watchEvent struct {
	Time    time.Time      `json:"time"`
	RoomID  ref.RoomID     `json:"room_id"`
	Joined  int            `json:"joined"`
	Summary roster.Summary `json:"summary"`
}

func watchCommand(out io.Writer) *cli.Command {
	var params watchParams

	return &cli.Command{
		Name:    "watch",
		Summary: "Follow role counts as the room changes",
		Description: `Print the room's admin and moderator counts, then a new line each
time membership or power levels change. With --json each line is one
JSON object. Runs until interrupted.`,
		Usage: "bureau-roles roles watch <room> [--json]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("watch", pflag.ContinueOnError)
			params.SessionConfig.AddFlags(flagSet)
			params.JSONOutput.AddFlags(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			room, err := roomArgument(args)
			if err != nil {
				return err
			}
			return runWatch(ctx, out, room, params, logger)
		},
	}
}

func runWatch(ctx context.Context, out io.Writer, room string, params watchParams, logger *slog.Logger) error {
	env, err := connect(ctx, &params.SessionConfig, logger)
	if err != nil {
		return err
	}
	defer env.Close()

	roomID, err := resolveRoom(ctx, env.session(), room)
	if err != nil {
		return err
	}
	updates, err := env.directory.ObserveMembers(ctx, roomID)
	if err != nil {
		return err
	}

	var previous *watchEvent
	for members := range updates {
		event := watchEvent{
			Time:    time.Now().UTC(),
			RoomID:  roomID,
			Joined:  len(roster.Search(members, "")),
			Summary: roster.Summarize(members),
		}
		if previous != nil && previous.Joined == event.Joined && previous.Summary == event.Summary {
			logger.Debug("member list changed without changing counts", "room_id", roomID)
			continue
		}
		previous = &event

		if params.OutputJSON {
			if err := writeJSONLine(out, event); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(out, "%s  %d admin(s), %d moderator(s), %d joined\n",
			event.Time.Format(time.RFC3339), event.Summary.Admins, event.Summary.Moderators, event.Joined)
	}

	if ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("member stream for %s ended", roomID)
}

// writeJSONLine writes value as a single line of JSON.
func writeJSONLine(w io.Writer, value any) error {
	return json.NewEncoder(w).Encode(value)
}
