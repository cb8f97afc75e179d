// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roles

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/bureau-roles/cmd/bureau-roles/cli"
	"github.com/bureau-foundation/bureau-roles/lib/changeroles"
	"github.com/bureau-foundation/bureau-roles/lib/roleui"
	"github.com/bureau-foundation/bureau-roles/lib/tui"
)

type editParams struct {
	cli.SessionConfig
	Role    string
	LogFile string
}

func editCommand() *cli.Command {
	var params editParams

	return &cli.Command{
		Name:    "edit",
		Summary: "Edit a role interactively",
		Description: `Open a terminal editor over the room's joined members. Checked members
hold the role; toggle with space, search with /, save with ctrl+s.
Admins other than yourself are locked. Leaving with unsaved changes
asks for confirmation. The editor closes shortly after a successful
save.

Logs go to --log-file when given and are dropped otherwise, so they
do not tear the screen.`,
		Usage: "bureau-roles roles edit <room> --role admin|moderator [--log-file path]",
		Examples: []cli.Example{
			{
				Description: "Edit the moderators of a room",
				Command:     "bureau-roles roles edit '#ops:example.org' --role moderator",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("edit", pflag.ContinueOnError)
			params.SessionConfig.AddFlags(flagSet)
			flagSet.StringVar(&params.Role, "role", "", "role to edit: admin or moderator")
			flagSet.StringVar(&params.LogFile, "log-file", "", "append JSON logs to this file")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			room, err := roomArgument(args)
			if err != nil {
				return err
			}
			return runEdit(ctx, room, params)
		},
	}
}

func runEdit(ctx context.Context, room string, params editParams) error {
	role, err := parseEditableRole(params.Role)
	if err != nil {
		return err
	}

	logger := cli.DiscardLogger()
	if params.LogFile != "" {
		fileLogger, closer, err := cli.NewFileLogger(params.LogFile)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer closer.Close()
		logger = fileLogger.With("command", "roles/edit")
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
	assigner, err := env.newAssigner()
	if err != nil {
		return err
	}
	var recorder changeroles.Recorder
	history, err := openJournal(env.connection.Config.JournalPath, logger)
	if err != nil {
		return err
	}
	if history != nil {
		defer history.Close()
		recorder = history
	}

	coordinator, err := changeroles.New(changeroles.Config{
		RoomID:      roomID,
		Role:        role,
		RequesterID: env.session().UserID(),
		Directory:   env.directory,
		Assigner:    assigner,
		Recorder:    recorder,
		ExitDelay:   env.connection.Config.ExitDelay,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer coordinator.Close()

	// Subscribe before starting work so the first snapshots reach the
	// editor.
	model := roleui.NewModel(coordinator)
	defer model.Close()
	coordinator.LoadInitial()
	coordinator.Search("")
	coordinator.WatchMembers()

	tui.ApplyColorPreference()
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx), tea.WithOutput(os.Stderr))
	final, err := program.Run()
	if err != nil {
		return fmt.Errorf("running editor: %w", err)
	}

	if finalModel, ok := final.(roleui.Model); ok {
		state := finalModel.State()
		if state.Save.Is(changeroles.ActionSuccess) {
			fmt.Fprintf(os.Stderr, "saved %s list for %s (%d member(s))\n", role, roomID, len(state.Selected))
		}
	}
	return nil
}
