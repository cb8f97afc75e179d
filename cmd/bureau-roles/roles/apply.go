// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roles

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/bureau-roles/cmd/bureau-roles/cli"
	"github.com/bureau-foundation/bureau-roles/lib/changeroles"
	"github.com/bureau-foundation/bureau-roles/lib/ref"
	"github.com/bureau-foundation/bureau-roles/lib/roster"
	"github.com/bureau-foundation/bureau-roles/lib/schema"
)

type applyParams struct {
	cli.SessionConfig
	cli.JSONOutput
	Role   string
	Add    []string
	Remove []string
	DryRun bool
}

// applyChange is one line of apply output.
type applyChange struct {
	UserID ref.UserID  `json:"user_id"`
	Role   schema.Role `json:"role"`
	Error  string      `json:"error,omitempty"`
}

type applyResult struct {
	RoomID    ref.RoomID    `json:"room_id"`
	Role      schema.Role   `json:"role"`
	DryRun    bool          `json:"dry_run,omitempty"`
	Changes   []applyChange `json:"changes"`
	Succeeded bool          `json:"succeeded"`
}

func applyCommand(out io.Writer) *cli.Command {
	var params applyParams

	return &cli.Command{
		Name:    "apply",
		Summary: "Add or remove members from a role",
		Description: `Grant --role to every --add user and return every --remove user to
the user role, in one save. Users already in the requested state are
skipped. Removing an admin other than yourself is refused.

Every assignment is attempted even when an earlier one fails. The
command exits 1 when any assignment failed.`,
		Usage: "bureau-roles roles apply <room> --role admin|moderator [--add USER]... [--remove USER]...",
		Examples: []cli.Example{
			{
				Description: "Make two members moderators",
				Command:     "bureau-roles roles apply '#ops:example.org' --role moderator --add @ana:example.org --add @bo:example.org",
			},
			{
				Description: "Show what would change without saving",
				Command:     "bureau-roles roles apply '#ops:example.org' --role admin --remove @me:example.org --dry-run",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("apply", pflag.ContinueOnError)
			params.SessionConfig.AddFlags(flagSet)
			params.JSONOutput.AddFlags(flagSet)
			flagSet.StringVar(&params.Role, "role", "", "role to edit: admin or moderator")
			flagSet.StringArrayVar(&params.Add, "add", nil, "user to grant the role (repeatable)")
			flagSet.StringArrayVar(&params.Remove, "remove", nil, "user to remove from the role (repeatable)")
			flagSet.BoolVar(&params.DryRun, "dry-run", false, "print the changes without saving")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			room, err := roomArgument(args)
			if err != nil {
				return err
			}
			return runApply(ctx, out, room, params, logger)
		},
	}
}

// requestedChanges parses --add and --remove, rejecting a user named
// in both.
func requestedChanges(params applyParams) (add, remove []ref.UserID, err error) {
	seen := make(map[ref.UserID]string)
	parse := func(raws []string, flag string) ([]ref.UserID, error) {
		var userIDs []ref.UserID
		for _, raw := range raws {
			userID, err := ref.ParseUserID(raw)
			if err != nil {
				return nil, fmt.Errorf("--%s: %w", flag, err)
			}
			if previous, ok := seen[userID]; ok {
				if previous != flag {
					return nil, fmt.Errorf("%s is given to both --add and --remove", userID)
				}
				continue
			}
			seen[userID] = flag
			userIDs = append(userIDs, userID)
		}
		return userIDs, nil
	}
	if add, err = parse(params.Add, "add"); err != nil {
		return nil, nil, err
	}
	if remove, err = parse(params.Remove, "remove"); err != nil {
		return nil, nil, err
	}
	if len(add) == 0 && len(remove) == 0 {
		return nil, nil, fmt.Errorf("nothing to do: give at least one --add or --remove")
	}
	return add, remove, nil
}

func runApply(ctx context.Context, out io.Writer, room string, params applyParams, logger *slog.Logger) error {
	role, err := parseEditableRole(params.Role)
	if err != nil {
		return err
	}
	add, remove, err := requestedChanges(params)
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
	assigner, err := env.newAssigner()
	if err != nil {
		return err
	}
	capture := &captureRecorder{}
	history, err := openJournal(env.connection.Config.JournalPath, logger)
	if err != nil {
		return err
	}
	if history != nil {
		defer history.Close()
		capture.next = history
	}

	coordinator, err := changeroles.New(changeroles.Config{
		RoomID:      roomID,
		Role:        role,
		RequesterID: env.session().UserID(),
		Directory:   env.directory,
		Assigner:    assigner,
		Recorder:    capture,
		ExitDelay:   env.connection.Config.ExitDelay,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer coordinator.Close()

	if err := coordinator.LoadInitial().Wait(ctx); err != nil {
		return err
	}
	members, err := env.directory.ListMembers(ctx, roomID)
	if err != nil {
		return err
	}
	planned, err := planToggles(coordinator, members, add, remove)
	if err != nil {
		return err
	}

	result := applyResult{RoomID: roomID, Role: role, DryRun: params.DryRun, Succeeded: true}
	if len(planned) == 0 || !coordinator.State().HasPendingChanges {
		if done, err := params.EmitJSON(out, result); done {
			return err
		}
		fmt.Fprintln(out, "nothing to change")
		return nil
	}

	if params.DryRun {
		result.Changes = planned
		if done, err := params.EmitJSON(out, result); done {
			return err
		}
		for _, change := range planned {
			fmt.Fprintf(out, "would set %s to %s\n", change.UserID, change.Role)
		}
		return nil
	}

	saveErr := coordinator.Save().Wait(ctx)
	report, recorded := capture.last()
	if !recorded {
		// The save never reached the recorder: the context ended first.
		return saveErr
	}
	for _, outcome := range report.Outcomes {
		change := applyChange{UserID: outcome.UserID, Role: outcome.Role}
		if outcome.Err != nil {
			change.Error = outcome.Err.Error()
		}
		result.Changes = append(result.Changes, change)
	}
	result.Succeeded = report.Succeeded()

	if done, err := params.EmitJSON(out, result); done {
		if err != nil {
			return err
		}
	} else {
		for _, change := range result.Changes {
			if change.Error != "" {
				fmt.Fprintf(out, "FAILED %s -> %s: %s\n", change.UserID, change.Role, change.Error)
			} else {
				fmt.Fprintf(out, "ok     %s -> %s\n", change.UserID, change.Role)
			}
		}
	}
	if !result.Succeeded {
		logger.Debug("apply finished with failures", "error", saveErr)
		return &cli.ExitError{Code: 1}
	}
	return nil
}

// planToggles toggles the coordinator's selection so that every add
// user is selected and every remove user is not, returning the planned
// changes in the order requested. Users already in the requested state
// are skipped.
func planToggles(coordinator *changeroles.Coordinator, members []roster.Member, add, remove []ref.UserID) ([]applyChange, error) {
	byID := make(map[ref.UserID]roster.Member, len(members))
	for _, member := range members {
		byID[member.UserID] = member
	}
	state := coordinator.State()

	var planned []applyChange
	for _, userID := range add {
		if state.IsSelected(userID) {
			continue
		}
		member, ok := byID[userID]
		if !ok || member.Membership != roster.MembershipJoin {
			return nil, fmt.Errorf("%s is not a joined member of %s", userID, coordinator.RoomID())
		}
		coordinator.ToggleSelection(member)
		planned = append(planned, applyChange{UserID: userID, Role: coordinator.Role()})
	}
	for _, userID := range remove {
		if !state.IsSelected(userID) {
			continue
		}
		member, ok := byID[userID]
		if !ok {
			// Selected members come from the same listing, so this only
			// happens if the member left between the two reads.
			member = roster.Member{UserID: userID, Role: coordinator.Role()}
		}
		if !coordinator.CanRemove(member) {
			return nil, fmt.Errorf("refusing to remove %s: only an admin can change their own role", userID)
		}
		coordinator.ToggleSelection(member)
		planned = append(planned, applyChange{UserID: userID, Role: schema.BaselineRole})
	}
	return planned, nil
}

// captureRecorder keeps the last save report and forwards it to next.
type captureRecorder struct {
	next changeroles.Recorder

	mutex    sync.Mutex
	report   changeroles.SaveReport
	recorded bool
}

func (r *captureRecorder) RecordSave(ctx context.Context, report changeroles.SaveReport) error {
	r.mutex.Lock()
	r.report = report
	r.recorded = true
	r.mutex.Unlock()
	if r.next == nil {
		return nil
	}
	return r.next.RecordSave(ctx, report)
}

func (r *captureRecorder) last() (changeroles.SaveReport, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.report, r.recorded
}
