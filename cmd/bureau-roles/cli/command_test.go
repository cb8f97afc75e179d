// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

// quietRoot wraps subcommands in a root that writes help to a buffer
// and logs nowhere.
func quietRoot(subcommands ...*Command) (*Command, *bytes.Buffer) {
	var help bytes.Buffer
	return &Command{
		Name:        "bureau-roles",
		Subcommands: subcommands,
		NewLogger:   DiscardLogger,
		HelpOutput:  &help,
	}, &help
}

func TestExecuteDispatchesNestedSubcommands(t *testing.T) {
	var called string
	var receivedArgs []string

	root, _ := quietRoot(&Command{
		Name: "roles",
		Subcommands: []*Command{
			{
				Name: "list",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					called = "roles list"
					receivedArgs = args
					return nil
				},
			},
		},
	})

	if err := root.Execute(context.Background(), []string{"roles", "list", "!room:example.org"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if called != "roles list" {
		t.Errorf("dispatched to %q", called)
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "!room:example.org" {
		t.Errorf("args = %v", receivedArgs)
	}
}

func TestExecuteParsesFlags(t *testing.T) {
	var role string
	var target string

	root, _ := quietRoot(&Command{
		Name: "apply",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("apply", pflag.ContinueOnError)
			flagSet.StringVar(&role, "role", "moderator", "role")
			return flagSet
		},
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			target = args[0]
			return nil
		},
	})

	if err := root.Execute(context.Background(), []string{"apply", "--role", "admin", "#ops:example.org"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if role != "admin" || target != "#ops:example.org" {
		t.Errorf("role = %q, target = %q", role, target)
	}
}

func TestExecuteSuggestsFlag(t *testing.T) {
	command := &Command{
		Name: "list",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flagSet.String("query", "", "search query")
			flagSet.Bool("json", false, "json")
			return flagSet
		},
		Run: func(context.Context, []string, *slog.Logger) error { return nil },
	}

	err := command.Execute(context.Background(), []string{"--qeury", "bob"})
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
	if !strings.Contains(err.Error(), "did you mean --query") {
		t.Errorf("error = %q, want a --query suggestion", err)
	}
	if !strings.Contains(err.Error(), "--help") {
		t.Errorf("error = %q, should point to --help", err)
	}

	err = command.Execute(context.Background(), []string{"--zzzzzzzzz"})
	if err == nil || strings.Contains(err.Error(), "did you mean") {
		t.Errorf("distant flag: err = %v", err)
	}
}

func TestExecuteSuggestsSubcommand(t *testing.T) {
	root, _ := quietRoot(&Command{Name: "roles"}, &Command{Name: "credentials"}, &Command{Name: "version"})

	err := root.Execute(context.Background(), []string{"rolse"})
	if err == nil || !strings.Contains(err.Error(), `did you mean "roles"`) {
		t.Errorf("err = %v, want a roles suggestion", err)
	}

	err = root.Execute(context.Background(), []string{"zzzzzzz"})
	if err == nil || strings.Contains(err.Error(), "did you mean") {
		t.Errorf("distant command: err = %v", err)
	}
}

func TestExecuteHelp(t *testing.T) {
	for _, helpArg := range []string{"-h", "--help", "help"} {
		t.Run(helpArg, func(t *testing.T) {
			root, help := quietRoot(&Command{Name: "roles", Summary: "Inspect and change room roles"})
			root.Description = "Manage Matrix room roles."
			root.Examples = []Example{{Description: "List moderators", Command: "bureau-roles roles list '#ops:example.org' --role moderator"}}

			if err := root.Execute(context.Background(), []string{helpArg}); err != nil {
				t.Fatalf("Execute(%q): %v", helpArg, err)
			}
			output := help.String()
			for _, want := range []string{"Manage Matrix room roles.", "roles", "Inspect and change room roles", "# List moderators"} {
				if !strings.Contains(output, want) {
					t.Errorf("help missing %q:\n%s", want, output)
				}
			}
		})
	}
}

func TestExecuteGroupWithoutSubcommand(t *testing.T) {
	root, help := quietRoot(&Command{Name: "roles", Summary: "Roles"})
	if err := root.Execute(context.Background(), nil); err == nil {
		t.Fatal("expected error for missing subcommand")
	}
	if !strings.Contains(help.String(), "Commands:") {
		t.Errorf("help not printed:\n%s", help.String())
	}
}

func TestRunReceivesScopedLogger(t *testing.T) {
	var logs bytes.Buffer
	root := &Command{
		Name:      "bureau-roles",
		NewLogger: func() *slog.Logger { return newLogger(&logs, false) },
		Subcommands: []*Command{{
			Name: "roles",
			Subcommands: []*Command{{
				Name: "apply",
				Run: func(_ context.Context, _ []string, logger *slog.Logger) error {
					logger.Info("saved")
					return nil
				},
			}},
		}},
	}
	if err := root.Execute(context.Background(), []string{"roles", "apply"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(logs.String(), `"command":"roles/apply"`) {
		t.Errorf("log line lacks the command path: %s", logs.String())
	}
}

func TestExitError(t *testing.T) {
	t.Parallel()
	var coder interface{ ExitCode() int } = &ExitError{Code: 1}
	if coder.ExitCode() != 1 {
		t.Errorf("ExitCode = %d", coder.ExitCode())
	}
}

func TestEmitJSON(t *testing.T) {
	t.Parallel()
	var output JSONOutput
	var buffer bytes.Buffer

	if done, err := output.EmitJSON(&buffer, []string(nil)); done || err != nil {
		t.Fatalf("without --json: done = %v, err = %v", done, err)
	}

	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	output.AddFlags(flagSet)
	if err := flagSet.Parse([]string{"--json"}); err != nil {
		t.Fatal(err)
	}
	if done, err := output.EmitJSON(&buffer, []string(nil)); !done || err != nil {
		t.Fatalf("with --json: done = %v, err = %v", done, err)
	}
	if strings.TrimSpace(buffer.String()) != "[]" {
		t.Errorf("nil slice encoded as %q, want []", buffer.String())
	}
}
