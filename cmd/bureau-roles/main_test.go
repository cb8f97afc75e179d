// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"strings"
	"testing"

	"github.com/bureau-foundation/bureau-roles/cmd/bureau-roles/cli"
	"github.com/bureau-foundation/bureau-roles/cmd/bureau-roles/commands"
)

// TestCommandTreeIsDocumented checks every command below the root has
// a summary and that sibling names are unique.
func TestCommandTreeIsDocumented(t *testing.T) {
	walkCommands(commands.Root(), nil, func(command *cli.Command, path []string) {
		name := strings.Join(path, " ")
		if len(path) > 1 && command.Summary == "" {
			t.Errorf("%s: missing Summary", name)
		}
		seen := make(map[string]bool)
		for _, sub := range command.Subcommands {
			if seen[sub.Name] {
				t.Errorf("%s: duplicate subcommand %q", name, sub.Name)
			}
			seen[sub.Name] = true
		}
	})
}

// TestFlagSetsRebuild checks that every Flags function can be called
// more than once, as Execute and help output both do.
func TestFlagSetsRebuild(t *testing.T) {
	walkCommands(commands.Root(), nil, func(command *cli.Command, path []string) {
		if command.Flags == nil {
			return
		}
		first, second := command.Flags(), command.Flags()
		if first == second {
			t.Errorf("%s: Flags returned the same set twice", strings.Join(path, " "))
		}
		if first.Lookup("help") != nil {
			t.Errorf("%s: defines --help, which Execute handles", strings.Join(path, " "))
		}
	})
}

// walkCommands recursively visits every command in the tree with the
// accumulated command path.
func walkCommands(command *cli.Command, path []string, visit func(*cli.Command, []string)) {
	current := make([]string, len(path)+1)
	copy(current, path)
	current[len(path)] = command.Name
	visit(command, current)
	for _, sub := range command.Subcommands {
		walkCommands(sub, current, visit)
	}
}
