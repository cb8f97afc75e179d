// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/bureau-foundation/bureau-roles/lib/schema"
)

// Theme is the color palette for bureau-roles terminal views. Colors
// are ANSI 256-color codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Cursor row.
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Role badges.
	RoleAdmin     lipgloss.Color
	RoleModerator lipgloss.Color
	RoleUser      lipgloss.Color

	// Status line.
	Accent      lipgloss.Color // unsaved changes, focused scrollbar
	ErrorText   lipgloss.Color
	SuccessText lipgloss.Color

	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	ModalForeground lipgloss.Color
	ModalBackground lipgloss.Color
}

// RoleColor returns the badge color for role. Unknown roles are faint.
func (theme Theme) RoleColor(role schema.Role) lipgloss.Color {
	switch role {
	case schema.RoleAdmin:
		return theme.RoleAdmin
	case schema.RoleModerator:
		return theme.RoleModerator
	case schema.RoleUser:
		return theme.RoleUser
	default:
		return theme.FaintText
	}
}

// DefaultTheme is the built-in scheme for dark 256-color terminals.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	RoleAdmin:     lipgloss.Color("196"), // red
	RoleModerator: lipgloss.Color("75"),  // blue
	RoleUser:      lipgloss.Color("245"), // gray

	Accent:      lipgloss.Color("220"), // amber
	ErrorText:   lipgloss.Color("196"),
	SuccessText: lipgloss.Color("114"), // green

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),

	ModalForeground: lipgloss.Color("252"),
	ModalBackground: lipgloss.Color("237"),
}

// ApplyColorPreference drops all color when NO_COLOR is set.
func ApplyColorPreference() {
	if termenv.EnvNoColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}
