// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roleui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/bureau-roles/lib/changeroles"
	"github.com/bureau-foundation/bureau-roles/lib/roster"
	"github.com/bureau-foundation/bureau-roles/lib/schema"
	"github.com/bureau-foundation/bureau-roles/lib/tui"
)

// View implements tea.Model.
func (model Model) View() string {
	if !model.ready {
		return "Loading..."
	}

	sections := []string{
		model.renderHeader(),
		model.renderSearchLine(),
		model.renderBody(),
		lipgloss.NewStyle().
			Foreground(model.theme.BorderColor).
			Render(strings.Repeat("─", model.width)),
		model.renderStatus(),
	}
	output := strings.Join(sections, "\n")

	if model.state.Exit.Is(changeroles.ActionConfirming) {
		output = model.overlayConfirmation(output)
	}
	return output
}

// roleTitle is the heading for the role being edited.
func roleTitle(role schema.Role) string {
	switch role {
	case schema.RoleAdmin:
		return "Admins"
	case schema.RoleModerator:
		return "Moderators"
	}
	return role.String()
}

func (model Model) renderHeader() string {
	title := lipgloss.NewStyle().
		Foreground(model.theme.HeaderForeground).
		Bold(true).
		Render(roleTitle(model.state.Role))
	room := lipgloss.NewStyle().
		Foreground(model.theme.FaintText).
		Render(" · " + model.state.RoomID.String())

	right := fmt.Sprintf("%d selected", len(model.state.Selected))
	if model.state.HasPendingChanges {
		right = lipgloss.NewStyle().
			Foreground(model.theme.Accent).
			Render("● unsaved  ") + right
	}

	left := title + room
	gap := model.width - ansi.StringWidth(left) - ansi.StringWidth(right) - 1
	if gap < 1 {
		return ansi.Truncate(left, model.width, "…")
	}
	return left + strings.Repeat(" ", gap) + right
}

func (model Model) renderSearchLine() string {
	if model.state.SearchActive {
		return model.input.View()
	}
	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	if model.state.Query == "" {
		return faint.Render("/ search members")
	}
	return faint.Render(ansi.Truncate("/ "+model.state.Query, model.width, "…"))
}

// renderBody renders the member list, or a message in its place, padded
// to the list height.
func (model Model) renderBody() string {
	height := model.visibleHeight()
	if message := model.bodyMessage(); message != "" {
		lines := make([]string, height)
		lines[0] = message
		return strings.Join(lines, "\n")
	}

	members := model.state.Search.Members
	rowWidth := model.width
	scrollable := len(members) > height
	if scrollable {
		rowWidth--
	}

	lines := make([]string, 0, height)
	end := min(model.scrollOffset+height, len(members))
	for index := model.scrollOffset; index < end; index++ {
		lines = append(lines, model.renderRow(members[index], index == model.cursor, rowWidth))
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", rowWidth))
	}
	list := strings.Join(lines, "\n")

	if !scrollable {
		return list
	}
	scrollbar := tui.RenderScrollbar(model.theme, height, len(members), height, model.scrollOffset, true)
	return lipgloss.JoinHorizontal(lipgloss.Top, list, scrollbar)
}

// bodyMessage returns what to show instead of the list, if anything.
func (model Model) bodyMessage() string {
	errorStyle := lipgloss.NewStyle().Foreground(model.theme.ErrorText)
	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText)

	state := model.state
	switch {
	case state.LoadErr != nil:
		return errorStyle.Render("Could not load members: " + describeError(state.LoadErr))
	case state.SearchErr != nil && state.Search.Status != changeroles.SearchResults:
		return errorStyle.Render("Search failed: " + describeError(state.SearchErr))
	case !state.Loaded, state.Search.Status == changeroles.SearchInitial:
		return faint.Render("Loading members...")
	case state.Search.Status == changeroles.SearchNoResults:
		if state.Query == "" {
			return faint.Render("No joined members")
		}
		return faint.Render(fmt.Sprintf("No joined members match %q", state.Query))
	}
	return ""
}

func (model Model) renderRow(member roster.Member, focused bool, width int) string {
	check := "[ ]"
	if model.state.IsSelected(member.UserID) {
		check = "[x]"
	}
	marker := "  "
	if focused {
		marker = "▸ "
	}

	roleStyle := lipgloss.NewStyle().Foreground(model.theme.RoleColor(member.Role))
	badge := roleStyle.Render(member.Role.String())
	locked := !model.controller.CanRemove(member)
	if locked {
		badge += " (locked)"
	}

	name := member.Name()
	userID := member.UserID.String()
	if name == userID {
		userID = ""
	}

	nameWidth := max(min(28, width/3), 8)
	text := marker + check + " " + padRight(ansi.Truncate(name, nameWidth, "…"), nameWidth)
	if userID != "" {
		text += "  " + userID
	}
	textWidth := max(width-ansi.StringWidth(badge)-1, 0)
	line := padRight(ansi.Truncate(text, textWidth, "…"), textWidth) + " " + badge

	style := lipgloss.NewStyle().Foreground(model.theme.NormalText)
	switch {
	case focused:
		style = style.Background(model.theme.SelectedBackground).Foreground(model.theme.SelectedForeground)
	case locked:
		style = style.Foreground(model.theme.FaintText)
	}
	return style.Render(ansi.Truncate(line, width, ""))
}

func (model Model) renderStatus() string {
	state := model.state
	switch {
	case state.Save.Is(changeroles.ActionLoading):
		return lipgloss.NewStyle().Foreground(model.theme.Accent).Render("Saving...")
	case state.Save.Is(changeroles.ActionFailure):
		return lipgloss.NewStyle().Foreground(model.theme.ErrorText).Bold(true).
			Render(ansi.Truncate("Save failed: "+describeError(state.Save.Err)+" (any key to continue)", model.width, "…"))
	case state.Save.Is(changeroles.ActionSuccess):
		return lipgloss.NewStyle().Foreground(model.theme.SuccessText).Render("Saved")
	case model.notice != "":
		return lipgloss.NewStyle().Foreground(model.theme.Accent).
			Render(ansi.Truncate(model.notice, model.width, "…"))
	}

	help := " space toggle  / search  C-s save  Esc exit"
	if state.SearchActive {
		help = " type to search  ↑↓ move  Esc close search"
	}
	return lipgloss.NewStyle().Foreground(model.theme.HelpText).Render(ansi.Truncate(help, model.width, "…"))
}

func (model Model) overlayConfirmation(view string) string {
	lines := []string{
		"Discard unsaved changes?",
		"",
		"y discard   n keep editing",
	}
	innerWidth := min(30, max(model.width-6, 1))
	panel := tui.RenderModal(model.theme, lines, innerWidth)
	anchorX := max((model.width-innerWidth-4)/2, 0)
	anchorY := max((model.height-len(panel))/2, 0)
	return tui.SpliceOverlay(view, panel, anchorX, anchorY)
}

// describeError shortens coordinator errors for the status line: an
// assignment failure names the member and the underlying cause.
func describeError(err error) string {
	var assignmentErr *changeroles.AssignmentError
	if errors.As(err, &assignmentErr) {
		return fmt.Sprintf("%s: %v", assignmentErr.UserID, rootCause(assignmentErr.Err))
	}
	var directoryErr *changeroles.DirectoryError
	if errors.As(err, &directoryErr) {
		return rootCause(directoryErr.Err).Error()
	}
	return err.Error()
}

// rootCause unwraps to the innermost error, stopping at joined errors.
func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

func padRight(s string, width int) string {
	if gap := width - ansi.StringWidth(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}
