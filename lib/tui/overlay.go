// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// SpliceOverlay replaces a rectangle of a rendered view with overlay
// lines, placed from (anchorX, anchorY). Escape sequences on either
// side of the overlay are preserved.
func SpliceOverlay(view string, overlayLines []string, anchorX, anchorY int) string {
	if len(overlayLines) == 0 {
		return view
	}

	viewLines := strings.Split(view, "\n")
	overlayWidth := ansi.StringWidth(overlayLines[0])

	for index, overlayLine := range overlayLines {
		lineIndex := anchorY + index
		if lineIndex < 0 || lineIndex >= len(viewLines) {
			continue
		}
		viewLine := viewLines[lineIndex]
		viewLineWidth := ansi.StringWidth(viewLine)

		var result strings.Builder
		if anchorX > 0 {
			prefix := ansi.Truncate(viewLine, anchorX, "")
			result.WriteString(prefix)
			// Short lines are padded so the overlay lands at anchorX.
			if width := ansi.StringWidth(prefix); width < anchorX {
				result.WriteString(strings.Repeat(" ", anchorX-width))
			}
		}
		result.WriteString("\x1b[0m")
		result.WriteString(overlayLine)
		result.WriteString("\x1b[0m")

		if suffixStart := anchorX + overlayWidth; suffixStart < viewLineWidth {
			result.WriteString(ansi.TruncateLeft(viewLine, suffixStart, ""))
		}
		viewLines[lineIndex] = result.String()
	}

	return strings.Join(viewLines, "\n")
}

// RenderModal boxes lines in a padded panel of the given inner width
// and returns the panel's lines. Content wider than innerWidth is
// truncated.
func RenderModal(theme Theme, lines []string, innerWidth int) []string {
	background := lipgloss.NewStyle().Background(theme.ModalBackground)
	text := background.Foreground(theme.ModalForeground)

	blank := background.Render(strings.Repeat(" ", innerWidth+4))
	panel := []string{blank}
	for _, line := range lines {
		if ansi.StringWidth(line) > innerWidth {
			line = ansi.Truncate(line, innerWidth-1, "…")
		}
		panel = append(panel, PadOverlayLine(text.Render(line), innerWidth, background))
	}
	return append(panel, blank)
}

// PadOverlayLine pads styled content to innerWidth with two columns of
// margin, painting the padding with backgroundStyle.
func PadOverlayLine(styledContent string, innerWidth int, backgroundStyle lipgloss.Style) string {
	rightPad := max(innerWidth-ansi.StringWidth(styledContent), 0)
	return backgroundStyle.Render("  ") +
		styledContent +
		backgroundStyle.Render(strings.Repeat(" ", rightPad+2))
}
