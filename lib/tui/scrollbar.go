// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderScrollbar produces a one-column scrollbar of the given height
// whose thumb marks the visible window within totalItems.
//
// The track is always drawn in full. When every item fits, the thumb
// fills the whole track. The thumb takes the accent color when the
// list has focus and the border color otherwise.
func RenderScrollbar(theme Theme, height, totalItems, visibleItems, scrollOffset int, focused bool) string {
	if height <= 0 {
		return ""
	}

	thumbColor := theme.BorderColor
	if focused {
		thumbColor = theme.Accent
	}
	trackStyle := lipgloss.NewStyle().Foreground(theme.BorderColor)
	thumbStyle := lipgloss.NewStyle().Foreground(thumbColor)

	thumbSize, thumbOffset := height, 0
	if totalItems > visibleItems && totalItems > 0 {
		// The thumb is sized by the visible share, never below one
		// row, and placed by how far the list has scrolled.
		thumbSize = max(height*visibleItems/totalItems, 1)
		scrollableRange := totalItems - visibleItems
		trackRange := height - thumbSize
		if trackRange > 0 {
			thumbOffset = min(scrollOffset*trackRange/scrollableRange, trackRange)
		}
	}

	lines := make([]string, height)
	for index := range lines {
		if index >= thumbOffset && index < thumbOffset+thumbSize {
			lines[index] = thumbStyle.Render("┃")
		} else {
			lines[index] = trackStyle.Render("│")
		}
	}
	return strings.Join(lines, "\n")
}
