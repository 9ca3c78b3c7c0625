package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// LayoutChannelWidth is the minimum width to show the channel column.
	LayoutChannelWidth = 120

	// LayoutSummaryWidth is the minimum width to show package summaries.
	LayoutSummaryWidth = 150
)

// Pane and paging sizes.
const (
	// envPaneMinWidth and envPaneMaxWidth bound the environment pane.
	envPaneMinWidth = 24
	envPaneMaxWidth = 40

	// loadThreshold is how many rows from the end the selection may get
	// before the next page is requested.
	loadThreshold = 10

	// LogTailLimit is the maximum number of log lines read per refresh.
	LogTailLimit = 2000
)

// chromeHeight is the number of lines used by header, command bar and status line.
const chromeHeight = 3

// contentHeight is the height available to the active view.
func (m Model) contentHeight() int {
	return max(m.height-chromeHeight, 3)
}

// envPaneWidth returns the width of the environment pane for the terminal width.
func (m Model) envPaneWidth() int {
	return min(max(m.width/4, envPaneMinWidth), envPaneMaxWidth)
}

// renderTitledBox renders content in a box with the title embedded in the top border:
// ┌─── Title ───┐
// A focused box uses BorderFocus and FocusBg.
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	var borderColorStr, bgColorStr string
	if focused {
		borderColorStr = m.theme.BorderFocus
		bgColorStr = m.theme.FocusBg
	} else {
		borderColorStr = m.theme.Border
		bgColorStr = m.theme.SurfaceAlt
	}
	bg := NewBgStyle(bgColorStr)
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColorStr))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	innerWidth := max(width-2, 0)
	title = truncate(title, max(innerWidth-4, 1))
	titleLen := lipgloss.Width(title)
	leftPad := max((innerWidth-titleLen-2)/2, 0)
	rightPad := max(innerWidth-titleLen-2-leftPad, 0)

	topBorder := bg.Render("┌", borderStyle) +
		bg.Render(strings.Repeat("─", leftPad), borderStyle) +
		bg.Render(" "+title+" ", titleStyle) +
		bg.Render(strings.Repeat("─", rightPad), borderStyle) +
		bg.Render("┐", borderStyle)

	bottomBorder := bg.Render("└", borderStyle) +
		bg.Render(strings.Repeat("─", innerWidth), borderStyle) +
		bg.Render("┘", borderStyle)

	contentStyle := lipgloss.NewStyle().Width(innerWidth).MaxWidth(innerWidth).Background(lipgloss.Color(bgColorStr))

	contentLines := strings.Split(content, "\n")
	boxHeight := max(height-2, 0)

	lines := make([]string, 0, boxHeight)
	for i := 0; i < boxHeight; i++ {
		var line string
		if i < len(contentLines) {
			line = contentLines[i]
		}
		lines = append(lines,
			bg.Render("│", borderStyle)+
				contentStyle.Render(line)+
				bg.Render("│", borderStyle))
	}

	return topBorder + "\n" + strings.Join(lines, "\n") + "\n" + bottomBorder
}
