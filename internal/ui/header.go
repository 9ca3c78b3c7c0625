package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/storeview/internal/catalog"
)

// renderHeader renders the status bar with all information.
func (m Model) renderHeader() string {
	// Header uses Surface background
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	if !m.snapshot.HasStatus {
		return m.renderConnectingHeader(styles, bg)
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		MaxWidth(m.width).
		Render(m.buildStatusContent(styles, bg))
}

// renderConnectingHeader shows the connecting/error state.
func (m Model) renderConnectingHeader(styles Styles, bg BgStyle) string {
	sep := bg.Spaces(2)

	if m.snapshot.LastError != nil {
		last := "soon"
		if !m.lastUpdated.IsZero() {
			last = m.lastUpdated.Format("15:04:05")
		}
		parts := []string{
			bg.Render("storeview", styles.Logo),
			bg.Render("CONDA-STORE "+classifyConnectionError(m.snapshot.LastError), styles.DangerText.Bold(true)),
			bg.Render("Retrying...", styles.WarningText.Bold(true)),
			bg.Render(last, styles.MutedText),
		}
		if m.logPath != "" {
			parts = append(parts,
				bg.Render("logs", styles.FaintText)+bg.Space()+
					bg.Render(truncateMiddle(m.logPath, 50), styles.MutedText))
		}
		return styles.Header.Width(m.width).MaxWidth(m.width).Render(bg.Join(parts, "  "))
	}

	return styles.Header.Width(m.width).MaxWidth(m.width).Render(
		bg.Render("storeview", styles.Logo) + sep +
			bg.Render("Connecting to "+truncateMiddle(m.serverURL, 40)+"...", styles.WarningText.Bold(true)),
	)
}

// buildStatusContent builds the status bar content string.
func (m Model) buildStatusContent(styles Styles, bg BgStyle) string {
	compact := m.width < LayoutCompactWidth
	var parts []string

	parts = append(parts, bg.Render("storeview", styles.Logo))

	switch {
	case m.snapshot.IsOffline():
		parts = append(parts, bg.Render("● OFFLINE", styles.StateStyle("offline").Bold(true)))
	case m.snapshot.Status.OK():
		parts = append(parts, bg.Render("● OK", styles.SuccessText))
	default:
		parts = append(parts, bg.Render("● "+strings.ToUpper(m.snapshot.Status.Status), styles.WarningText))
	}

	if !compact && m.serverURL != "" {
		parts = append(parts, bg.Render(truncateMiddle(m.serverURL, 32), styles.MutedText))
	}

	parts = append(parts,
		bg.Render("Env:", styles.MutedText)+bg.Space()+bg.Render(m.sel.Label(), styles.AccentText),
		bg.Render("Packages:", styles.MutedText)+bg.Space()+bg.Render(fmt.Sprintf("%d", m.stats.Groups), styles.Text),
	)
	if m.sel.HasEnvironment() {
		parts = append(parts,
			bg.Render("Installed:", styles.MutedText)+bg.Space()+
				bg.Render(fmt.Sprintf("%d", m.stats.Annotated), styles.StateStyle("installed")))
	}
	parts = append(parts,
		bg.Render("Page:", styles.MutedText)+bg.Space()+bg.Render(pageProgress(m.stats.Catalog), styles.Text))

	if m.loading {
		parts = append(parts, bg.Render(m.spinner.View(), styles.InfoText))
	}

	if timeStr := m.formatTimestamp(); timeStr != "" && !compact {
		parts = append(parts, bg.Render(timeStr, styles.MutedText))
	}

	if m.snapshot.LastError != nil {
		maxErr := 60
		if compact {
			maxErr = 30
		}
		parts = append(parts,
			bg.Render("ERROR", styles.DangerText.Bold(true))+bg.Space()+
				bg.Render(truncate(m.snapshot.LastError.Error(), maxErr), styles.DangerText))
	}

	return bg.Join(parts, "  ")
}

// pageProgress renders "fetched/total" catalog pages.
func pageProgress(cur catalog.PageCursor) string {
	if !cur.Known {
		return "-"
	}
	total := 0
	if cur.Size > 0 {
		total = (cur.Total + cur.Size - 1) / cur.Size
	}
	if !cur.HasMore {
		return fmt.Sprintf("%d/%d ✓", cur.Fetched(), total)
	}
	return fmt.Sprintf("%d/%d", cur.Fetched(), total)
}

// formatTimestamp formats the last update time with relative indicator.
func (m Model) formatTimestamp() string {
	if m.snapshot.LastUpdated.IsZero() {
		return ""
	}
	since := time.Since(m.snapshot.LastUpdated)
	return m.snapshot.LastUpdated.Format("15:04:05") + " (" + ternary(since < time.Second, "now", humanizeDuration(since)+" ago") + ")"
}

// classifyConnectionError returns a short description of the connection error.
func classifyConnectionError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "OFFLINE"
	case strings.Contains(msg, "no such host"):
		return "HOST NOT FOUND"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "TIMEOUT"
	default:
		return "ERROR"
	}
}

// renderCommandBar renders the command hints bar.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	var commands []helpItem
	switch m.currentView {
	case ViewLogs:
		commands = []helpItem{
			{"Space", ternary(m.logState.follow, "Pause", "Follow")},
			{"L", "Level " + ternary(m.logState.minLevel == "", "all", m.logState.minLevel)},
			{"/", "Filter"},
			{"g/G", "Top/Bottom"},
			{"p", "Packages"},
			{"?", "More"},
		}
	default:
		commands = []helpItem{
			{"f", m.filter.String()},
			{"/", "Filter"},
			{"s", "Search"},
			{"r", "Reset"},
			{"m", "More"},
			{"Tab", ternary(m.focus == paneEnvironments, "Packages", "Envs")},
			{"l", "Logs"},
			{"?", "Help"},
		}
	}

	colon := bg.Render(":", styles.FaintText)
	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).MaxWidth(m.width).Render(bg.Join(segments, "  "))
}

// renderStatusLine renders the bottom line: the open prompt, the last load
// error or notice, or the pagination summary.
func (m Model) renderStatusLine() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	line := styles.Footer.Width(m.width).MaxWidth(m.width)

	if m.inputMode != inputNone {
		return line.Render(m.input.View())
	}

	if m.loadErr != nil {
		text := "load failed: " + m.loadErr.Error()
		if fe, ok := catalog.AsFetchError(m.loadErr); ok && fe.Partial() {
			text = "installed listing interrupted: " + fe.Err.Error()
		}
		return line.Render(
			bg.Render(truncate(text, max(m.width-24, 10)), styles.DangerText) + bg.Spaces(2) +
				bg.Render("m retry · r reset", styles.MutedText))
	}

	s := m.stats
	parts := []string{
		fmt.Sprintf("catalog %d/%d", min(s.Catalog.Fetched()*s.Catalog.Size, s.Catalog.Total), s.Catalog.Total),
	}
	if m.sel.HasEnvironment() {
		parts = append(parts, fmt.Sprintf("installed fetched %d", s.Backlog))
		if s.Pending > 0 {
			parts = append(parts, fmt.Sprintf("%d pending", s.Pending))
		}
	}
	if !m.engineHasMore() && s.Catalog.Known {
		parts = append(parts, "all pages loaded")
	}
	text := bg.Render(strings.Join(parts, " · "), styles.MutedText)
	if m.notice != "" {
		text += bg.Spaces(2) + bg.Render(m.notice, styles.WarningText)
	}
	return line.Render(text)
}

func (m Model) engineHasMore() bool {
	return m.engine != nil && m.engine.HasMore()
}
