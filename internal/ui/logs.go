package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/storeview/internal/logtail"
)

// logLevels is the cycle order of the minimum level filter. The empty level
// shows everything.
var logLevels = []string{"", "info", "warn", "error"}

// logState holds all log-related state.
type logState struct {
	lines    []string
	err      error
	follow   bool
	minLevel string
	query    string
	shown    int
}

func newLogState() logState {
	return logState{follow: true}
}

// refreshLogs reads the tail of storeview's own log file.
func (m Model) refreshLogs() tea.Cmd {
	path := m.logPath
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		lines, err := logtail.Read(path, LogTailLimit)
		return logLinesMsg{lines: lines, err: err}
	}
}

// nextLevel returns the minimum level after current in the cycle.
func nextLevel(current string) string {
	for i, lvl := range logLevels {
		if lvl == current {
			return logLevels[(i+1)%len(logLevels)]
		}
	}
	return logLevels[0]
}

// handleLogsKey processes keyboard input for the log view.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logState.follow = !m.logState.follow
		if m.logState.follow {
			m.logViewport.GotoBottom()
		}
		return m, nil

	case key.Matches(msg, m.keys.CycleLevel):
		m.logState.minLevel = nextLevel(m.logState.minLevel)
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.Search):
		return m, m.openInput(inputLogSearch, m.logState.query)

	case key.Matches(msg, m.keys.Top):
		m.logState.follow = false
		m.logViewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.logViewport, cmd = m.logViewport.Update(msg)
	// Scrolling up leaves follow mode
	if !m.logViewport.AtBottom() {
		m.logState.follow = false
	}
	return m, cmd
}

// updateLogViewport sizes the viewport and re-renders the filtered lines.
func (m *Model) updateLogViewport() {
	width := max(m.width-4, 1)
	height := max(m.contentHeight()-2, 1)
	if m.logViewport.Width == 0 {
		m.logViewport = viewport.New(width, height)
	}
	m.logViewport.Width = width
	m.logViewport.Height = height
	m.logViewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))

	m.logViewport.SetContent(m.renderLogContent())
	if m.logState.follow {
		m.logViewport.GotoBottom()
	}
}

// renderLogContent formats the log entries that pass the level and query filters.
func (m *Model) renderLogContent() string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	if m.logPath == "" {
		m.logState.shown = 0
		return styles.MutedText.Render("File logging is disabled")
	}
	if m.logState.err != nil {
		m.logState.shown = 0
		return styles.DangerText.Render(m.logState.err.Error())
	}

	entries := logtail.Filter(logtail.ParseLines(m.logState.lines), m.logState.minLevel, m.logState.query)
	m.logState.shown = len(entries)
	if len(entries) == 0 {
		return styles.MutedText.Render("No log lines")
	}

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, m.logLineStyle(e.Level, styles).Render(logtail.Format(e)))
	}
	return strings.Join(out, "\n")
}

func (m Model) logLineStyle(level string, styles Styles) lipgloss.Style {
	switch strings.ToLower(level) {
	case "error", "fatal", "panic":
		return styles.DangerText
	case "warn":
		return styles.WarningText
	case "debug", "trace":
		return styles.FaintText
	default:
		return styles.Text
	}
}

// renderLogs renders the log view.
func (m Model) renderLogs() string {
	return m.renderTitledBox(m.logTitle(), m.logViewport.View(), m.width, m.contentHeight(), true)
}

// logTitle returns the plain text title for the log view.
func (m Model) logTitle() string {
	parts := []string{"storeview log"}
	if m.logState.minLevel != "" {
		parts = append(parts, m.logState.minLevel+"+")
	}
	if m.logState.query != "" {
		parts = append(parts, "/"+m.logState.query)
	}
	parts = append(parts, fmt.Sprintf("%d lines", m.logState.shown))
	if !m.logState.follow {
		parts = append(parts, "paused")
	}
	return strings.Join(parts, " · ")
}
