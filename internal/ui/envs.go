package ui

import (
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/storeview/internal/condastore"
)

// envEntry is one selectable line of the environment pane.
type envEntry struct {
	label string
	sel   Selection
}

// environmentEntries lists "catalog only" followed by every known environment
// sorted by namespace/name.
func (m Model) environmentEntries() []envEntry {
	envs := slices.Clone(m.snapshot.Environments)
	slices.SortFunc(envs, func(a, b condastore.Environment) int {
		return strings.Compare(a.Key(), b.Key())
	})
	entries := make([]envEntry, 0, len(envs)+1)
	entries = append(entries, envEntry{label: "(catalog only)"})
	for _, env := range envs {
		entries = append(entries, envEntry{
			label: env.Key(),
			sel:   Selection{Namespace: env.Namespace.Name, Environment: env.Name},
		})
	}
	return entries
}

func (m *Model) clampEnvCursor() {
	n := len(m.snapshot.Environments) + 1
	if m.envCursor >= n {
		m.envCursor = n - 1
	}
	if m.envCursor < 0 {
		m.envCursor = 0
	}
}

// handleEnvironmentsKey processes keyboard input for the environment pane.
func (m Model) handleEnvironmentsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	entries := m.environmentEntries()
	if cur, ok := m.keys.moveCursor(msg, m.envCursor, len(entries), m.contentHeight()-2); ok {
		m.envCursor = cur
		return m, nil
	}
	if !key.Matches(msg, m.keys.Select) || m.envCursor >= len(entries) {
		return m, nil
	}

	sel := entries[m.envCursor].sel
	sel.Search = m.sel.Search
	m.replaceEngine(sel)
	m.focus = panePackages
	m.savePrefs()
	m.log.Info().Str("selection", sel.Label()).Msg("environment selected")
	return m, m.maybeLoadMore()
}

// renderEnvironmentList renders the environment pane content.
func (m Model) renderEnvironmentList(width, height int, bgColor string) string {
	styles := m.theme.Styles()
	bg := NewBgStyle(bgColor)
	focused := m.focus == paneEnvironments

	entries := m.environmentEntries()
	if len(entries) == 1 && !m.snapshot.HasStatus {
		return bg.Render("Waiting for server...", styles.MutedText)
	}

	start := scrollStart(m.envCursor, len(entries), height)
	end := min(start+height, len(entries))
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		entry := entries[i]
		active := entry.sel.Namespace == m.sel.Namespace && entry.sel.Environment == m.sel.Environment
		marker := ternary(active, "▸", " ")

		if focused && i == m.envCursor {
			selText := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
			rowBg := NewBgStyle(m.theme.SelectionBg)
			lines = append(lines, lipgloss.NewStyle().
				Background(lipgloss.Color(m.theme.SelectionBg)).
				Width(width).
				Render(rowBg.Render(marker, selText)+rowBg.Space()+rowBg.Render(truncate(entry.label, width-2), selText)))
			continue
		}

		labelStyle := styles.Text
		if active {
			labelStyle = styles.AccentText.Bold(true)
		} else if entry.sel.Environment == "" {
			labelStyle = styles.MutedText
		}
		lines = append(lines,
			bg.Render(marker, styles.AccentText)+bg.Space()+bg.Render(truncate(entry.label, width-2), labelStyle))
	}
	return strings.Join(lines, "\n")
}
