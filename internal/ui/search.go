package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// inputMode selects what the shared text input edits.
type inputMode int

const (
	inputNone inputMode = iota
	// inputFilter narrows the loaded rows as the user types.
	inputFilter
	// inputServerSearch replaces the engine with one that searches server-side.
	inputServerSearch
	// inputLogSearch filters the log view.
	inputLogSearch
)

var inputPrompts = map[inputMode]struct{ prompt, placeholder string }{
	inputFilter:       {"/", "filter loaded packages..."},
	inputServerSearch: {"search: ", "server-side package search (empty clears)"},
	inputLogSearch:    {"/", "filter log lines..."},
}

// openInput focuses the text input for mode, prefilled with value.
func (m *Model) openInput(mode inputMode, value string) tea.Cmd {
	p := inputPrompts[mode]
	m.inputMode = mode
	m.input.Prompt = p.prompt
	m.input.Placeholder = p.placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) closeInput() {
	m.inputMode = inputNone
	m.input.Blur()
}

// handleInputKey routes keys to the text input while a prompt is open.
func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	mode := m.inputMode
	switch msg.Type {
	case tea.KeyEsc:
		m.closeInput()
		switch mode {
		case inputFilter:
			m.query = ""
			m.refreshRows()
		case inputLogSearch:
			m.logState.query = ""
			m.updateLogViewport()
		}
		return m, nil

	case tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		m.closeInput()
		switch mode {
		case inputFilter:
			m.query = value
			m.refreshRows()
			return m, m.maybeLoadMore()
		case inputServerSearch:
			if value == m.sel.Search {
				return m, nil
			}
			sel := m.sel
			sel.Search = value
			m.replaceEngine(sel)
			m.log.Info().Str("selection", sel.Label()).Str("search", value).Msg("server search changed")
			return m, m.maybeLoadMore()
		case inputLogSearch:
			m.logState.query = value
			m.updateLogViewport()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	switch mode {
	case inputFilter:
		m.query = strings.TrimSpace(m.input.Value())
		m.selectedRow = 0
		m.refreshRows()
	case inputLogSearch:
		m.logState.query = strings.TrimSpace(m.input.Value())
		m.updateLogViewport()
	}
	return m, cmd
}
