package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/storeview/internal/catalog"
)

// detailBoxHeight is the height of the package detail box, borders included.
const detailBoxHeight = 7

// handlePackagesKey processes keyboard input for the packages view.
func (m Model) handlePackagesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Tab):
		if m.focus == paneEnvironments {
			m.focus = panePackages
		} else {
			m.focus = paneEnvironments
		}
		return m, nil

	case key.Matches(msg, m.keys.CycleFilter):
		m.filter = m.filter.Next()
		m.selectedRow = 0
		m.refreshRows()
		m.savePrefs()
		return m, m.maybeLoadMore()

	case key.Matches(msg, m.keys.Search):
		return m, m.openInput(inputFilter, m.query)

	case key.Matches(msg, m.keys.ServerSearch):
		return m, m.openInput(inputServerSearch, m.sel.Search)

	case key.Matches(msg, m.keys.Refresh):
		return m, m.resetEngine()

	case key.Matches(msg, m.keys.LoadMore):
		m.loadErr = nil
		return m, m.startLoad()

	case key.Matches(msg, m.keys.Escape):
		if m.query != "" {
			m.query = ""
			m.refreshRows()
		}
		return m, nil
	}

	if m.focus == paneEnvironments {
		return m.handleEnvironmentsKey(msg)
	}

	if cur, ok := m.keys.moveCursor(msg, m.selectedRow, len(m.rows), m.tableRows()); ok {
		m.selectedRow = cur
		return m, m.maybeLoadMore()
	}
	return m, nil
}

// moveCursor applies a navigation key to cursor within n items. page is the
// number of visible items. It reports false when msg is not a navigation key.
func (k keyMap) moveCursor(msg tea.KeyMsg, cursor, n, page int) (int, bool) {
	half := max(page/2, 1)
	switch {
	case key.Matches(msg, k.Up):
		cursor--
	case key.Matches(msg, k.Down):
		cursor++
	case key.Matches(msg, k.Top):
		cursor = 0
	case key.Matches(msg, k.Bottom):
		cursor = n - 1
	case key.Matches(msg, k.HalfPageUp):
		cursor -= half
	case key.Matches(msg, k.HalfPageDown):
		cursor += half
	default:
		return cursor, false
	}
	if cursor > n-1 {
		cursor = n - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	return cursor, true
}

// maybeLoadMore requests the next page when the selection is within a page of
// the last row. After a failure it waits for an explicit retry.
func (m *Model) maybeLoadMore() tea.Cmd {
	if m.loadErr != nil {
		return nil
	}
	remaining := len(m.rows) - 1 - m.selectedRow
	if remaining > max(loadThreshold, m.tableRows()) {
		return nil
	}
	return m.startLoad()
}

// startLoad issues one LoadMore unless one is already running or the engine
// has nothing left to fetch.
func (m *Model) startLoad() tea.Cmd {
	if m.engine == nil || m.loading || !m.engine.HasMore() {
		return nil
	}
	m.loadSeq++
	m.loading = true
	return tea.Batch(loadMoreCmd(m.engineCtx, m.engine, m.loadSeq), m.spinner.Tick)
}

// handleLoadResult applies the outcome of a LoadMore issued by startLoad.
func (m Model) handleLoadResult(msg loadResultMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.loadSeq {
		return m, nil
	}
	m.loading = false
	switch {
	case msg.err != nil:
		m.loadErr = msg.err
		m.log.Warn().Err(msg.err).Str("selection", m.sel.Label()).Msg("load more failed")
	case msg.result.Skipped == catalog.SkipBusy:
		m.refreshRows()
		return m, nil
	case msg.result.Notice() != nil:
		m.notice = msg.result.Notice().Error()
	}
	m.refreshRows()
	return m, m.maybeLoadMore()
}

// resetEngine clears everything loaded for the current selection and starts
// again from the first page.
func (m *Model) resetEngine() tea.Cmd {
	if m.engine == nil {
		return nil
	}
	m.engine.Reset()
	m.loadSeq++
	m.loading = false
	m.loadErr = nil
	m.notice = ""
	m.selectedRow = 0
	m.refreshRows()
	m.log.Info().Str("selection", m.sel.Label()).Msg("package list reset")
	return m.maybeLoadMore()
}

// refreshRows rebuilds the visible rows from the engine's index.
func (m *Model) refreshRows() {
	if m.engine == nil {
		m.rows = nil
		m.stats = catalog.Stats{}
		m.selectedRow = 0
		return
	}
	m.stats = m.engine.Stats()
	m.rows = catalog.BuildView(m.engine.Index(), catalog.ViewOptions{
		Filter:   m.filter,
		Query:    m.query,
		Channels: m.snapshot.ChannelNames(),
	})
	if m.selectedRow >= len(m.rows) {
		m.selectedRow = max(len(m.rows)-1, 0)
	}
}

// selectedPackage returns the row under the cursor.
func (m Model) selectedPackage() (catalog.Row, bool) {
	if m.selectedRow < 0 || m.selectedRow >= len(m.rows) {
		return catalog.Row{}, false
	}
	return m.rows[m.selectedRow], true
}

// tableRows is the number of package rows that fit in the table box.
func (m Model) tableRows() int {
	// borders and the column header
	return max(m.contentHeight()-detailBoxHeight-3, 1)
}

// rowState classifies a row for coloring.
func rowState(r catalog.Row) string {
	switch {
	case r.Updatable:
		return "updatable"
	case r.InstalledVersion != "":
		return "installed"
	default:
		return "available"
	}
}

func rowMarker(r catalog.Row) string {
	switch rowState(r) {
	case "updatable":
		return "↑"
	case "installed":
		return "●"
	default:
		return " "
	}
}

// renderPackagesView renders the environment pane beside the package table
// and its detail box.
func (m Model) renderPackagesView() string {
	height := m.contentHeight()
	envWidth := m.envPaneWidth()
	pkgWidth := max(m.width-envWidth, 20)

	envFocused := m.focus == paneEnvironments
	envPane := m.renderTitledBox("Environments",
		m.renderEnvironmentList(envWidth-2, height-2, m.paneBg(envFocused)),
		envWidth, height, envFocused)

	tableHeight := max(height-detailBoxHeight, 4)
	tableFocused := m.focus == panePackages
	table := m.renderTitledBox(m.packagesTitle(),
		m.renderPackageTable(pkgWidth-2, m.paneBg(tableFocused)),
		pkgWidth, tableHeight, tableFocused)

	detail := m.renderTitledBox("Details",
		m.renderPackageDetail(pkgWidth-4),
		pkgWidth, height-tableHeight, false)

	right := lipgloss.JoinVertical(lipgloss.Left, table, detail)
	return lipgloss.JoinHorizontal(lipgloss.Top, envPane, right)
}

func (m Model) paneBg(focused bool) string {
	return ternary(focused, m.theme.FocusBg, m.theme.SurfaceAlt)
}

// packagesTitle returns the plain text title for the package table.
func (m Model) packagesTitle() string {
	parts := []string{"Packages", m.sel.Label()}
	if m.sel.Search != "" {
		parts = append(parts, "search "+m.sel.Search)
	}
	if m.filter != catalog.FilterAll {
		parts = append(parts, m.filter.String())
	}
	if m.query != "" {
		parts = append(parts, "/"+m.query)
	}
	parts = append(parts, fmt.Sprintf("%d shown", len(m.rows)))
	return strings.Join(parts, " · ")
}

// packageColumns returns column widths for a table of the given inner width.
func (m Model) packageColumns(width int) (name, version, channel, summary int) {
	version = 14
	if m.width >= LayoutChannelWidth {
		channel = 16
	}
	// marker, two version columns and the gaps between columns
	used := 2 + 2*(version+1) + channel
	if channel > 0 {
		used++
	}
	name = max(width-used, 12)
	if m.width >= LayoutSummaryWidth && name > 32 {
		summary = name - 32 - 1
		name = 32
	}
	return name, version, channel, summary
}

// renderPackageTable renders the visible window of package rows.
func (m Model) renderPackageTable(width int, bgColor string) string {
	styles := m.theme.Styles()
	bg := NewBgStyle(bgColor)
	nameW, verW, chanW, sumW := m.packageColumns(width)

	header := "  " + fit("NAME", nameW) + " " + fit("LATEST", verW) + " " + fit("INSTALLED", verW)
	if chanW > 0 {
		header += " " + fit("CHANNEL", chanW)
	}
	if sumW > 0 {
		header += " " + fit("SUMMARY", sumW)
	}
	lines := []string{bg.Render(header, styles.FaintText.Bold(true))}

	if len(m.rows) == 0 {
		msg := "No packages match"
		switch {
		case m.engine == nil:
			msg = "No catalog configured"
		case m.loading:
			msg = m.spinner.View() + " Loading packages..."
		case m.loadErr != nil:
			msg = "Load failed · m retry · r reset"
		case m.engine.HasMore():
			msg = "No matches yet · m load next page"
		}
		lines = append(lines, bg.Render(msg, styles.MutedText))
		return strings.Join(lines, "\n")
	}

	visible := m.tableRows()
	start := scrollStart(m.selectedRow, len(m.rows), visible)
	end := min(start+visible, len(m.rows))
	for i := start; i < end; i++ {
		r := m.rows[i]
		selected := i == m.selectedRow
		rowBg := bgColor
		if selected {
			rowBg = m.theme.SelectionBg
		}
		content := m.formatPackageRow(r, nameW, verW, chanW, sumW, rowBg, selected)
		lines = append(lines, lipgloss.NewStyle().
			Background(lipgloss.Color(rowBg)).
			Width(width).
			Render(content))
	}
	return strings.Join(lines, "\n")
}

// formatPackageRow formats a package row with inline colors. Selected rows use
// SelectionText throughout for contrast.
func (m Model) formatPackageRow(r catalog.Row, nameW, verW, chanW, sumW int, bgColor string, selected bool) string {
	bg := NewBgStyle(bgColor)
	styles := m.theme.Styles()

	markerStyle := styles.StateStyle(rowState(r))
	nameStyle := styles.Text
	versionStyle := styles.MutedText
	installedStyle := styles.StateStyle(rowState(r))
	faint := styles.FaintText
	if selected {
		selText := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		markerStyle, nameStyle, versionStyle, installedStyle, faint = selText, selText, selText, selText, selText
	}

	installed := r.InstalledVersion
	if installed == "" {
		installed = "-"
	}

	out := bg.Render(rowMarker(r), markerStyle) + bg.Space() +
		bg.Render(fit(r.Name, nameW), nameStyle) + bg.Space() +
		bg.Render(fit(r.Latest.Version, verW), versionStyle) + bg.Space() +
		bg.Render(fit(installed, verW), installedStyle)
	if chanW > 0 {
		out += bg.Space() + bg.Render(fit(r.Channel, chanW), faint)
	}
	if sumW > 0 {
		out += bg.Space() + bg.Render(truncate(r.Latest.Summary, sumW), faint)
	}
	return out
}

// scrollStart returns the first visible index that keeps selected in view.
func scrollStart(selected, total, visible int) int {
	if visible <= 0 || total <= visible {
		return 0
	}
	start := selected - visible/2
	if start < 0 {
		start = 0
	}
	if start > total-visible {
		start = total - visible
	}
	return start
}

// renderPackageDetail renders the selected package's versions and metadata.
func (m Model) renderPackageDetail(width int) string {
	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)
	bg := NewBgStyle(m.theme.SurfaceAlt)

	r, ok := m.selectedPackage()
	if !ok {
		return bg.Render("Select a package", styles.MutedText)
	}

	state := rowState(r)
	first := bg.Render(r.Name, styles.Text.Bold(true)) + bg.Spaces(2) +
		bg.Render(r.Latest.Version, styles.AccentText)
	if r.Latest.Build != "" {
		first += bg.Space() + bg.Render(r.Latest.Build, styles.FaintText)
	}
	switch state {
	case "updatable":
		first += bg.Spaces(2) + bg.Render("installed "+r.InstalledVersion, styles.StateStyle(state).Background(lipgloss.Color(m.theme.SurfaceAlt))) +
			bg.Space() + bg.Render("update available", styles.WarningText)
	case "installed":
		first += bg.Spaces(2) + bg.Render("installed", styles.StateStyle(state).Background(lipgloss.Color(m.theme.SurfaceAlt)))
	}

	var meta []string
	if r.Channel != "" {
		meta = append(meta, "channel "+r.Channel)
	}
	if r.Latest.License != "" {
		meta = append(meta, "license "+r.Latest.License)
	}
	if r.Latest.Checksum != "" {
		meta = append(meta, "sha256 "+truncate(r.Latest.Checksum, 12))
	}
	if r.Latest.Home != "" {
		meta = append(meta, truncateMiddle(r.Latest.Home, 48))
	}

	lines := []string{
		first,
		bg.Render(truncate(strings.Join(meta, " · "), width), styles.MutedText),
		bg.Render("versions", styles.FaintText) + bg.Space() +
			bg.Render(truncate(strings.Join(r.Versions, ", "), max(width-9, 1)), styles.Text),
		bg.Render(truncate(r.Latest.Summary, width), styles.MutedText),
	}
	return strings.Join(lines, "\n")
}
