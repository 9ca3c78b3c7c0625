package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/five82/storeview/internal/catalog"
	"github.com/five82/storeview/internal/prefs"
	"github.com/five82/storeview/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewPackages View = iota
	ViewLogs
)

// pane identifies the focused pane of the packages view.
type pane int

const (
	paneEnvironments pane = iota
	panePackages
)

// Selection identifies the environment and server-side search term an engine
// serves. A selection without an environment lists the catalog only.
type Selection struct {
	Namespace   string
	Environment string
	Search      string
}

// HasEnvironment reports whether installed packages are reconciled.
func (s Selection) HasEnvironment() bool {
	return s.Namespace != "" && s.Environment != ""
}

// Label returns the display name of the selection.
func (s Selection) Label() string {
	if !s.HasEnvironment() {
		return "catalog only"
	}
	return s.Namespace + "/" + s.Environment
}

// EngineFactory builds a fresh engine for a selection. Switching selection
// always discards the previous engine.
type EngineFactory func(sel Selection) *catalog.Engine

// Options configures the UI.
type Options struct {
	Context   context.Context
	Store     *state.Store
	Engines   EngineFactory
	Selection Selection
	Filter    catalog.Filter
	PollTick  time.Duration
	ThemeName string
	PrefsPath string
	LogPath   string
	ServerURL string
	Logger    zerolog.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	store     *state.Store
	engines   EngineFactory
	prefsPath string
	logPath   string
	serverURL string
	pollTick  time.Duration
	log       zerolog.Logger
	keys      keyMap

	// UI state
	theme       Theme
	currentView View
	focus       pane
	width       int
	height      int
	ready       bool
	showHelp    bool

	// Data state
	snapshot    state.Snapshot
	lastUpdated time.Time

	// Environment pane
	envCursor int

	// Package state
	sel          Selection
	engine       *catalog.Engine
	engineCtx    context.Context
	engineCancel context.CancelFunc
	stats        catalog.Stats
	rows         []catalog.Row
	selectedRow  int
	filter       catalog.Filter
	query        string
	loadSeq      int
	loading      bool
	loadErr      error
	notice       string
	spinner      spinner.Model

	// Text input shared by the search prompts
	input     textinput.Model
	inputMode inputMode

	// Log state
	logViewport viewport.Model
	logState    logState
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = time.Second
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Dracula"
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	ti := textinput.New()
	ti.CharLimit = 100

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	m := Model{
		ctx:         ctx,
		store:       opts.Store,
		engines:     opts.Engines,
		prefsPath:   prefsPath,
		logPath:     opts.LogPath,
		serverURL:   opts.ServerURL,
		pollTick:    pollTick,
		log:         opts.Logger,
		keys:        DefaultKeyMap(),
		theme:       GetTheme(themeName),
		currentView: ViewPackages,
		focus:       panePackages,
		filter:      opts.Filter,
		spinner:     sp,
		input:       ti,
		logState:    newLogState(),
	}
	if !opts.Selection.HasEnvironment() {
		m.focus = paneEnvironments
	}
	m.replaceEngine(opts.Selection)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tickCmd(m.pollTick),
		func() tea.Msg { return loadRequestMsg{} },
	}
	// Fetch snapshot immediately on start
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.updateLogViewport()
		return m, m.maybeLoadMore()

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		channelsChanged := len(msg.Channels) != len(m.snapshot.Channels)
		m.snapshot = state.Snapshot(msg)
		m.lastUpdated = time.Now()
		m.clampEnvCursor()
		if channelsChanged {
			m.refreshRows()
		}
		return m, nil

	case loadRequestMsg:
		return m, m.maybeLoadMore()

	case loadResultMsg:
		return m.handleLoadResult(msg)

	case logLinesMsg:
		m.logState.lines = msg.lines
		m.logState.err = msg.err
		m.updateLogViewport()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	switch m.currentView {
	case ViewLogs:
		b.WriteString(m.renderLogs())
	default:
		b.WriteString(m.renderPackagesView())
	}
	b.WriteString("\n")
	b.WriteString(m.renderStatusLine())
	return b.String()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	if m.inputMode != inputNone {
		return m.handleInputKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.ViewLogs):
		m.currentView = ViewLogs
		m.updateLogViewport()
		return m, m.refreshLogs()

	case key.Matches(msg, m.keys.ViewPackages),
		m.currentView == ViewLogs && key.Matches(msg, m.keys.Escape):
		m.currentView = ViewPackages
		return m, nil
	}

	switch m.currentView {
	case ViewLogs:
		return m.handleLogsKey(msg)
	default:
		return m.handlePackagesKey(msg)
	}
}

// handleTick processes the polling tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}

	if m.currentView == ViewLogs && m.logState.follow {
		if cmd := m.refreshLogs(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	cmds = append(cmds, tickCmd(m.pollTick))
	return m, tea.Batch(cmds...)
}

// replaceEngine discards the current engine and builds one for sel. A load
// still running against the old engine is cancelled and its result ignored.
func (m *Model) replaceEngine(sel Selection) {
	if m.engineCancel != nil {
		m.engineCancel()
		m.engineCancel = nil
	}
	m.sel = sel
	m.engine = nil
	if m.engines != nil {
		m.engine = m.engines(sel)
	}
	if m.engine != nil {
		m.engineCtx, m.engineCancel = context.WithCancel(m.ctx)
	}
	m.loadSeq++
	m.loading = false
	m.loadErr = nil
	m.notice = ""
	m.selectedRow = 0
	m.refreshRows()
}

// savePrefs persists theme, selection and filter. Failures are logged only.
func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	p := prefs.Prefs{
		Theme:           m.theme.Name,
		LastNamespace:   m.sel.Namespace,
		LastEnvironment: m.sel.Environment,
		LastFilter:      m.filter.String(),
	}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.log.Warn().Err(err).Str("path", m.prefsPath).Msg("save prefs failed")
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

// loadRequestMsg asks the model to top up rows if the selection is near the end.
type loadRequestMsg struct{}

type loadResultMsg struct {
	seq    int
	result catalog.LoadResult
	err    error
}

type logLinesMsg struct {
	lines []string
	err   error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

func loadMoreCmd(ctx context.Context, engine *catalog.Engine, seq int) tea.Cmd {
	return func() tea.Msg {
		res, err := engine.LoadMore(ctx)
		return loadResultMsg{seq: seq, result: res, err: err}
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	final, err := p.Run()
	if fm, ok := final.(Model); ok && fm.engineCancel != nil {
		fm.engineCancel()
	}
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
