// Package ui provides the terminal user interface for storeview.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program styled with Lipgloss. Model holds all state;
// Update is the only place it changes. Blocking work (reading the state
// store, running a catalog.Engine LoadMore, tailing the log file) runs in
// tea.Cmd functions whose results come back as messages.
//
// # Package Structure
//
//   - app.go: Model, Options, Init/Update/View, messages and Run
//   - packages.go: package table, detail box and the load-more trigger
//   - envs.go: environment pane and selection switching
//   - search.go: shared text prompt for row filter, server search and log filter
//   - logs.go: log view over storeview's own log file
//   - header.go: status header, command bar and status line
//   - layout.go, theme.go, style_helpers.go, strings.go: rendering helpers
//
// # Views
//
// Two views are available:
//
//   - Packages: environments on the left; the reconciled package list and a
//     detail box for the selected package on the right
//   - Logs: filtered tail of the log file with follow mode
//
// # Paging
//
// Packages are loaded one catalog page at a time. When the selection comes
// within a page of the last row, the model issues a LoadMore. Only one load is
// outstanding; each carries a sequence number and results from an older
// sequence (after a reset or an environment switch) are dropped. A failed
// load stops automatic paging until the user retries with "m" or resets
// with "r".
//
// Selecting another environment or changing the server-side search builds a
// fresh engine through Options.Engines and cancels the old engine's context.
//
// # External Dependencies
//
//   - state.Store: server status, environments and channels from the poller
//   - catalog: the reconciliation engine and view derivation
//   - logtail: log file tail, parsing and filtering
//   - prefs: theme, last environment and filter persistence
package ui
