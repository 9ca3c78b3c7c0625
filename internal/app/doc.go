// Package app provides the orchestration layer for storeview.
//
// # Overview
//
// This package wires together configuration, logging, the conda-store client,
// polling, state management and the UI. It is the composition root: every
// long-lived dependency is built here and handed to the packages that use it.
//
// # Architecture
//
// Run follows a simple initialization pattern:
//
//  1. Load preferences (theme, last environment, last filter)
//  2. Initialize the HTTP client for the conda-store API
//  3. Create the shared state.Store for UI and poller coordination
//  4. Pick the initial selection: configured environment, then remembered one
//  5. Launch the poller and the TUI under one errgroup
//  6. Block until the user quits or the context is cancelled
//
// # Components
//
//   - app.go: Run, the engine factory and engine event logging
//   - poller.go: server status, environment and channel refresh with backoff
//   - headless.go: status, envs and packages output for the CLI subcommands
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> prefs.Load()            Theme and last selection
//	       ├─────> condastore.NewClient()  HTTP client
//	       ├─────> state.Store{}           Shared state container
//	       ├─────> Poller.Run()            Background refresh (errgroup)
//	       └─────> ui.Run()                TUI (errgroup, blocks)
//	                 └─> EngineFactory     One catalog.Engine per selection
//
//	Background Poller Loop:
//	┌─────────────────────────────────────────┐
//	│ Poller.Run() goroutine                  │
//	│  ├─> FetchStatus()                      │
//	│  ├─> FetchAllEnvironments()  (parallel) │
//	│  ├─> FetchChannels()                    │
//	│  └─> store.Update()  (atomic)           │
//	│      └─> UI reads store.Snapshot()      │
//	└─────────────────────────────────────────┘
//
// # Polling Behavior
//
// The poller refreshes at poll_interval (default 5 seconds). After a failed
// poll the wait doubles for each consecutive failure, capped at 30 seconds,
// and a success returns to the base interval. Failures keep the previous data
// in the store and are logged with the failing source.
//
// Package listings are not polled. They are paged on demand by the engine the
// UI holds for the current selection.
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Invalid server URL
//   - The TUI failing to start
//
// Recoverable errors (logged, polling continues):
//   - Status, environment or channel fetch failures
//   - Network timeouts during polling
//
// Package load failures belong to the engine and surface in the UI status
// line with a retry key.
//
// # Headless Mode
//
// ListPackages drives the same engine without the TUI: it calls LoadMore a
// fixed number of times (or until the catalog is exhausted) and prints the
// derived view. With Installed set it drains the environment's installed
// listing directly.
//
// # Dependencies
//
//   - config: storeview configuration (viper)
//   - logging: zerolog logger with rotating file output
//   - condastore: HTTP client for the conda-store API
//   - catalog: reconciliation engine and view derivation
//   - state: thread-safe container for status, environments and channels
//   - ui: Bubble Tea terminal user interface
package app
