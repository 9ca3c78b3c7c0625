// Package state holds the server-level data storeview shares between its
// background poller and the UI.
//
// # Overview
//
// The poller periodically reads the conda-store health status, the list of
// environments and the list of channels. Those three small collections change
// rarely and are needed by several screens (the environment pane, the status
// bar, channel names in the package table), so they live in one Store that
// the poller writes and the UI reads.
//
// Package listings are not kept here. They are large, paginated and tied to
// one environment selection, and are owned by a catalog.Engine instead.
//
// # Architecture
//
//	Producer (Poller):               Consumer (UI):
//	┌──────────────────┐            ┌──────────────────┐
//	│ FetchStatus()    │            │                  │
//	│ FetchEnvironments│            │                  │
//	│ FetchChannels()  │            │                  │
//	│      ↓           │            │                  │
//	│ store.Update()   │───────────→│ store.Snapshot() │
//	│      ↓           │  (mutex)   │      ↓           │
//	│  wait backoff    │            │  render panes    │
//	└──────────────────┘            └──────────────────┘
//
// # Update Semantics
//
//	// Success case: replace everything
//	store.Update(state.Refresh{Status: s, Environments: envs, Channels: chs}, nil)
//
//	// Error case: keep old data, record the error
//	store.Update(state.Refresh{}, err)
//	→ Environments, Channels, Status unchanged
//	→ LastError = err, ConsecutiveFailures++
//
// The UI keeps showing the last good environment list while the server is
// unreachable. IsOffline turns true after two consecutive failures, which is
// when the header switches to its offline badge.
//
// # Defensive Copying
//
// Update and Snapshot both copy slices, and Snapshot wraps LastError in a new
// error value, so the UI can sort or filter what it receives without racing
// the poller.
//
// # Testing Considerations
//
// The zero Store is ready to use; Snapshot on a fresh Store returns a zero
// Snapshot with HasStatus false.
package state
