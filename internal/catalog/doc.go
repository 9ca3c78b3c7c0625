// Package catalog reconciles the conda-store package catalog with the
// packages installed in one environment, one page at a time.
//
// # Overview
//
// The catalog lists every package the server knows about; the build endpoint
// lists what one environment has installed. Both are paginated and sorted by
// name, but independently: page 3 of the catalog may end at "numpy" while the
// installed listing reached "pandas" on its first page, or only "attrs". The
// Engine walks both listings forward in step so every catalog name shown to
// the user carries the right installed annotation, without ever draining
// either listing up front.
//
// # Architecture
//
//   - cursor.go: PageCursor, forward-only pagination state of one source
//   - fetcher.go: Fetcher interface, Record, order validation, Drain
//   - sources.go: Fetchers backed by the condastore API
//   - index.go: Group and Merge, the pure PackageIndex utilities
//   - version.go: numeric-aware version and name ordering
//   - engine.go: the LoadMore/Reset state machine
//   - view.go: filtered, display-ready rows derived from an Index
//
// # LoadMore
//
// Each call runs these steps:
//
//	1. return SkipBusy if another call is in flight
//	2. return SkipExhausted if neither source has anything left to give
//	3. fetch one catalog page, group it, merge it into the index
//	4. while the installed backlog ends before the catalog frontier and the
//	   installed source has more pages: fetch one installed page
//	5. annotate every catalog name up to the frontier from the backlog
//
// The frontier is the greatest catalog name fetched so far. Installed records
// beyond it stay in the backlog until the catalog catches up, so a row never
// appears before the catalog has reached it. Once the catalog is exhausted the
// whole backlog is applied.
//
// Network calls happen without the engine lock held. Busy() reports true for
// the duration, which is what a scroll trigger checks before asking for more.
//
// # Error Handling
//
// Every failed page is a *FetchError naming the source and page:
//
//   - catalog failure: nothing is applied, cursors stay put, retry is safe
//   - installed failure: the catalog page stays merged, Partial() is true,
//     and the next LoadMore resumes the installed catch-up first
//
// The engine requires both listings to be sorted by name. A page that breaks
// that order fails with a *FetchError wrapping *OrderError instead of being
// merged, since out-of-order pages would silently lose annotations.
//
// ErrAlignmentExhausted is not a failure. LoadResult.Notice returns it when
// the installed listing ended while still behind the catalog; catalog names
// past that point are simply not installed.
//
// # Reset
//
// Reset drops the index, both cursors and the backlog. A LoadMore that is in
// flight at that moment completes with LoadResult.Discarded and applies
// nothing. Switching environment means building a new Engine, not resetting
// the old one.
//
// # Merge Semantics
//
// Merge is pure and set-like: records are deduplicated by version, build,
// channel and checksum, so applying the same batch twice or in another order
// yields the same groups. Versions are kept sorted ascending with
// CompareVersions ("2.9" < "2.10"). An installed annotation never reverts to
// empty; when two differ the higher version wins.
//
// # Observing Changes
//
// Subscribe registers a callback that receives an Event after every load,
// failure and reset. The terminal UI uses it to request a redraw instead of
// polling the engine.
package catalog
