// Package logtail reads the tail of storeview's log file and turns zerolog
// JSON lines into display text for the log pane.
//
// # Overview
//
// The TUI writes its logs to a rotating file (see package logging) instead of
// the terminal it is drawing on. The log pane (key "l") shows the end of that
// file, re-read on every UI tick while the pane is open.
//
// # Reading Log Files
//
// Read extracts the last maxLines lines with a ring buffer, so a log that has
// grown to its rotation limit costs one sequential scan and O(maxLines)
// memory:
//
//	1. Allocate ring buffer of size maxLines
//	2. For each line in file:
//	   - Store line at current index
//	   - Increment index (wrapping at maxLines)
//	   - Track total lines seen
//	3. If total < maxLines: return the first 'count' entries
//	4. Otherwise: return the buffer starting from the current index
//
// A missing file is not an error; the pane simply stays empty until the first
// line is logged.
//
// # Parsing
//
// Parse decodes one zerolog JSON line into an Entry. The well-known keys
// (time, level, component, message, error) get their own fields; everything
// else lands in Fields as strings:
//
//	{"level":"warn","component":"catalog","source":"installed","page":3,"message":"installed catch-up interrupted"}
//	→ Entry{Level: "warn", Component: "catalog", Message: "...",
//	        Fields: {"source": "installed", "page": "3"}}
//
// Lines that are not JSON (a panic trace, output from an older version) are
// kept verbatim in Raw and shown as-is.
//
// # Formatting and Filtering
//
// Format renders an Entry as one line with sorted fields, so the same entry
// always prints the same way. Filter applies the pane's minimum level and
// search text. Styling is left to the UI.
package logtail
