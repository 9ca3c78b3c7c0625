// Package logging builds the zerolog logger storeview passes to its
// components.
//
// Output goes to a rotating JSON file (lumberjack) under the configured log
// directory and, for headless subcommands, to a human-readable console writer
// on stderr. The TUI runs file-only; its log pane reads the same file back
// through package logtail.
//
// There is no global logger. Run builds one Logger and hands child loggers
// (Component) to the poller, the catalog engine and the UI.
package logging
