// Package config loads storeview's runtime settings.
//
// # Overview
//
// Settings are layered with viper. From lowest to highest precedence:
//
//  1. Built-in defaults (New)
//  2. The TOML config file, ~/.config/storeview/config.toml unless --config
//     names another one
//  3. STOREVIEW_* environment variables (STOREVIEW_SERVER_URL, ...)
//  4. Command-line flags bound to the same viper instance by cmd/storeview
//
// A missing config file is not an error, so storeview runs out of the box
// against a local conda-store on port 5000.
//
// # Default Values
//
//   - server_url: http://localhost:5000
//   - api_prefix: /api/v1
//   - page_size: 100 (clamped to 1..1000)
//   - request_timeout: 10s, per HTTP request
//   - load_timeout: 30s, per LoadMore call of the catalog engine
//   - poll_interval: 5s, health/environment refresh
//   - log_dir: ~/.local/share/storeview/logs
//   - prefs_path: ~/.config/storeview/prefs.toml
//
// # TOML Format
//
//	server_url = "https://conda.example.com/conda-store"
//	namespace = "default"
//	environment = "science"
//	page_size = 200
//	request_timeout = "15s"
//
// Durations use Go syntax ("500ms", "1m"). A bare host:port server_url gets
// an http:// scheme.
//
// # Path Expansion
//
// log_dir, prefs_path and the config path itself accept "~" and relative
// paths; both are turned into absolute paths.
//
// # Error Handling
//
// Load fails on an unreadable or malformed config file ("parse config: ..."),
// on values that cannot be decoded ("decode config: ..."), and when an
// environment is given without its namespace.
package config
