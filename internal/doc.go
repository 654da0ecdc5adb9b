// Package internal contains the implementation packages for switchboard.
//
// # Package Organization
//
//   - config: viper-backed configuration with defaults and validation
//   - errors: typed server errors and operator-facing suggestions
//   - logging: slog logger with a runtime level and optional rotating file
//   - renderer: the HTML pages and the JSON payload
//   - router: request targets, the route table, and dispatch
//   - server: the listening socket, lifecycle state machine, and drain
//   - watcher: configuration file change notifications
//   - version: build metadata
//
// A request flows from server (accept and parse) to router (match) to
// renderer (body), and back to server (write). Nothing is shared between
// requests except the immutable route table.
package internal
