// Package cmd provides the command-line interface for switchboard.
//
// # Available Commands
//
//   - serve: Start the HTTP server and drain it on SIGINT or SIGTERM
//   - routes: List the route table or resolve a request target against it
//   - config show: Print the merged configuration as YAML or JSON
//   - version: Show build information
//
// # Configuration
//
// Sources, highest priority first:
//
//  1. Command-line flags (--port, --host, --log-level, ...)
//  2. PORT, then SWITCHBOARD_<SECTION>_<KEY> environment variables
//  3. The configuration file: --config, SWITCHBOARD_CONFIG_FILE, or
//     .switchboard.yml in the working directory
//  4. Built-in defaults
//
// While serve runs, edits to log.level in the configuration file take
// effect without a restart.
package cmd
