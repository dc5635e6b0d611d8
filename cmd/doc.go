// Package cmd implements the command-line interface for the hearth sync
// engine. It provides a hierarchical command structure for running the
// engine and administering its sync connections.
//
// The package is organized into several subpackages:
//
//   - serve: Commands for starting and configuring the sync engine
//   - conn: Commands for listing, inspecting and dropping sync connections
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See hearth -help for a list of all commands.
package cmd
