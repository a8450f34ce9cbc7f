// Package cmd implements the command-line interface for inboxpilot.
//
// This package provides the following commands:
//   - triage: Run one triage pass over the unread inbox
//   - rules: Manage triage rules (list, enable, disable, delete)
//   - auth: Authorize Gmail access and cache the OAuth token
//   - serve: Start the MCP server to provide tools for AI assistants
//   - version: Display version information
//
// The triage command is the default command when no subcommand is specified.
package cmd
