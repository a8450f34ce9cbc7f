// Package triage_tools provides MCP tools for managing triage rules and
// running triage passes: rule CRUD, enable/disable toggles, the debug log
// and the sender scoreboard.
package triage_tools
