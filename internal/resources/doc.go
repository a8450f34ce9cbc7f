// Package resources provides read-only MCP resources exposing triage state:
// the rule set and the sender scoreboard. Clients fetch them for context
// without invoking a tool.
package resources
