// Package logging provides structured logging utilities for inboxpilot.
//
// It centralizes slog handler construction and attribute naming so log
// records stay consistent across the codebase, and sanitizes PII before it
// reaches the log stream: sender addresses are hashed (UserHash) or reduced
// to their domain (Domain), never logged verbatim.
package logging
