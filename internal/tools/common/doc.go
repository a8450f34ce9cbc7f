// Package common provides shared helpers for MCP tool implementations,
// primarily the instrumentation wrapper that records invocation metrics and
// traces around each tool handler.
package common
