// Package server provides the MCP server context plus the sidecar HTTP
// endpoints (Prometheus metrics, health probes) for inboxpilot.
//
// ServerContext owns the long-lived dependencies the MCP tools share: the
// SQLite store, the Gmail client (created lazily once a cached OAuth token
// exists) and the triage runner. The MCP transport itself is stdio; only
// metrics and health checks listen on a port, and they bind to localhost by
// default.
package server
