// Package instrumentation provides comprehensive OpenTelemetry instrumentation
// for inboxpilot.
//
// This package enables production-grade observability through:
//   - OpenTelemetry metrics for triage passes, rule evaluations, and Gmail API calls
//   - Distributed tracing for triage passes, rule evaluations, and API calls
//   - Prometheus metrics export via /metrics endpoint on dedicated port
//   - OTLP export support for modern observability platforms
//
// # Metrics
//
// The package exposes the following metric categories:
//
// Triage Metrics:
//   - emails_triaged_total: Counter of triaged emails by result (matched, unmatched, deferred)
//   - triage_pass_duration_seconds: Histogram of full triage pass durations
//   - pending_emails: Gauge of emails deferred until their content is loaded
//
// Rule Engine Metrics:
//   - rules_evaluated_total: Counter of rule evaluations by rule name
//   - rules_fired_total: Counter of matched rule evaluations by rule name
//   - actions_executed_total: Counter of executed actions by type and status
//
// Gmail API Metrics:
//   - gmail_operations_total: Counter of Gmail API operations by operation and status
//   - gmail_operation_duration_seconds: Histogram of Gmail API operation durations
//
// Summary Metrics:
//   - summary_generation_duration_seconds: Histogram of link summary generation durations
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// # Tracing
//
// Distributed tracing spans are created for:
//   - MCP tool invocations (tool.<name>)
//   - Rule evaluations (rule.<name>)
//   - Gmail API calls (gmail.<operation>)
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: inboxpilot)
//
// # Example Usage
//
//	// Initialize instrumentation
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
//		ServiceName:    "inboxpilot",
//		ServiceVersion: "0.1.0",
//		Enabled:        true,
//	})
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	// Get metrics recorder
//	recorder := provider.Metrics()
//
//	// Record a Gmail API operation
//	recorder.RecordGmailOperation(ctx, "list", "success", time.Since(start))
//
//	// Record an MCP tool invocation
//	recorder.RecordToolInvocation(ctx, "triage_run", "success", time.Since(start))
package instrumentation
