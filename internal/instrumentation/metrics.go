package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	// Common attributes (reused across metrics)
	attrOperation = "operation"
	attrStatus    = "status"
	attrResult    = "result"
	attrRule      = "rule"
	attrAction    = "action"
	attrTool      = "tool"
	attrSender    = "sender_domain"
)

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// Triage pass metrics
	emailsTriagedTotal metric.Int64Counter
	triagePassDuration metric.Float64Histogram
	pendingEmails      metric.Int64UpDownCounter

	// Rule engine metrics
	rulesEvaluatedTotal  metric.Int64Counter
	rulesFiredTotal      metric.Int64Counter
	actionsExecutedTotal metric.Int64Counter

	// Gmail API metrics
	gmailOperationsTotal   metric.Int64Counter
	gmailOperationDuration metric.Float64Histogram

	// Summary generation metrics
	summaryDuration metric.Float64Histogram

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// Configuration
	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	// Triage pass metrics
	m.emailsTriagedTotal, err = meter.Int64Counter(
		"emails_triaged_total",
		metric.WithDescription("Total number of emails processed by the rule engine"),
		metric.WithUnit("{email}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create emails_triaged_total counter: %w", err)
	}

	m.triagePassDuration, err = meter.Float64Histogram(
		"triage_pass_duration_seconds",
		metric.WithDescription("Duration of a full triage pass in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create triage_pass_duration_seconds histogram: %w", err)
	}

	m.pendingEmails, err = meter.Int64UpDownCounter(
		"pending_emails",
		metric.WithDescription("Number of emails deferred until their content is loaded"),
		metric.WithUnit("{email}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pending_emails gauge: %w", err)
	}

	// Rule engine metrics
	m.rulesEvaluatedTotal, err = meter.Int64Counter(
		"rules_evaluated_total",
		metric.WithDescription("Total number of rule evaluations"),
		metric.WithUnit("{evaluation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rules_evaluated_total counter: %w", err)
	}

	m.rulesFiredTotal, err = meter.Int64Counter(
		"rules_fired_total",
		metric.WithDescription("Total number of rule evaluations whose conditions matched"),
		metric.WithUnit("{match}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rules_fired_total counter: %w", err)
	}

	m.actionsExecutedTotal, err = meter.Int64Counter(
		"actions_executed_total",
		metric.WithDescription("Total number of rule actions executed"),
		metric.WithUnit("{action}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create actions_executed_total counter: %w", err)
	}

	// Gmail API metrics
	m.gmailOperationsTotal, err = meter.Int64Counter(
		"gmail_operations_total",
		metric.WithDescription("Total number of Gmail API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail_operations_total counter: %w", err)
	}

	m.gmailOperationDuration, err = meter.Float64Histogram(
		"gmail_operation_duration_seconds",
		metric.WithDescription("Gmail API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail_operation_duration_seconds histogram: %w", err)
	}

	// Summary generation metrics
	m.summaryDuration, err = meter.Float64Histogram(
		"summary_generation_duration_seconds",
		metric.WithDescription("Link summary generation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create summary_generation_duration_seconds histogram: %w", err)
	}

	// MCP Tool metrics
	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordEmailTriaged records a triaged email with its outcome.
// Result should be one of: "matched", "unmatched", "deferred"
func (m *Metrics) RecordEmailTriaged(ctx context.Context, result string) {
	if m.emailsTriagedTotal == nil {
		return // Instrumentation not initialized
	}

	m.emailsTriagedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResult, result),
	))
}

// RecordTriagePass records a completed triage pass with status and duration.
func (m *Metrics) RecordTriagePass(ctx context.Context, status string, duration time.Duration) {
	if m.triagePassDuration == nil {
		return // Instrumentation not initialized
	}

	m.triagePassDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(attrStatus, status),
	))
}

// AddPendingEmails adjusts the deferred-email gauge. Pass a positive delta
// when emails are deferred and a negative delta when they are resolved.
func (m *Metrics) AddPendingEmails(ctx context.Context, delta int64) {
	if m.pendingEmails == nil {
		return // Instrumentation not initialized
	}

	m.pendingEmails.Add(ctx, delta)
}

// RecordRuleEvaluation records a single rule evaluation against an email.
// Rule names are user-authored and bounded, so they are safe as labels.
func (m *Metrics) RecordRuleEvaluation(ctx context.Context, ruleName string, fired bool) {
	if m.rulesEvaluatedTotal == nil || m.rulesFiredTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := metric.WithAttributes(attribute.String(attrRule, ruleName))
	m.rulesEvaluatedTotal.Add(ctx, 1, attrs)
	if fired {
		m.rulesFiredTotal.Add(ctx, 1, attrs)
	}
}

// RecordActionExecution records a rule action execution.
//
// Parameters:
//   - action: Action type (mark_as_read, delete_email, add_score, etc.)
//   - status: Result status ("success" or "error")
func (m *Metrics) RecordActionExecution(ctx context.Context, action, status string) {
	if m.actionsExecutedTotal == nil {
		return // Instrumentation not initialized
	}

	m.actionsExecutedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrAction, action),
		attribute.String(attrStatus, status),
	))
}

// RecordActionExecutionWithSender records a rule action execution tagged with
// the sender's domain. The sender label is only added when detailedLabels is
// enabled to keep cardinality bounded by default.
func (m *Metrics) RecordActionExecutionWithSender(ctx context.Context, action, status, senderEmail string) {
	if m.actionsExecutedTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrAction, action),
		attribute.String(attrStatus, status),
	}

	// Only add high-cardinality labels if explicitly enabled
	if m.detailedLabels && senderEmail != "" {
		attrs = append(attrs, attribute.String(attrSender, ExtractUserDomain(senderEmail)))
	}

	m.actionsExecutedTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordGmailOperation records a Gmail API operation with operation type,
// status, and duration.
//
// Parameters:
//   - operation: Operation type (list, get_body, mark_read, trash)
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the operation
func (m *Metrics) RecordGmailOperation(ctx context.Context, operation, status string, duration time.Duration) {
	if m.gmailOperationsTotal == nil || m.gmailOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.gmailOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.gmailOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordSummaryGeneration records a link summary generation attempt with
// status and duration. Summaries come from a local model and can be slow,
// so the histogram buckets reach into tens of seconds.
func (m *Metrics) RecordSummaryGeneration(ctx context.Context, status string, duration time.Duration) {
	if m.summaryDuration == nil {
		return // Instrumentation not initialized
	}

	m.summaryDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(attrStatus, status),
	))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
//
// Parameters:
//   - toolName: Name of the MCP tool (e.g., "triage_run", "rules_list")
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the tool execution
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
