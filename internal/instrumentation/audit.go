package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// ActionRecord captures all information about a rule action executed against
// an email, for audit logging. Destructive actions (marking read, trashing)
// change the user's mailbox without further confirmation, so every execution
// leaves an audit trail.
//
// # Privacy Considerations
//
// The SenderEmail field contains PII. When logging, consider:
//   - Using SenderDomain() to get only the domain for metrics/general logs
//   - Only logging the full address in audit-specific log streams
//   - Ensuring audit logs have appropriate access controls
type ActionRecord struct {
	// Rule and action identity
	Rule   string
	Action string

	// Target email
	EmailID     string
	SenderEmail string

	// Destructive marks actions that modify the mailbox (mark_as_read,
	// delete_email) as opposed to local-only actions like add_score.
	Destructive bool

	// Execution details
	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	// Tracing context
	TraceID string
	SpanID  string
}

// SenderDomain returns the domain portion of the sender's address for
// lower-cardinality logging.
func (ar *ActionRecord) SenderDomain() string {
	return ExtractUserDomain(ar.SenderEmail)
}

// Status returns "success" or "error" based on the Success field.
func (ar *ActionRecord) Status() string {
	if ar.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns slog attributes for structured logging.
// This provides a consistent set of fields for all action execution logs.
//
// # Cardinality
//
// This function uses cardinality-controlled values (sender_domain)
// for metrics-compatible logging. For full audit logging, use LogAuditAttrs.
func (ar *ActionRecord) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("rule", ar.Rule),
		slog.String("action", ar.Action),
		slog.String("sender_domain", ar.SenderDomain()),
		slog.Duration("duration", ar.Duration),
		slog.Bool("success", ar.Success),
	}

	// Add optional fields only if present
	if ar.EmailID != "" {
		attrs = append(attrs, slog.String("email_id", ar.EmailID))
	}
	if ar.Destructive {
		attrs = append(attrs, slog.Bool("destructive", true))
	}
	if ar.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ar.TraceID))
	}
	if ar.Error != "" {
		attrs = append(attrs, slog.String("error", ar.Error))
	}

	return attrs
}

// LogAuditAttrs returns slog attributes for full audit logging.
// This includes the full sender address for compliance/audit purposes.
//
// # Security Warning
//
// This method includes PII (full email address). Ensure audit logs are:
//   - Stored securely with appropriate access controls
//   - Not exposed to general monitoring dashboards
//   - Retained according to compliance requirements
func (ar *ActionRecord) LogAuditAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("rule", ar.Rule),
		slog.String("action", ar.Action),
		slog.String("sender", ar.SenderEmail),
		slog.Duration("duration", ar.Duration),
		slog.Bool("success", ar.Success),
		slog.Bool("destructive", ar.Destructive),
	}

	// Add all optional fields
	if ar.EmailID != "" {
		attrs = append(attrs, slog.String("email_id", ar.EmailID))
	}
	if ar.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ar.TraceID))
	}
	if ar.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ar.SpanID))
	}
	if ar.Error != "" {
		attrs = append(attrs, slog.String("error", ar.Error))
	}

	return attrs
}

// NewActionRecord creates a new ActionRecord with timing started.
// Call Complete() when the action finishes.
func NewActionRecord(rule, action string) *ActionRecord {
	return &ActionRecord{
		Rule:      rule,
		Action:    action,
		StartTime: time.Now(),
	}
}

// WithEmail sets the target email identity.
func (ar *ActionRecord) WithEmail(id, senderEmail string) *ActionRecord {
	ar.EmailID = id
	ar.SenderEmail = senderEmail
	return ar
}

// WithDestructive marks the action as mailbox-modifying.
func (ar *ActionRecord) WithDestructive(destructive bool) *ActionRecord {
	ar.Destructive = destructive
	return ar
}

// WithSpanContext extracts trace context from the current span.
func (ar *ActionRecord) WithSpanContext(ctx context.Context) *ActionRecord {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		ar.TraceID = span.SpanContext().TraceID().String()
		ar.SpanID = span.SpanContext().SpanID().String()
	}
	return ar
}

// Complete marks the action as completed and calculates duration.
// Returns the same ActionRecord for method chaining.
func (ar *ActionRecord) Complete(success bool, err error) *ActionRecord {
	ar.Duration = time.Since(ar.StartTime)
	ar.Success = success
	if err != nil {
		ar.Error = err.Error()
	}
	return ar
}

// CompleteWithError marks the action as failed with the given error.
func (ar *ActionRecord) CompleteWithError(err error) *ActionRecord {
	return ar.Complete(false, err)
}

// CompleteSuccess marks the action as successful.
func (ar *ActionRecord) CompleteSuccess() *ActionRecord {
	return ar.Complete(true, nil)
}

// AuditLogger provides structured audit logging for rule action executions.
// It wraps slog.Logger with convenience methods for logging mailbox changes.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates a new AuditLogger with the given slog.Logger.
// By default, PII is not included in logs (sender domains are used instead).
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: false,
		enabled:    true,
	}
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// SetIncludePII sets whether to include full email addresses in audit logs.
func (al *AuditLogger) SetIncludePII(include bool) {
	al.includePII = include
}

// SetEnabled sets whether audit logging is enabled.
func (al *AuditLogger) SetEnabled(enabled bool) {
	al.enabled = enabled
}

// LogAction logs an action execution using the standard log attributes.
// This is suitable for general operational logging with cardinality controls.
// If the logger is configured with IncludePII, full sender addresses are
// logged; otherwise only domains are used.
func (al *AuditLogger) LogAction(ar *ActionRecord) {
	if !al.enabled {
		return
	}

	// Choose between PII and anonymized logging based on configuration
	var attrs []slog.Attr
	if al.includePII {
		attrs = ar.LogAuditAttrs()
	} else {
		attrs = ar.LogAttrs()
	}

	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if ar.Success {
		al.logger.Info("action_executed", args...)
	} else {
		al.logger.Warn("action_failed", args...)
	}
}

// LogActionAudit logs an action execution with full audit details.
// This includes PII (full sender addresses) for compliance/audit purposes.
// SECURITY: Ensure audit logs are routed to secure storage with appropriate access controls.
//
// Note: This method respects the enabled flag but always includes PII when
// called, regardless of the IncludePII configuration. Use LogAction for
// configuration-aware logging.
func (al *AuditLogger) LogActionAudit(ar *ActionRecord) {
	if !al.enabled {
		return
	}

	attrs := ar.LogAuditAttrs()
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	al.logger.Info("action_audit", args...)
}
