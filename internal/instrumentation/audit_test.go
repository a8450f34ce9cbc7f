package instrumentation

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

const (
	testSender = "jane@example.com"
	testDomain = "example.com"
	testRule   = "vip-sender"
)

func TestActionRecord_NewAndComplete(t *testing.T) {
	ar := NewActionRecord(testRule, "mark_as_read")

	// Verify initial state
	if ar.Rule != testRule {
		t.Errorf("Rule = %q, want %q", ar.Rule, testRule)
	}
	if ar.Action != "mark_as_read" {
		t.Errorf("Action = %q, want %q", ar.Action, "mark_as_read")
	}
	if ar.StartTime.IsZero() {
		t.Error("StartTime should not be zero")
	}

	ar.CompleteSuccess()

	if !ar.Success {
		t.Error("Success should be true")
	}
	// Duration is calculated from StartTime, so it should be >= 0
	if ar.Duration < 0 {
		t.Error("Duration should not be negative")
	}
	if ar.Error != "" {
		t.Errorf("Error should be empty, got %q", ar.Error)
	}
	if ar.Status() != StatusSuccess {
		t.Errorf("Status() = %q, want %q", ar.Status(), StatusSuccess)
	}
}

func TestActionRecord_CompleteWithError(t *testing.T) {
	ar := NewActionRecord(testRule, "delete_email")
	err := errors.New("permission denied")

	ar.CompleteWithError(err)

	if ar.Success {
		t.Error("Success should be false")
	}
	if ar.Error != "permission denied" {
		t.Errorf("Error = %q, want %q", ar.Error, "permission denied")
	}
	if ar.Status() != StatusError {
		t.Errorf("Status() = %q, want %q", ar.Status(), StatusError)
	}
}

func TestActionRecord_Builders(t *testing.T) {
	ar := NewActionRecord(testRule, "delete_email").
		WithEmail("msg-1", testSender).
		WithDestructive(true)

	if ar.EmailID != "msg-1" {
		t.Errorf("EmailID = %q, want %q", ar.EmailID, "msg-1")
	}
	if ar.SenderEmail != testSender {
		t.Errorf("SenderEmail = %q, want %q", ar.SenderEmail, testSender)
	}
	if !ar.Destructive {
		t.Error("Destructive should be true")
	}
	if ar.SenderDomain() != testDomain {
		t.Errorf("SenderDomain() = %q, want %q", ar.SenderDomain(), testDomain)
	}
}

func attrKeys(attrs []slog.Attr) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, attr := range attrs {
		m[attr.Key] = attr.Value.String()
	}
	return m
}

func TestActionRecord_LogAttrs_NoPII(t *testing.T) {
	ar := NewActionRecord(testRule, "mark_as_read").
		WithEmail("msg-1", testSender)
	ar.CompleteSuccess()

	keys := attrKeys(ar.LogAttrs())

	if keys["sender_domain"] != testDomain {
		t.Errorf("sender_domain = %q, want %q", keys["sender_domain"], testDomain)
	}
	if _, ok := keys["sender"]; ok {
		t.Error("LogAttrs must not include the full sender address")
	}
	if keys["email_id"] != "msg-1" {
		t.Errorf("email_id = %q, want %q", keys["email_id"], "msg-1")
	}
}

func TestActionRecord_LogAuditAttrs_IncludesPII(t *testing.T) {
	ar := NewActionRecord(testRule, "delete_email").
		WithEmail("msg-1", testSender).
		WithDestructive(true)
	ar.CompleteWithError(errors.New("trash failed"))

	keys := attrKeys(ar.LogAuditAttrs())

	if keys["sender"] != testSender {
		t.Errorf("sender = %q, want %q", keys["sender"], testSender)
	}
	if keys["destructive"] != "true" {
		t.Errorf("destructive = %q, want %q", keys["destructive"], "true")
	}
	if keys["error"] != "trash failed" {
		t.Errorf("error = %q, want %q", keys["error"], "trash failed")
	}
}

func auditTestLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil)), &buf
}

func TestAuditLogger_LogAction(t *testing.T) {
	logger, buf := auditTestLogger()
	al := NewAuditLogger(logger)

	ar := NewActionRecord(testRule, "mark_as_read").
		WithEmail("msg-1", testSender)
	ar.CompleteSuccess()

	al.LogAction(ar)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}

	if record["msg"] != "action_executed" {
		t.Errorf("msg = %v, want action_executed", record["msg"])
	}
	if record["sender_domain"] != testDomain {
		t.Errorf("sender_domain = %v, want %q", record["sender_domain"], testDomain)
	}
	if _, ok := record["sender"]; ok {
		t.Error("full sender must not be logged without IncludePII")
	}
}

func TestAuditLogger_LogAction_Failure(t *testing.T) {
	logger, buf := auditTestLogger()
	al := NewAuditLogger(logger)

	ar := NewActionRecord(testRule, "delete_email")
	ar.CompleteWithError(errors.New("boom"))

	al.LogAction(ar)

	if !strings.Contains(buf.String(), "action_failed") {
		t.Errorf("expected action_failed record, got %q", buf.String())
	}
}

func TestAuditLogger_LogAction_WithPII(t *testing.T) {
	logger, buf := auditTestLogger()
	al := NewAuditLoggerWithConfig(logger, AuditLoggingConfig{
		Enabled:    true,
		IncludePII: true,
	})

	ar := NewActionRecord(testRule, "delete_email").
		WithEmail("msg-1", testSender)
	ar.CompleteSuccess()

	al.LogAction(ar)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}

	if record["sender"] != testSender {
		t.Errorf("sender = %v, want %q", record["sender"], testSender)
	}
}

func TestAuditLogger_Disabled(t *testing.T) {
	logger, buf := auditTestLogger()
	al := NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: false})

	ar := NewActionRecord(testRule, "mark_as_read")
	ar.CompleteSuccess()

	al.LogAction(ar)
	al.LogActionAudit(ar)

	if buf.Len() != 0 {
		t.Errorf("disabled audit logger must not write, got %q", buf.String())
	}
}

func TestAuditLogger_LogActionAudit(t *testing.T) {
	logger, buf := auditTestLogger()
	al := NewAuditLogger(logger)

	ar := NewActionRecord(testRule, "delete_email").
		WithEmail("msg-1", testSender).
		WithDestructive(true)
	ar.CompleteSuccess()

	al.LogActionAudit(ar)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}

	if record["msg"] != "action_audit" {
		t.Errorf("msg = %v, want action_audit", record["msg"])
	}
	// LogActionAudit always includes PII regardless of IncludePII
	if record["sender"] != testSender {
		t.Errorf("sender = %v, want %q", record["sender"], testSender)
	}
}

func TestAuditLogger_NilLoggerFallsBack(t *testing.T) {
	al := NewAuditLogger(nil)
	if al == nil {
		t.Fatal("expected audit logger to be non-nil")
	}

	// Should not panic with the default logger
	ar := NewActionRecord(testRule, "mark_as_read")
	ar.CompleteSuccess()
	al.SetEnabled(false)
	al.LogAction(ar)
}

func TestAuditLogger_SetIncludePII(t *testing.T) {
	logger, buf := auditTestLogger()
	al := NewAuditLogger(logger)
	al.SetIncludePII(true)

	ar := NewActionRecord(testRule, "mark_as_read").
		WithEmail("msg-1", testSender)
	ar.CompleteSuccess()

	al.LogAction(ar)

	if !strings.Contains(buf.String(), testSender) {
		t.Error("expected full sender in output after SetIncludePII(true)")
	}
}
