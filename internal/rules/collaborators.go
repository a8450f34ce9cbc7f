package rules

import (
	"context"
	"time"
)

// The engine is a library, not a service: its boundary is the set of
// capability interfaces below. Implementations live elsewhere (Gmail API
// client, SQLite stores, Ollama client); tests substitute fakes.

// RuleStore provides the persisted rule definitions and their execution
// counters.
type RuleStore interface {
	// ListEnabled returns all enabled rules in creation order.
	ListEnabled(ctx context.Context) ([]Rule, error)

	// IncrementExecutionCount bumps a rule's execution counter and records
	// the execution timestamp. Called exactly once per email a rule matched.
	IncrementExecutionCount(ctx context.Context, ruleID string, at time.Time) error
}

// ScoringStore maintains the aggregate reputation score per sender email.
type ScoringStore interface {
	// Score returns the sender's aggregate score, 0 for unknown senders.
	Score(ctx context.Context, senderEmail string) (float64, error)

	// AddPoints records a scoring event for the sender. The name and emailID
	// are informational and may be empty.
	AddPoints(ctx context.Context, senderEmail, senderName string, points float64, emailID string) error
}

// MailClient performs the Gmail side effects actions can request.
type MailClient interface {
	DeleteEmail(ctx context.Context, id string) error
	MarkAsRead(ctx context.Context, id string) error
}

// SummaryGenerator produces a summary for an email body (the LLM boundary).
type SummaryGenerator interface {
	Summarize(ctx context.Context, body string) (string, error)
}

// SummaryStore persists summaries produced by the request_summary action,
// including "saved for later" placeholders written in save-for-later mode.
type SummaryStore interface {
	SaveLinkSummary(ctx context.Context, key, summary, sourceBody, sourceLabel string) error
}

// MarkerStore appends email ids to named marker buckets. Implementations
// must be idempotent per (bucket, emailID) pair.
type MarkerStore interface {
	AppendMarker(ctx context.Context, bucket, emailID string) error
}

// NotificationSink delivers a user-facing notification. Permission handling
// is the implementation's concern.
type NotificationSink interface {
	Notify(ctx context.Context, title, body string) error
}

// NavigationSink consumes navigation intents emitted by the goto actions.
type NavigationSink interface {
	Navigate(direction Direction)
}

// URLOpener opens a URL on behalf of the open_url action.
type URLOpener interface {
	Open(ctx context.Context, url, target string) error
}

// DebugLogStore persists per-pass debug log entries. Implementations apply
// the retention policy on write.
type DebugLogStore interface {
	Append(ctx context.Context, entry DebugLogEntry) error
}
