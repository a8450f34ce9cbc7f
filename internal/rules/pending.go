package rules

import (
	"context"
)

// The deferred-execution queue holds at most one pending context per email
// id; a second deferral for the same email overwrites the first. Entries
// live until resolved or explicitly cleared.

// MarkPending stores a context for later resolution, replacing any existing
// entry for the same email id.
func (en *Engine) MarkPending(emailID string, rc *RuleContext) {
	en.mu.Lock()
	defer en.mu.Unlock()
	en.pending[emailID] = rc
}

// ResolvePending re-runs the full evaluation pass for a previously deferred
// email once its content is available. The pending entry is removed
// regardless of outcome; if the supplied body is somehow still the sentinel
// the pass re-defers. Resolving an email id with no pending entry is a
// no-op returning an empty result set.
func (en *Engine) ResolvePending(ctx context.Context, emailID, body, htmlBody string) ([]RuleExecutionResult, error) {
	en.mu.Lock()
	defer en.mu.Unlock()

	rc, ok := en.pending[emailID]
	if !ok {
		return []RuleExecutionResult{}, nil
	}
	delete(en.pending, emailID)

	rc.Email.Body = body
	if htmlBody != "" {
		rc.Email.HTMLBody = htmlBody
	}
	return en.executeLocked(ctx, rc)
}

// ClearPending drops the pending context for an email, e.g. when the email
// is no longer of interest.
func (en *Engine) ClearPending(emailID string) {
	en.mu.Lock()
	defer en.mu.Unlock()
	delete(en.pending, emailID)
}

// PendingCount reports how many emails currently await content before their
// rules can run.
func (en *Engine) PendingCount() int {
	en.mu.Lock()
	defer en.mu.Unlock()
	return len(en.pending)
}

// HasPending reports whether a deferred context exists for the email id.
func (en *Engine) HasPending(emailID string) bool {
	en.mu.Lock()
	defer en.mu.Unlock()
	_, ok := en.pending[emailID]
	return ok
}
