package triage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/inboxpilot/inboxpilot/internal/gmail"
	"github.com/inboxpilot/inboxpilot/internal/instrumentation"
	"github.com/inboxpilot/inboxpilot/internal/links"
	"github.com/inboxpilot/inboxpilot/internal/logging"
	"github.com/inboxpilot/inboxpilot/internal/rules"
)

// Mailbox is the Gmail surface the runner needs. *gmail.Client satisfies it.
type Mailbox interface {
	ListUnread(ctx context.Context, max int64) ([]rules.Email, error)
	GetMessageBody(ctx context.Context, id string) (body, htmlBody string, err error)
	MarkAsRead(ctx context.Context, id string) error
	DeleteEmail(ctx context.Context, id string) error
}

// Storage bundles the persistence capabilities the engine and runner consume.
// *storage.Store satisfies it.
type Storage interface {
	rules.RuleStore
	rules.ScoringStore
	rules.SummaryStore
	rules.MarkerStore
	rules.DebugLogStore
}

// Options carries the runner's optional collaborators and limits.
type Options struct {
	// MaxEmails caps how many unread messages one pass processes.
	MaxEmails int

	// Metrics records pass, rule, and Gmail operation metrics. Nil disables
	// recording.
	Metrics *instrumentation.Metrics

	// Audit logs destructive mailbox actions. Nil disables the audit trail.
	Audit *instrumentation.AuditLogger

	Logger *slog.Logger
}

// Report summarizes one triage pass.
type Report struct {
	// Processed is the number of unread messages the pass examined.
	Processed int

	// Matched counts messages where at least one rule fired.
	Matched int

	// Unmatched counts messages no rule fired for.
	Unmatched int

	// Deferred counts messages whose evaluation waited for a body fetch.
	Deferred int

	// Failed counts messages whose deferred evaluation could not be resolved
	// because the body fetch failed. Their pending entries are cleared.
	Failed int

	// Results holds the per-rule outcomes keyed by email id.
	Results map[string][]rules.RuleExecutionResult

	Duration time.Duration
}

// Runner executes triage passes. Construct with NewRunner; a Runner is safe
// for sequential reuse but passes themselves are serialized by the engine.
type Runner struct {
	engine    *rules.Engine
	store     Storage
	mail      Mailbox
	cursor    *cursor
	metrics   *instrumentation.Metrics
	audit     *instrumentation.AuditLogger
	logger    *slog.Logger
	maxEmails int
}

// NewRunner wires the rule engine to its production collaborators: the
// SQLite store for rules, scores, markers, summaries and the debug log, the
// Gmail client for mailbox effects, and the summarizer for request_summary.
func NewRunner(store Storage, mail Mailbox, summarizer rules.SummaryGenerator, engineCfg rules.Config, opts Options) (*Runner, error) {
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if mail == nil {
		return nil, fmt.Errorf("mailbox is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cur := &cursor{}
	engine, err := rules.NewEngine(rules.Dependencies{
		Rules:      store,
		Scores:     store,
		Mail:       mail,
		Summarizer: summarizer,
		Summaries:  store,
		Markers:    store,
		Notifier:   &logNotifier{logger: logger},
		Navigator:  cur,
		Opener:     &logOpener{logger: logger},
		DebugLog:   store,
	}, engineCfg, logger)
	if err != nil {
		return nil, err
	}

	maxEmails := opts.MaxEmails
	if maxEmails < 1 {
		maxEmails = 25
	}

	return &Runner{
		engine:    engine,
		store:     store,
		mail:      mail,
		cursor:    cur,
		metrics:   opts.Metrics,
		audit:     opts.Audit,
		logger:    logger,
		maxEmails: maxEmails,
	}, nil
}

// Engine exposes the underlying rule engine, e.g. for pending-queue
// inspection from tools.
func (r *Runner) Engine() *rules.Engine {
	return r.engine
}

// Run performs one triage pass over the unread inbox and returns a report.
// Failures of individual messages never abort the pass; only the initial
// listing can.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{Results: make(map[string][]rules.RuleExecutionResult)}

	listStart := time.Now()
	emails, err := r.mail.ListUnread(ctx, int64(r.maxEmails))
	if err != nil {
		r.recordGmail(ctx, instrumentation.OperationList, instrumentation.StatusError, time.Since(listStart))
		r.recordPass(ctx, instrumentation.StatusError, time.Since(start))
		return nil, fmt.Errorf("failed to list unread emails: %w", err)
	}
	r.recordGmail(ctx, instrumentation.OperationList, instrumentation.StatusSuccess, time.Since(listStart))

	r.logger.Info("triage pass started",
		logging.Operation("triage.run"), "emails", len(emails))

	// The goto actions move the cursor. Each message is revisited at most
	// once so a previous/previous pair cannot loop the pass.
	revisited := make(map[string]bool)
	for i := 0; i < len(emails); {
		email := emails[i]
		r.triageOne(ctx, email, report)

		if dir, ok := r.cursor.take(); ok && dir == rules.NavigatePrevious {
			if i > 0 && !revisited[emails[i-1].ID] {
				revisited[emails[i-1].ID] = true
				i--
				continue
			}
		}
		i++
	}

	report.Duration = time.Since(start)
	r.recordPass(ctx, instrumentation.StatusSuccess, report.Duration)
	r.logger.Info("triage pass finished",
		logging.Operation("triage.run"),
		"processed", report.Processed,
		"matched", report.Matched,
		"deferred", report.Deferred,
		"failed", report.Failed,
		"duration", report.Duration)
	return report, nil
}

// triageOne evaluates all rules against a single message, fetching the body
// and resolving the deferred context when the engine asks for content.
func (r *Runner) triageOne(ctx context.Context, email rules.Email, report *Report) {
	report.Processed++

	rc := &rules.RuleContext{
		Email:     email,
		Sender:    gmail.ParseSender(email.From),
		Links:     links.Extract(email.Body, email.HTMLBody),
		Variables: make(map[string]any),
	}
	if score, err := r.store.Score(ctx, rc.Sender.Email); err != nil {
		r.logger.Warn("failed to load sender score",
			logging.EmailID(email.ID), logging.Err(err))
	} else {
		rc.SenderScore = score
	}

	results, err := r.engine.ExecuteRules(ctx, rc)
	if err != nil {
		r.logger.Warn("rule evaluation failed",
			logging.EmailID(email.ID), logging.Err(err))
		return
	}

	if r.engine.HasPending(email.ID) {
		report.Deferred++
		r.recordTriaged(ctx, instrumentation.ResultDeferred)
		if r.metrics != nil {
			r.metrics.AddPendingEmails(ctx, 1)
		}
		results, err = r.resolveDeferred(ctx, email.ID, rc)
		if r.metrics != nil {
			r.metrics.AddPendingEmails(ctx, -1)
		}
		if err != nil {
			report.Failed++
			r.logger.Warn("failed to resolve deferred evaluation",
				logging.EmailID(email.ID), logging.Err(err))
			return
		}
	}

	report.Results[email.ID] = results
	matched := false
	for _, res := range results {
		if res.Matched {
			matched = true
		}
		r.recordRule(ctx, res, rc)
	}
	if matched {
		report.Matched++
		r.recordTriaged(ctx, instrumentation.ResultMatched)
	} else {
		report.Unmatched++
		r.recordTriaged(ctx, instrumentation.ResultUnmatched)
	}
}

// resolveDeferred fetches the full message body, refreshes the context's
// extracted links and replays the pass for this email. A fetch failure
// clears the pending entry so the queue cannot grow unbounded.
func (r *Runner) resolveDeferred(ctx context.Context, emailID string, rc *rules.RuleContext) ([]rules.RuleExecutionResult, error) {
	fetchStart := time.Now()
	body, htmlBody, err := r.mail.GetMessageBody(ctx, emailID)
	if err != nil {
		r.recordGmail(ctx, instrumentation.OperationGetBody, instrumentation.StatusError, time.Since(fetchStart))
		r.engine.ClearPending(emailID)
		return nil, fmt.Errorf("failed to fetch message body: %w", err)
	}
	r.recordGmail(ctx, instrumentation.OperationGetBody, instrumentation.StatusSuccess, time.Since(fetchStart))

	// The engine holds the same context pointer, so the link set can be
	// refreshed before the rules see the loaded content.
	rc.Links = links.Extract(body, htmlBody)

	return r.engine.ResolvePending(ctx, emailID, body, htmlBody)
}

// recordRule emits metrics and the audit trail for one rule's outcome.
func (r *Runner) recordRule(ctx context.Context, res rules.RuleExecutionResult, rc *rules.RuleContext) {
	if r.metrics != nil {
		r.metrics.RecordRuleEvaluation(ctx, res.RuleName, res.Matched)
	}
	for _, ar := range res.Actions {
		status := instrumentation.StatusSuccess
		if !ar.Success {
			status = instrumentation.StatusError
		}
		if r.metrics != nil {
			r.metrics.RecordActionExecutionWithSender(ctx, string(ar.Type), status, rc.Sender.Email)
		}
		if r.audit != nil && isDestructive(ar.Type) {
			record := instrumentation.NewActionRecord(res.RuleName, string(ar.Type)).
				WithEmail(rc.Email.ID, rc.Sender.Email).
				WithDestructive(true).
				WithSpanContext(ctx)
			var actionErr error
			if ar.Error != "" {
				actionErr = fmt.Errorf("%s", ar.Error)
			}
			record.Complete(ar.Success, actionErr)
			r.audit.LogAction(record)
		}
	}
}

// isDestructive reports whether an action type modifies the mailbox.
func isDestructive(t rules.ActionType) bool {
	return t == rules.ActionDeleteEmail || t == rules.ActionMarkAsRead
}

func (r *Runner) recordGmail(ctx context.Context, operation, status string, d time.Duration) {
	if r.metrics != nil {
		r.metrics.RecordGmailOperation(ctx, operation, status, d)
	}
}

func (r *Runner) recordPass(ctx context.Context, status string, d time.Duration) {
	if r.metrics != nil {
		r.metrics.RecordTriagePass(ctx, status, d)
	}
}

func (r *Runner) recordTriaged(ctx context.Context, result string) {
	if r.metrics != nil {
		r.metrics.RecordEmailTriaged(ctx, result)
	}
}
