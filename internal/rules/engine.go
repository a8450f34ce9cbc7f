package rules

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config carries the engine settings injected at construction time. There is
// no ambient/global configuration lookup inside the engine.
type Config struct {
	// DebugMode enables per-pass debug log entries.
	DebugMode bool

	// DebugRetentionDays is the retention window the debug log store applies
	// when pruning on write.
	DebugRetentionDays int

	// SaveForLater makes request_summary persist a placeholder instead of
	// calling the summarizer.
	SaveForLater bool

	// SummaryScorePoints is awarded to the sender whenever request_summary
	// runs for one of their emails.
	SummaryScorePoints float64
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		DebugMode:          false,
		DebugRetentionDays: 7,
		SaveForLater:       false,
		SummaryScorePoints: 1,
	}
}

// Dependencies bundles the collaborators the engine consumes. Only Rules is
// required; actions needing a missing collaborator fail individually.
type Dependencies struct {
	Rules      RuleStore
	Scores     ScoringStore
	Mail       MailClient
	Summarizer SummaryGenerator
	Summaries  SummaryStore
	Markers    MarkerStore
	Notifier   NotificationSink
	Navigator  NavigationSink
	Opener     URLOpener
	DebugLog   DebugLogStore
}

// Engine orchestrates conditions, logic-operator combination and actions for
// each enabled rule against one email context. Evaluation passes are
// serialized; the deferred-context map is owned by the engine instance.
type Engine struct {
	deps       Dependencies
	conditions *ConditionEvaluator
	executor   *Executor
	cfg        Config
	logger     *slog.Logger

	mu      sync.Mutex
	pending map[string]*RuleContext // email id -> deferred context
}

// NewEngine builds an engine from its collaborators and configuration.
func NewEngine(deps Dependencies, cfg Config, logger *slog.Logger) (*Engine, error) {
	if deps.Rules == nil {
		return nil, fmt.Errorf("rule store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	executor, err := NewExecutor(deps, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Engine{
		deps:       deps,
		conditions: NewConditionEvaluator(deps.Scores),
		executor:   executor,
		cfg:        cfg,
		logger:     logger,
		pending:    make(map[string]*RuleContext),
	}, nil
}

// ExecuteRules evaluates every enabled rule against the context, in rule
// order, and returns one result per rule. Evaluation failures never escape:
// they surface as per-condition or per-action errors inside the results.
//
// Deferral gate: when any enabled rule has a content condition and the body
// is still the BodyNotLoaded sentinel, no rule is evaluated at all. The
// context is stored keyed by email id and an empty result list is returned;
// call ResolvePending once the content is available. The gate is pass-level
// by design, to avoid evaluating some rules against stale content.
func (en *Engine) ExecuteRules(ctx context.Context, rc *RuleContext) ([]RuleExecutionResult, error) {
	en.mu.Lock()
	defer en.mu.Unlock()
	return en.executeLocked(ctx, rc)
}

func (en *Engine) executeLocked(ctx context.Context, rc *RuleContext) ([]RuleExecutionResult, error) {
	enabled, err := en.deps.Rules.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled rules: %w", err)
	}

	if rc.Variables == nil {
		rc.Variables = make(map[string]any)
	}

	if !rc.Email.ContentLoaded() && anyNeedsContent(enabled) {
		en.pending[rc.Email.ID] = rc
		en.logger.Debug("rule evaluation deferred until content loads",
			"email_id", rc.Email.ID, "pending", len(en.pending))
		return []RuleExecutionResult{}, nil
	}

	results := make([]RuleExecutionResult, 0, len(enabled))
	fired := 0
	for _, rule := range enabled {
		res := en.evaluateRule(ctx, rule, rc)
		if res.Matched {
			fired++
			if err := en.deps.Rules.IncrementExecutionCount(ctx, rule.ID, time.Now()); err != nil {
				en.logger.Warn("failed to increment rule execution count",
					"rule", rule.ID, "error", err.Error())
			}
		}
		results = append(results, res)
	}

	if en.cfg.DebugMode && en.deps.DebugLog != nil {
		entry := DebugLogEntry{
			ID:           uuid.NewString(),
			EmailID:      rc.Email.ID,
			Subject:      rc.Email.Subject,
			From:         rc.Email.From,
			Timestamp:    time.Now(),
			Results:      results,
			RulesChecked: len(results),
			RulesFired:   fired,
		}
		if err := en.deps.DebugLog.Append(ctx, entry); err != nil {
			en.logger.Warn("failed to append debug log entry",
				"email_id", rc.Email.ID, "error", err.Error())
		}
	}

	return results, nil
}

// evaluateRule runs one rule's conditions and, on a match, its actions in
// declared order. A panic escaping condition or action handling is recovered
// at this boundary and recorded as a synthetic failed action result so the
// remaining rules of the pass still run.
func (en *Engine) evaluateRule(ctx context.Context, rule Rule, rc *RuleContext) (res RuleExecutionResult) {
	start := time.Now()
	res = RuleExecutionResult{
		RuleID:     rule.ID,
		RuleName:   rule.Name,
		Conditions: make([]ConditionResult, 0, len(rule.Conditions)),
		Actions:    make([]ActionResult, 0, len(rule.Actions)),
	}

	defer func() {
		if r := recover(); r != nil {
			res.Actions = append(res.Actions, ActionResult{
				Type:    "rule_evaluation",
				Success: false,
				Error:   fmt.Sprintf("rule evaluation panicked: %v", r),
			})
			en.logger.Error("rule evaluation panicked",
				"rule", rule.ID, "panic", fmt.Sprint(r))
		}
		res.ExecutionTime = time.Since(start)
		res.Variables = snapshotVariables(rc.Variables)
	}()

	for _, cond := range rule.Conditions {
		res.Conditions = append(res.Conditions, en.conditions.Evaluate(ctx, cond, rc))
	}
	res.Matched = combine(rule.LogicOperator, res.Conditions)
	if !res.Matched {
		return res
	}

	for _, action := range rule.Actions {
		ar := en.executor.Execute(ctx, action, rc, rc.Variables)
		if !ar.Success {
			en.logger.Warn("rule action failed",
				"rule", rule.ID, "action", string(action.Type), "error", ar.Error)
		}
		res.Actions = append(res.Actions, ar)
	}
	return res
}

// combine folds individual condition results under the rule's logic
// operator. An errored condition counts as not matched. A rule without
// conditions matches under AND and never matches under OR.
func combine(op LogicOperator, conds []ConditionResult) bool {
	if op == LogicOr {
		for _, c := range conds {
			if c.Matched {
				return true
			}
		}
		return false
	}
	for _, c := range conds {
		if !c.Matched {
			return false
		}
	}
	return true
}

func anyNeedsContent(rules []Rule) bool {
	for _, r := range rules {
		if r.HasContentCondition() {
			return true
		}
	}
	return false
}

func snapshotVariables(vars map[string]any) map[string]any {
	if len(vars) == 0 {
		return nil
	}
	snap := make(map[string]any, len(vars))
	for k, v := range vars {
		snap[k] = v
	}
	return snap
}
