package rules

import (
	"context"
	"fmt"
	"strings"
)

// errContentNotLoaded marks a condition that was skipped because the message
// body is still the BodyNotLoaded sentinel. This is an explicit "not yet"
// state, distinct from a genuine non-match.
const errContentNotLoaded = "content not loaded: condition skipped"

// ConditionEvaluator resolves a condition's actual value from a rule context
// and delegates the boolean decision to MatchOperator. It performs no side
// effects; the only collaborator touched is the read-only scoring store.
type ConditionEvaluator struct {
	scores ScoringStore
}

// NewConditionEvaluator returns an evaluator backed by the given scoring
// store. The store may be nil if no rule uses sender_score conditions.
func NewConditionEvaluator(scores ScoringStore) *ConditionEvaluator {
	return &ConditionEvaluator{scores: scores}
}

// Evaluate resolves one condition against the context. Errors (unknown type,
// content not loaded, score lookup failure) are non-fatal: they are recorded
// on the result with Matched=false and never abort the rule.
func (ce *ConditionEvaluator) Evaluate(ctx context.Context, cond Condition, rc *RuleContext) ConditionResult {
	res := ConditionResult{
		ConditionID: cond.ID,
		Type:        cond.Type,
		Expected:    cond.Value,
	}

	var actual any
	switch cond.Type {
	case ConditionSenderEmail:
		actual = rc.Sender.Email

	case ConditionSenderName:
		actual = rc.Sender.Name

	case ConditionSubject:
		actual = rc.Email.Subject

	case ConditionContent, ConditionContentRegex:
		if !rc.Email.ContentLoaded() {
			res.Error = errContentNotLoaded
			return res
		}
		actual = contentOf(rc.Email)

	case ConditionURLContains:
		urls := make([]string, 0, len(rc.Links))
		for _, l := range rc.Links {
			urls = append(urls, l.URL)
		}
		actual = strings.Join(urls, " ")

	case ConditionLinkDomain:
		domains := make([]string, 0, len(rc.Links))
		for _, l := range rc.Links {
			domains = append(domains, l.Domain)
		}
		actual = strings.Join(domains, " ")

	case ConditionSenderScore:
		if ce.scores == nil {
			res.Error = "no scoring store configured"
			return res
		}
		score, err := ce.scores.Score(ctx, rc.Sender.Email)
		if err != nil {
			res.Error = fmt.Sprintf("score lookup failed: %v", err)
			return res
		}
		actual = score

	case ConditionHasLinks:
		actual = len(rc.Links) > 0

	default:
		res.Error = fmt.Sprintf("unknown condition type %q", cond.Type)
		return res
	}

	res.Actual = actual
	op := cond.Operator
	if cond.Type == ConditionContentRegex && op == "" {
		op = OperatorRegexMatch
	}
	res.Matched = MatchOperator(actual, op, cond.Value, cond.IsCaseSensitive())
	return res
}

// contentOf returns the text the content conditions match against: the HTML
// body when present, the plain body otherwise.
func contentOf(e Email) string {
	if e.HTMLBody != "" {
		return e.HTMLBody
	}
	return e.Body
}
