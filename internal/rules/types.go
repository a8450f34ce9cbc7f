package rules

import (
	"fmt"
	"time"
)

// BodyNotLoaded is the sentinel value held by Email.Body before the full
// message content has been fetched from Gmail. Conditions that depend on
// content are skipped (and the whole pass deferred) while this is present.
const BodyNotLoaded = "[content not loaded]"

// LogicOperator combines the results of a rule's conditions.
type LogicOperator string

const (
	LogicAnd LogicOperator = "AND"
	LogicOr  LogicOperator = "OR"
)

// ConditionType identifies which derived email attribute a condition tests.
type ConditionType string

const (
	ConditionSenderEmail  ConditionType = "sender_email"
	ConditionSenderName   ConditionType = "sender_name"
	ConditionSubject      ConditionType = "subject"
	ConditionContent      ConditionType = "content"
	ConditionContentRegex ConditionType = "content_regex"
	ConditionURLContains  ConditionType = "url_contains"
	ConditionLinkDomain   ConditionType = "link_domain"
	ConditionSenderScore  ConditionType = "sender_score"
	ConditionHasLinks     ConditionType = "has_links"
)

// Operator is the comparison applied between a condition's actual and
// expected values.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorContains    Operator = "contains"
	OperatorStartsWith  Operator = "starts_with"
	OperatorEndsWith    Operator = "ends_with"
	OperatorRegexMatch  Operator = "regex_match"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
	OperatorExists      Operator = "exists"
	OperatorNotExists   Operator = "not_exists"
)

// ActionType identifies the side effect an action performs when its rule
// matches.
type ActionType string

const (
	// ActionRunScript evaluates a user-authored CEL expression against a
	// restricted view of the rule context.
	ActionRunScript      ActionType = "run_script"
	ActionOpenURL        ActionType = "open_url"
	ActionSaveVariable   ActionType = "save_variable"
	ActionLogMessage     ActionType = "log_message"
	ActionAddScore       ActionType = "add_score"
	ActionMarkEmail      ActionType = "mark_email"
	ActionNotify         ActionType = "notify"
	ActionDeleteEmail    ActionType = "delete_email"
	ActionMarkAsRead     ActionType = "mark_as_read"
	ActionRequestSummary ActionType = "request_summary"
	ActionGotoNext       ActionType = "goto_next_email"
	ActionGotoPrevious   ActionType = "goto_previous_email"
)

// Condition is a single testable predicate over derived email/sender data.
type Condition struct {
	ID            string        `json:"id"`
	Type          ConditionType `json:"type"`
	Operator      Operator      `json:"operator"`
	Value         any           `json:"value"`
	CaseSensitive *bool         `json:"caseSensitive,omitempty"` // nil means case-sensitive
}

// IsCaseSensitive reports whether text comparisons for this condition are
// case-sensitive. Comparisons default to case-sensitive when the flag is
// unset.
func (c Condition) IsCaseSensitive() bool {
	return c.CaseSensitive == nil || *c.CaseSensitive
}

// ActionParams holds the parameters for an action. Which fields are
// meaningful depends on the action type; Validate enforces the required
// fields per type at rule-authoring time.
type ActionParams struct {
	// run_script
	Script string `json:"script,omitempty"`

	// open_url
	URL    string `json:"url,omitempty"`
	Target string `json:"target,omitempty"` // defaults to "_blank"

	// save_variable
	VariableName string `json:"variableName,omitempty"`
	DirectValue  string `json:"directValue,omitempty"`
	Source       string `json:"source,omitempty"` // content, subject, from, urls
	Pattern      string `json:"pattern,omitempty"`
	GroupIndex   int    `json:"groupIndex,omitempty"` // defaults to 1

	// log_message
	Message string `json:"message,omitempty"`

	// add_score
	Points float64 `json:"points,omitempty"`

	// mark_email
	Bucket string `json:"bucket,omitempty"` // defaults to "marked"

	// notify
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
}

// Action is a single side-effecting operation performed when a rule matches.
type Action struct {
	ID          string       `json:"id"`
	Type        ActionType   `json:"type"`
	Parameters  ActionParams `json:"parameters"`
	Description string       `json:"description,omitempty"`
}

// Rule is a named condition-set plus action-set, togglable and independently
// executed per email. Rules do not reference each other.
type Rule struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Description    string        `json:"description,omitempty"`
	Enabled        bool          `json:"enabled"`
	Conditions     []Condition   `json:"conditions"`
	Actions        []Action      `json:"actions"`
	LogicOperator  LogicOperator `json:"logicOperator"`
	ExecutionCount int64         `json:"executionCount"`
	LastExecuted   *time.Time    `json:"lastExecuted,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	LastModified   time.Time     `json:"lastModified"`
}

// HasContentCondition reports whether any condition of the rule needs the
// full message body.
func (r Rule) HasContentCondition() bool {
	for _, c := range r.Conditions {
		if c.Type == ConditionContent || c.Type == ConditionContentRegex {
			return true
		}
	}
	return false
}

// Email is the engine's view of one Gmail message. Body holds BodyNotLoaded
// until the full content has been fetched.
type Email struct {
	ID       string `json:"id"`
	Subject  string `json:"subject"`
	From     string `json:"from"`
	Body     string `json:"body"`
	HTMLBody string `json:"htmlBody,omitempty"`
}

// ContentLoaded reports whether the message body has been fetched.
func (e Email) ContentLoaded() bool {
	return e.Body != BodyNotLoaded
}

// SenderInfo is the sender identity derived from the From header.
type SenderInfo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Link is a URL extracted from the message content together with its host
// domain.
type Link struct {
	URL    string `json:"url"`
	Domain string `json:"domain"`
}

// RuleContext is the per-evaluation bundle handed to the engine: the target
// email, derived sender data, extracted links, the sender's aggregate score
// and the mutable variable bag threaded through action execution.
type RuleContext struct {
	Email       Email
	Sender      SenderInfo
	Links       []Link
	SenderScore float64

	// Variables accumulates save_variable/script output. Later actions of the
	// same pass (including actions of later rules) observe earlier writes.
	Variables map[string]any
}

// ConditionResult records the outcome of evaluating one condition.
type ConditionResult struct {
	ConditionID string        `json:"conditionId"`
	Type        ConditionType `json:"type"`
	Matched     bool          `json:"matched"`
	Actual      any           `json:"actual,omitempty"`
	Expected    any           `json:"expected,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// ActionResult records the outcome of executing one action.
type ActionResult struct {
	ActionID string     `json:"actionId"`
	Type     ActionType `json:"type"`
	Success  bool       `json:"success"`
	Result   any        `json:"result,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// RuleExecutionResult aggregates one rule's evaluation against one email.
type RuleExecutionResult struct {
	RuleID        string            `json:"ruleId"`
	RuleName      string            `json:"ruleName"`
	Matched       bool              `json:"matched"`
	Conditions    []ConditionResult `json:"conditions"`
	Actions       []ActionResult    `json:"actions"`
	ExecutionTime time.Duration     `json:"executionTimeMs"`
	Variables     map[string]any    `json:"variables,omitempty"`
}

// DebugLogEntry is one debug-log record per evaluation pass for one email.
type DebugLogEntry struct {
	ID           string                `json:"id"`
	EmailID      string                `json:"emailId"`
	Subject      string                `json:"subject"`
	From         string                `json:"from"`
	Timestamp    time.Time             `json:"timestamp"`
	Results      []RuleExecutionResult `json:"results"`
	RulesChecked int                   `json:"totalRulesChecked"`
	RulesFired   int                   `json:"totalRulesFired"`
}

// Validate checks that an action's parameters carry the fields its type
// requires. Called at rule-authoring time so malformed rules are rejected
// before they ever reach the engine.
func (a Action) Validate() error {
	switch a.Type {
	case ActionRunScript:
		if a.Parameters.Script == "" {
			return fmt.Errorf("action %s: script is required", a.Type)
		}
	case ActionOpenURL:
		if a.Parameters.URL == "" {
			return fmt.Errorf("action %s: url is required", a.Type)
		}
	case ActionSaveVariable:
		if a.Parameters.VariableName == "" {
			return fmt.Errorf("action %s: variableName is required", a.Type)
		}
		if a.Parameters.DirectValue == "" && a.Parameters.Pattern == "" {
			return fmt.Errorf("action %s: either directValue or pattern is required", a.Type)
		}
	case ActionLogMessage:
		if a.Parameters.Message == "" {
			return fmt.Errorf("action %s: message is required", a.Type)
		}
	case ActionAddScore:
		if a.Parameters.Points <= 0 {
			return fmt.Errorf("action %s: points must be positive", a.Type)
		}
	case ActionNotify:
		if a.Parameters.Body == "" {
			return fmt.Errorf("action %s: body is required", a.Type)
		}
	case ActionMarkEmail, ActionDeleteEmail, ActionMarkAsRead, ActionRequestSummary,
		ActionGotoNext, ActionGotoPrevious:
		// No required parameters.
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
	return nil
}

// Direction is a navigation intent emitted by the goto actions for the host
// to consume; the engine has no notion of a current cursor position.
type Direction string

const (
	NavigateNext     Direction = "next"
	NavigatePrevious Direction = "previous"
)
