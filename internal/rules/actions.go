package rules

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// savedForLaterPlaceholder is persisted instead of a real summary when
// save-for-later mode is on; the summary is generated on demand later.
const savedForLaterPlaceholder = "saved for later"

// defaultMarkerBucket receives mark_email ids when no bucket is named.
const defaultMarkerBucket = "marked"

// Executor performs one side effect per action. Each action type catches its
// own errors so one failing action never aborts its siblings within a rule.
type Executor struct {
	mail      MailClient
	scores    ScoringStore
	summarize SummaryGenerator
	summaries SummaryStore
	markers   MarkerStore
	notifier  NotificationSink
	navigator NavigationSink
	opener    URLOpener
	scripts   *ScriptRunner
	cfg       Config
	logger    *slog.Logger
}

// NewExecutor wires an executor with its collaborators. Any collaborator may
// be nil; actions that need a missing collaborator fail individually with a
// descriptive error instead of panicking.
func NewExecutor(deps Dependencies, cfg Config, logger *slog.Logger) (*Executor, error) {
	scripts, err := NewScriptRunner()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		mail:      deps.Mail,
		scores:    deps.Scores,
		summarize: deps.Summarizer,
		summaries: deps.Summaries,
		markers:   deps.Markers,
		notifier:  deps.Notifier,
		navigator: deps.Navigator,
		opener:    deps.Opener,
		scripts:   scripts,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// Execute runs one action against the context, mutating vars in place for
// variable-producing actions. The returned result always carries the action
// id and type; failures are reported, never thrown past this boundary.
func (x *Executor) Execute(ctx context.Context, action Action, rc *RuleContext, vars map[string]any) (res ActionResult) {
	res = ActionResult{ActionID: action.ID, Type: action.Type}

	defer func() {
		if r := recover(); r != nil {
			res.Success = false
			res.Error = fmt.Sprintf("action panicked: %v", r)
			x.logger.Error("rule action panicked",
				"action", string(action.Type), "panic", fmt.Sprint(r))
		}
	}()

	result, err := x.run(ctx, action, rc, vars)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Success = true
	res.Result = result
	return res
}

func (x *Executor) run(ctx context.Context, action Action, rc *RuleContext, vars map[string]any) (any, error) {
	p := action.Parameters

	switch action.Type {
	case ActionRunScript:
		return x.scripts.Run(p.Script, rc, vars)

	case ActionOpenURL:
		if x.opener == nil {
			return nil, fmt.Errorf("no URL opener configured")
		}
		url := Interpolate(p.URL, rc, vars)
		target := p.Target
		if target == "" {
			target = "_blank"
		}
		if err := x.opener.Open(ctx, url, target); err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", url, err)
		}
		return url, nil

	case ActionSaveVariable:
		return x.saveVariable(p, rc, vars)

	case ActionLogMessage:
		msg := Interpolate(p.Message, rc, vars)
		x.logger.Info("rule message", "message", msg, "email_id", rc.Email.ID)
		return msg, nil

	case ActionAddScore:
		if x.scores == nil {
			return nil, fmt.Errorf("no scoring store configured")
		}
		// Scores only accumulate upward; a non-positive point value is an
		// authoring mistake and must fail loudly, not pretend to score.
		if p.Points <= 0 {
			return nil, fmt.Errorf("add_score: points must be positive, got %v", p.Points)
		}
		if err := x.scores.AddPoints(ctx, rc.Sender.Email, rc.Sender.Name, p.Points, rc.Email.ID); err != nil {
			return nil, fmt.Errorf("failed to add score: %w", err)
		}
		return p.Points, nil

	case ActionMarkEmail:
		if x.markers == nil {
			return nil, fmt.Errorf("no marker store configured")
		}
		bucket := p.Bucket
		if bucket == "" {
			bucket = defaultMarkerBucket
		}
		if err := x.markers.AppendMarker(ctx, bucket, rc.Email.ID); err != nil {
			return nil, fmt.Errorf("failed to mark email: %w", err)
		}
		return bucket, nil

	case ActionNotify:
		if x.notifier == nil {
			return nil, fmt.Errorf("no notification sink configured")
		}
		title := Interpolate(p.Title, rc, vars)
		if title == "" {
			title = "inboxpilot"
		}
		body := Interpolate(p.Body, rc, vars)
		if err := x.notifier.Notify(ctx, title, body); err != nil {
			return nil, fmt.Errorf("failed to notify: %w", err)
		}
		return title, nil

	case ActionDeleteEmail:
		if x.mail == nil {
			return nil, fmt.Errorf("no mail client configured")
		}
		if err := x.mail.DeleteEmail(ctx, rc.Email.ID); err != nil {
			return nil, fmt.Errorf("failed to delete email: %w", err)
		}
		return rc.Email.ID, nil

	case ActionMarkAsRead:
		if x.mail == nil {
			return nil, fmt.Errorf("no mail client configured")
		}
		if err := x.mail.MarkAsRead(ctx, rc.Email.ID); err != nil {
			return nil, fmt.Errorf("failed to mark as read: %w", err)
		}
		return rc.Email.ID, nil

	case ActionRequestSummary:
		return x.requestSummary(ctx, rc)

	case ActionGotoNext:
		if x.navigator == nil {
			return nil, fmt.Errorf("no navigation sink configured")
		}
		x.navigator.Navigate(NavigateNext)
		return string(NavigateNext), nil

	case ActionGotoPrevious:
		if x.navigator == nil {
			return nil, fmt.Errorf("no navigation sink configured")
		}
		x.navigator.Navigate(NavigatePrevious)
		return string(NavigatePrevious), nil

	default:
		return nil, fmt.Errorf("unknown action type %q", action.Type)
	}
}

// saveVariable stores either an interpolated direct value or a regex capture
// extracted from a named source field. A pattern that matches nothing stores
// nil so later references stay visibly unresolved.
func (x *Executor) saveVariable(p ActionParams, rc *RuleContext, vars map[string]any) (any, error) {
	if p.VariableName == "" {
		return nil, fmt.Errorf("save_variable: variableName is required")
	}

	if p.DirectValue != "" {
		value := Interpolate(p.DirectValue, rc, vars)
		vars[p.VariableName] = value
		return value, nil
	}

	var source string
	switch p.Source {
	case "content", "":
		source = contentOf(rc.Email)
	case "subject":
		source = rc.Email.Subject
	case "from":
		source = rc.Email.From
	case "urls":
		urls := make([]string, 0, len(rc.Links))
		for _, l := range rc.Links {
			urls = append(urls, l.URL)
		}
		source = strings.Join(urls, " ")
	default:
		return nil, fmt.Errorf("save_variable: unknown source %q", p.Source)
	}

	re, err := regexp.Compile(p.Pattern)
	if err != nil {
		return nil, fmt.Errorf("save_variable: invalid pattern: %w", err)
	}

	group := p.GroupIndex
	if group == 0 {
		group = 1
	}

	m := re.FindStringSubmatch(source)
	if m == nil || group < 0 || group >= len(m) {
		vars[p.VariableName] = nil
		return nil, nil
	}
	vars[p.VariableName] = m[group]
	return m[group], nil
}

// requestSummary either persists a save-for-later placeholder or calls the
// summarizer and persists the result. Both branches award the sender score
// points for engaging with the message.
func (x *Executor) requestSummary(ctx context.Context, rc *RuleContext) (any, error) {
	if x.summaries == nil {
		return nil, fmt.Errorf("no summary store configured")
	}

	var summary string
	if x.cfg.SaveForLater {
		summary = savedForLaterPlaceholder
	} else {
		if x.summarize == nil {
			return nil, fmt.Errorf("no summary generator configured")
		}
		s, err := x.summarize.Summarize(ctx, contentOf(rc.Email))
		if err != nil {
			return nil, fmt.Errorf("failed to summarize: %w", err)
		}
		summary = s
	}

	if err := x.summaries.SaveLinkSummary(ctx, rc.Email.ID, summary, contentOf(rc.Email), rc.Email.Subject); err != nil {
		return nil, fmt.Errorf("failed to save summary: %w", err)
	}

	if x.scores != nil && x.cfg.SummaryScorePoints > 0 {
		if err := x.scores.AddPoints(ctx, rc.Sender.Email, rc.Sender.Name, x.cfg.SummaryScorePoints, rc.Email.ID); err != nil {
			x.logger.Warn("failed to award summary score points",
				"sender", x.anonymize(rc.Sender.Email), "error", err.Error())
		}
	}
	return summary, nil
}

// anonymize shortens sender addresses for log lines; full addresses stay out
// of the logs.
func (x *Executor) anonymize(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 1 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
