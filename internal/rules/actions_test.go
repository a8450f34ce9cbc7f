package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(t *testing.T, d *testDeps, cfg Config) *Executor {
	t.Helper()
	x, err := NewExecutor(d.dependencies(), cfg, nil)
	require.NoError(t, err)
	return x
}

func TestSaveVariableRegexExtraction(t *testing.T) {
	d := newTestDeps()
	x := newTestExecutor(t, d, DefaultConfig())
	rc := testContext() // body: "order #12345 confirmed"

	res := x.Execute(context.Background(), Action{
		ID:   "a1",
		Type: ActionSaveVariable,
		Parameters: ActionParams{
			VariableName: "orderId",
			Source:       "content",
			Pattern:      `#(\d+)`,
		},
	}, rc, rc.Variables)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "12345", rc.Variables["orderId"])
	assert.Equal(t, "12345", res.Result)
}

func TestSaveVariableSources(t *testing.T) {
	d := newTestDeps()
	x := newTestExecutor(t, d, DefaultConfig())
	rc := testContext()
	rc.Links = []Link{{URL: "https://shop.example/item/9", Domain: "shop.example"}}

	tests := []struct {
		name   string
		params ActionParams
		want   any
	}{
		{
			name:   "subject source",
			params: ActionParams{VariableName: "v", Source: "subject", Pattern: `(Inv\w+)`},
			want:   "Invoice",
		},
		{
			name:   "from source",
			params: ActionParams{VariableName: "v", Source: "from", Pattern: `<(.+)>`},
			want:   "a@b.com",
		},
		{
			name:   "urls source",
			params: ActionParams{VariableName: "v", Source: "urls", Pattern: `item/(\d+)`},
			want:   "9",
		},
		{
			name:   "direct value interpolated",
			params: ActionParams{VariableName: "v", DirectValue: "sender=${senderInfo.email}"},
			want:   "sender=a@b.com",
		},
		{
			name:   "explicit group index",
			params: ActionParams{VariableName: "v", Source: "subject", Pattern: `(In)(voice)`, GroupIndex: 2},
			want:   "voice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars := make(map[string]any)
			res := x.Execute(context.Background(), Action{Type: ActionSaveVariable, Parameters: tt.params}, rc, vars)
			require.True(t, res.Success, res.Error)
			assert.Equal(t, tt.want, vars["v"])
		})
	}
}

func TestSaveVariableNoMatchStoresNil(t *testing.T) {
	d := newTestDeps()
	x := newTestExecutor(t, d, DefaultConfig())
	rc := testContext()

	res := x.Execute(context.Background(), Action{
		Type:       ActionSaveVariable,
		Parameters: ActionParams{VariableName: "v", Source: "subject", Pattern: `#(\d+)`},
	}, rc, rc.Variables)

	require.True(t, res.Success)
	assert.Nil(t, res.Result)
	v, present := rc.Variables["v"]
	assert.True(t, present)
	assert.Nil(t, v)
}

func TestLogMessageInterpolates(t *testing.T) {
	d := newTestDeps()
	x := newTestExecutor(t, d, DefaultConfig())
	rc := testContext()

	res := x.Execute(context.Background(), Action{
		Type:       ActionLogMessage,
		Parameters: ActionParams{Message: "VIP: ${senderInfo.email}"},
	}, rc, rc.Variables)

	require.True(t, res.Success)
	assert.Equal(t, "VIP: a@b.com", res.Result)
}

func TestAddScore(t *testing.T) {
	d := newTestDeps()
	x := newTestExecutor(t, d, DefaultConfig())
	rc := testContext()

	res := x.Execute(context.Background(), Action{
		Type:       ActionAddScore,
		Parameters: ActionParams{Points: 10},
	}, rc, rc.Variables)
	require.True(t, res.Success)
	assert.Equal(t, float64(10), d.scores.scores["a@b.com"])

	// Non-positive points must fail visibly, not report a successful score.
	for _, points := range []float64{0, -5} {
		res = x.Execute(context.Background(), Action{
			Type:       ActionAddScore,
			Parameters: ActionParams{Points: points},
		}, rc, rc.Variables)
		assert.False(t, res.Success, "points=%v", points)
		assert.Contains(t, res.Error, "points must be positive")
	}
	assert.Equal(t, float64(10), d.scores.scores["a@b.com"])
	assert.Len(t, d.scores.events, 1)
}

func TestMarkEmailIdempotent(t *testing.T) {
	d := newTestDeps()
	x := newTestExecutor(t, d, DefaultConfig())
	rc := testContext()

	action := Action{Type: ActionMarkEmail, Parameters: ActionParams{Bucket: "follow-up"}}
	for i := 0; i < 2; i++ {
		res := x.Execute(context.Background(), action, rc, rc.Variables)
		require.True(t, res.Success)
	}
	assert.Equal(t, []string{"msg-1"}, d.markers.buckets["follow-up"])

	// Default bucket when none is named.
	res := x.Execute(context.Background(), Action{Type: ActionMarkEmail}, rc, rc.Variables)
	require.True(t, res.Success)
	assert.Equal(t, []string{"msg-1"}, d.markers.buckets[defaultMarkerBucket])
}

func TestNotifyInterpolatesAndDefaultsTitle(t *testing.T) {
	d := newTestDeps()
	x := newTestExecutor(t, d, DefaultConfig())
	rc := testContext()

	res := x.Execute(context.Background(), Action{
		Type:       ActionNotify,
		Parameters: ActionParams{Body: "new mail from ${senderInfo.name}"},
	}, rc, rc.Variables)

	require.True(t, res.Success)
	require.Len(t, d.notifier.sent, 1)
	assert.Equal(t, "inboxpilot", d.notifier.sent[0].title)
	assert.Equal(t, "new mail from Alice", d.notifier.sent[0].body)
}

func TestMailActions(t *testing.T) {
	d := newTestDeps()
	x := newTestExecutor(t, d, DefaultConfig())
	rc := testContext()

	res := x.Execute(context.Background(), Action{Type: ActionDeleteEmail}, rc, rc.Variables)
	require.True(t, res.Success)
	assert.Equal(t, []string{"msg-1"}, d.mail.deleted)

	res = x.Execute(context.Background(), Action{Type: ActionMarkAsRead}, rc, rc.Variables)
	require.True(t, res.Success)
	assert.Equal(t, []string{"msg-1"}, d.mail.read)
}

func TestMailActionFailureIsContained(t *testing.T) {
	d := newTestDeps()
	d.mail.err = errors.New("gmail: 403")
	x := newTestExecutor(t, d, DefaultConfig())
	rc := testContext()

	res := x.Execute(context.Background(), Action{Type: ActionDeleteEmail}, rc, rc.Variables)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "failed to delete email")
}

func TestRequestSummaryGenerates(t *testing.T) {
	d := newTestDeps()
	d.summarize.summary = "three bullet points"
	x := newTestExecutor(t, d, DefaultConfig())
	rc := testContext()

	res := x.Execute(context.Background(), Action{Type: ActionRequestSummary}, rc, rc.Variables)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 1, d.summarize.calls)
	require.Len(t, d.summaries.saved, 1)
	assert.Equal(t, "three bullet points", d.summaries.saved[0].summary)
	assert.Equal(t, "msg-1", d.summaries.saved[0].key)

	// Both branches award sender score points.
	assert.Equal(t, float64(1), d.scores.scores["a@b.com"])
}

func TestRequestSummarySaveForLater(t *testing.T) {
	d := newTestDeps()
	cfg := DefaultConfig()
	cfg.SaveForLater = true
	x := newTestExecutor(t, d, cfg)
	rc := testContext()

	res := x.Execute(context.Background(), Action{Type: ActionRequestSummary}, rc, rc.Variables)
	require.True(t, res.Success, res.Error)
	assert.Zero(t, d.summarize.calls, "save-for-later must not call the summarizer")
	require.Len(t, d.summaries.saved, 1)
	assert.Equal(t, savedForLaterPlaceholder, d.summaries.saved[0].summary)
	assert.Equal(t, float64(1), d.scores.scores["a@b.com"])
}

func TestNavigationActions(t *testing.T) {
	d := newTestDeps()
	x := newTestExecutor(t, d, DefaultConfig())
	rc := testContext()

	require.True(t, x.Execute(context.Background(), Action{Type: ActionGotoNext}, rc, rc.Variables).Success)
	require.True(t, x.Execute(context.Background(), Action{Type: ActionGotoPrevious}, rc, rc.Variables).Success)
	assert.Equal(t, []Direction{NavigateNext, NavigatePrevious}, d.navigator.intents)
}

func TestOpenURL(t *testing.T) {
	d := newTestDeps()
	x := newTestExecutor(t, d, DefaultConfig())
	rc := testContext()

	res := x.Execute(context.Background(), Action{
		Type:       ActionOpenURL,
		Parameters: ActionParams{URL: "https://crm.example/contact?email=${senderInfo.email}"},
	}, rc, rc.Variables)

	require.True(t, res.Success)
	require.Len(t, d.opener.opened, 1)
	assert.Equal(t, "https://crm.example/contact?email=a@b.com", d.opener.opened[0].url)
	assert.Equal(t, "_blank", d.opener.opened[0].target)
}

func TestRunScriptAction(t *testing.T) {
	d := newTestDeps()
	x := newTestExecutor(t, d, DefaultConfig())
	rc := testContext()
	rc.SenderScore = 75

	res := x.Execute(context.Background(), Action{
		Type:       ActionRunScript,
		Parameters: ActionParams{Script: `senderScore >= 50.0 ? "vip" : "regular"`},
	}, rc, rc.Variables)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "vip", res.Result)
}

func TestUnknownActionType(t *testing.T) {
	d := newTestDeps()
	x := newTestExecutor(t, d, DefaultConfig())
	rc := testContext()

	res := x.Execute(context.Background(), Action{Type: "teleport_email"}, rc, rc.Variables)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "unknown action type")
}

func TestActionValidate(t *testing.T) {
	tests := []struct {
		name    string
		action  Action
		wantErr bool
	}{
		{"valid log", Action{Type: ActionLogMessage, Parameters: ActionParams{Message: "m"}}, false},
		{"log missing message", Action{Type: ActionLogMessage}, true},
		{"script missing body", Action{Type: ActionRunScript}, true},
		{"save_variable needs a source", Action{Type: ActionSaveVariable, Parameters: ActionParams{VariableName: "v"}}, true},
		{"save_variable direct value ok", Action{Type: ActionSaveVariable, Parameters: ActionParams{VariableName: "v", DirectValue: "x"}}, false},
		{"add_score zero points", Action{Type: ActionAddScore}, true},
		{"add_score negative points", Action{Type: ActionAddScore, Parameters: ActionParams{Points: -1}}, true},
		{"add_score positive points", Action{Type: ActionAddScore, Parameters: ActionParams{Points: 2}}, false},
		{"no-parameter actions", Action{Type: ActionGotoNext}, false},
		{"unknown type", Action{Type: "warp"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.action.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
