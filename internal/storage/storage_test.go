package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxpilot/inboxpilot/internal/rules"
)

func sampleRule(name string) *rules.Rule {
	return &rules.Rule{
		Name:          name,
		Enabled:       true,
		LogicOperator: rules.LogicAnd,
		Conditions: []rules.Condition{
			{ID: "c1", Type: rules.ConditionSenderEmail, Operator: rules.OperatorEquals, Value: "a@b.com"},
		},
		Actions: []rules.Action{
			{ID: "a1", Type: rules.ActionLogMessage, Parameters: rules.ActionParams{Message: "hit"}},
		},
	}
}

func TestRuleRoundTrip(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()

	r := sampleRule("vip")
	require.NoError(t, s.SaveRule(ctx, r))
	require.NotEmpty(t, r.ID, "save must assign an id")

	got, err := s.GetRule(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "vip", got.Name)
	assert.True(t, got.Enabled)
	require.Len(t, got.Conditions, 1)
	assert.Equal(t, rules.ConditionSenderEmail, got.Conditions[0].Type)
	assert.Equal(t, "a@b.com", got.Conditions[0].Value)
	require.Len(t, got.Actions, 1)
	assert.Equal(t, "hit", got.Actions[0].Parameters.Message)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Nil(t, got.LastExecuted)
}

func TestSaveRuleRejectsInvalidActions(t *testing.T) {
	s := OpenMemory(t)

	r := sampleRule("broken")
	r.Actions = []rules.Action{{Type: rules.ActionLogMessage}} // missing message
	err := s.SaveRule(context.Background(), r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message is required")
}

func TestSaveRuleUpdates(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()

	r := sampleRule("v1")
	require.NoError(t, s.SaveRule(ctx, r))

	r.Name = "v2"
	r.Enabled = false
	require.NoError(t, s.SaveRule(ctx, r))

	got, err := s.GetRule(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Name)
	assert.False(t, got.Enabled)

	all, err := s.ListRules(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "update must not create a second row")
}

func TestListEnabledFiltersDisabled(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()

	on := sampleRule("on")
	off := sampleRule("off")
	off.Enabled = false
	require.NoError(t, s.SaveRule(ctx, on))
	require.NoError(t, s.SaveRule(ctx, off))

	enabled, err := s.ListEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "on", enabled[0].Name)

	require.NoError(t, s.SetRuleEnabled(ctx, off.ID, true))
	enabled, err = s.ListEnabled(ctx)
	require.NoError(t, err)
	assert.Len(t, enabled, 2)
}

func TestRuleNotFound(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()

	_, err := s.GetRule(ctx, "nope")
	assert.ErrorIs(t, err, ErrRuleNotFound)
	assert.ErrorIs(t, s.DeleteRule(ctx, "nope"), ErrRuleNotFound)
	assert.ErrorIs(t, s.SetRuleEnabled(ctx, "nope", true), ErrRuleNotFound)
	assert.ErrorIs(t, s.IncrementExecutionCount(ctx, "nope", time.Now()), ErrRuleNotFound)
}

func TestIncrementExecutionCount(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()

	r := sampleRule("counted")
	require.NoError(t, s.SaveRule(ctx, r))

	fired := time.Now()
	require.NoError(t, s.IncrementExecutionCount(ctx, r.ID, fired))
	require.NoError(t, s.IncrementExecutionCount(ctx, r.ID, fired.Add(time.Minute)))

	got, err := s.GetRule(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ExecutionCount)
	require.NotNil(t, got.LastExecuted)
	assert.WithinDuration(t, fired.Add(time.Minute), *got.LastExecuted, time.Second)
}

func TestScores(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()

	score, err := s.Score(ctx, "unknown@x")
	require.NoError(t, err)
	assert.Zero(t, score, "unknown senders score zero")

	require.NoError(t, s.AddPoints(ctx, "a@b.com", "Alice", 10, "msg-1"))
	require.NoError(t, s.AddPoints(ctx, "a@b.com", "", -3, "msg-2"))
	require.NoError(t, s.AddPoints(ctx, "b@b.com", "Bob", 5, "msg-3"))

	score, err = s.Score(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, float64(7), score)

	top, err := s.TopSenders(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "a@b.com", top[0].Email)
	assert.Equal(t, "Alice", top[0].Name, "empty name must not erase the stored one")
	assert.Equal(t, "b@b.com", top[1].Email)
}

func TestMarkersIdempotent(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()

	require.NoError(t, s.AppendMarker(ctx, "follow-up", "msg-1"))
	require.NoError(t, s.AppendMarker(ctx, "follow-up", "msg-1"))
	require.NoError(t, s.AppendMarker(ctx, "follow-up", "msg-2"))
	require.NoError(t, s.AppendMarker(ctx, "other", "msg-1"))

	ids, err := s.ListMarkers(ctx, "follow-up")
	require.NoError(t, err)
	assert.Equal(t, []string{"msg-1", "msg-2"}, ids)

	ids, err = s.ListMarkers(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, []string{"msg-1"}, ids)
}

func TestSummariesUpsert(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()

	require.NoError(t, s.SaveLinkSummary(ctx, "msg-1", "saved for later", "body", "Invoice"))
	require.NoError(t, s.SaveLinkSummary(ctx, "msg-1", "the real summary", "body", "Invoice"))

	got, err := s.GetLinkSummary(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, "the real summary", got.Summary)
	assert.Equal(t, "Invoice", got.SourceLabel)

	_, err = s.GetLinkSummary(ctx, "nope")
	assert.ErrorIs(t, err, ErrSummaryNotFound)
}

func TestListSummariesMatching(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()

	require.NoError(t, s.SaveLinkSummary(ctx, "msg-1", "saved for later", "b1", ""))
	require.NoError(t, s.SaveLinkSummary(ctx, "msg-2", "done", "b2", ""))
	require.NoError(t, s.SaveLinkSummary(ctx, "msg-3", "saved for later", "b3", ""))

	pending, err := s.ListSummariesMatching(ctx, "saved for later")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "msg-1", pending[0].Key)
	assert.Equal(t, "msg-3", pending[1].Key)
}

func TestDebugLogAppendAndPrune(t *testing.T) {
	s := OpenMemory(t, WithDebugRetention(7))
	ctx := context.Background()

	old := rules.DebugLogEntry{
		ID:        "old",
		EmailID:   "msg-0",
		Timestamp: time.Now().Add(-30 * 24 * time.Hour),
	}
	require.NoError(t, s.Append(ctx, old))

	fresh := rules.DebugLogEntry{
		ID:           "fresh",
		EmailID:      "msg-1",
		Subject:      "Invoice",
		From:         "Alice <a@b.com>",
		Timestamp:    time.Now(),
		RulesChecked: 2,
		RulesFired:   1,
	}
	require.NoError(t, s.Append(ctx, fresh))

	entries, err := s.RecentDebugEntries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1, "entries past the retention window are pruned on append")
	assert.Equal(t, "fresh", entries[0].ID)
	assert.Equal(t, 2, entries[0].RulesChecked)

	require.NoError(t, s.ClearDebugLog(ctx))
	entries, err = s.RecentDebugEntries(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
