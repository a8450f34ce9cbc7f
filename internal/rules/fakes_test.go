package rules

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// In-memory collaborator fakes shared by the package tests.

type fakeRuleStore struct {
	rules      []Rule
	increments map[string]int
	listErr    error
}

func newFakeRuleStore(rules ...Rule) *fakeRuleStore {
	return &fakeRuleStore{rules: rules, increments: make(map[string]int)}
}

func (s *fakeRuleStore) ListEnabled(context.Context) ([]Rule, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	enabled := make([]Rule, 0, len(s.rules))
	for _, r := range s.rules {
		if r.Enabled {
			enabled = append(enabled, r)
		}
	}
	return enabled, nil
}

func (s *fakeRuleStore) IncrementExecutionCount(_ context.Context, ruleID string, _ time.Time) error {
	s.increments[ruleID]++
	return nil
}

type scoreEvent struct {
	email  string
	points float64
}

type fakeScores struct {
	mu     sync.Mutex
	scores map[string]float64
	events []scoreEvent
	err    error
}

func newFakeScores() *fakeScores {
	return &fakeScores{scores: make(map[string]float64)}
}

func (s *fakeScores) Score(_ context.Context, email string) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scores[email], nil
}

func (s *fakeScores) AddPoints(_ context.Context, email, _ string, points float64, _ string) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[email] += points
	s.events = append(s.events, scoreEvent{email: email, points: points})
	return nil
}

type fakeMail struct {
	deleted []string
	read    []string
	err     error
}

func (m *fakeMail) DeleteEmail(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *fakeMail) MarkAsRead(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	m.read = append(m.read, id)
	return nil
}

type fakeSummarizer struct {
	summary string
	err     error
	calls   int
}

func (s *fakeSummarizer) Summarize(context.Context, string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.summary, nil
}

type savedSummary struct {
	key, summary, label string
}

type fakeSummaryStore struct {
	saved []savedSummary
}

func (s *fakeSummaryStore) SaveLinkSummary(_ context.Context, key, summary, _, label string) error {
	s.saved = append(s.saved, savedSummary{key: key, summary: summary, label: label})
	return nil
}

type fakeMarkers struct {
	buckets map[string][]string
}

func newFakeMarkers() *fakeMarkers {
	return &fakeMarkers{buckets: make(map[string][]string)}
}

func (m *fakeMarkers) AppendMarker(_ context.Context, bucket, emailID string) error {
	for _, id := range m.buckets[bucket] {
		if id == emailID {
			return nil
		}
	}
	m.buckets[bucket] = append(m.buckets[bucket], emailID)
	return nil
}

type notification struct {
	title, body string
}

type fakeNotifier struct {
	sent []notification
	err  error
}

func (n *fakeNotifier) Notify(_ context.Context, title, body string) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, notification{title: title, body: body})
	return nil
}

type fakeNavigator struct {
	intents []Direction
}

func (n *fakeNavigator) Navigate(d Direction) {
	n.intents = append(n.intents, d)
}

type openedURL struct {
	url, target string
}

type fakeOpener struct {
	opened []openedURL
	err    error
}

func (o *fakeOpener) Open(_ context.Context, url, target string) error {
	if o.err != nil {
		return o.err
	}
	o.opened = append(o.opened, openedURL{url: url, target: target})
	return nil
}

type fakeDebugLog struct {
	entries []DebugLogEntry
}

func (d *fakeDebugLog) Append(_ context.Context, entry DebugLogEntry) error {
	d.entries = append(d.entries, entry)
	return nil
}

// testContext builds a loaded-content rule context with sensible defaults.
func testContext() *RuleContext {
	return &RuleContext{
		Email: Email{
			ID:      "msg-1",
			Subject: "Invoice",
			From:    "Alice <a@b.com>",
			Body:    "order #12345 confirmed",
		},
		Sender:    SenderInfo{Email: "a@b.com", Name: "Alice"},
		Variables: make(map[string]any),
	}
}

// testDeps wires every fake into a Dependencies bundle.
type testDeps struct {
	rules     *fakeRuleStore
	scores    *fakeScores
	mail      *fakeMail
	summarize *fakeSummarizer
	summaries *fakeSummaryStore
	markers   *fakeMarkers
	notifier  *fakeNotifier
	navigator *fakeNavigator
	opener    *fakeOpener
	debugLog  *fakeDebugLog
}

func newTestDeps(rules ...Rule) *testDeps {
	return &testDeps{
		rules:     newFakeRuleStore(rules...),
		scores:    newFakeScores(),
		mail:      &fakeMail{},
		summarize: &fakeSummarizer{summary: "a summary"},
		summaries: &fakeSummaryStore{},
		markers:   newFakeMarkers(),
		notifier:  &fakeNotifier{},
		navigator: &fakeNavigator{},
		opener:    &fakeOpener{},
		debugLog:  &fakeDebugLog{},
	}
}

func (d *testDeps) dependencies() Dependencies {
	return Dependencies{
		Rules:      d.rules,
		Scores:     d.scores,
		Mail:       d.mail,
		Summarizer: d.summarize,
		Summaries:  d.summaries,
		Markers:    d.markers,
		Notifier:   d.notifier,
		Navigator:  d.navigator,
		Opener:     d.opener,
		DebugLog:   d.debugLog,
	}
}

func mustEngine(d *testDeps, cfg Config) *Engine {
	en, err := NewEngine(d.dependencies(), cfg, nil)
	if err != nil {
		panic(fmt.Sprintf("failed to build test engine: %v", err))
	}
	return en
}
