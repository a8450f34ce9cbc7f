package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedRulesAreValid(t *testing.T) {
	seeds := SeedRules()
	require.NotEmpty(t, seeds)

	for _, rule := range seeds {
		assert.NotEmpty(t, rule.Name)
		assert.NotEmpty(t, rule.Actions, "rule %q has no actions", rule.Name)
		for _, a := range rule.Actions {
			assert.NoError(t, a.Validate(), "rule %q", rule.Name)
		}
	}
}

func seedRuleByName(t *testing.T, name string) Rule {
	t.Helper()
	for _, rule := range SeedRules() {
		if rule.Name == name {
			return rule
		}
	}
	t.Fatalf("no seed rule named %q", name)
	return Rule{}
}

// The link condition must distinguish a message without links from one with
// links; a context with zero links may never satisfy it.
func TestSeedLinkConditionRequiresLinks(t *testing.T) {
	rule := seedRuleByName(t, "Summarize linked articles")

	var linkCond Condition
	found := false
	for _, c := range rule.Conditions {
		if c.Type == ConditionHasLinks {
			linkCond, found = c, true
		}
	}
	require.True(t, found, "rule has no has_links condition")

	ce := NewConditionEvaluator(nil)

	rc := testContext()
	res := ce.Evaluate(context.Background(), linkCond, rc)
	assert.False(t, res.Matched, "message without links matched the link condition")

	rc.Links = []Link{{URL: "https://blog.example/post", Domain: "blog.example"}}
	res = ce.Evaluate(context.Background(), linkCond, rc)
	assert.True(t, res.Matched, "message with links did not match the link condition")
}

// The one seed rule that ships enabled must actually do something: a typical
// newsletter message has to fire it and land in the newsletters bucket with
// every action reporting success.
func TestSeedNewsletterRuleFilesNewsletters(t *testing.T) {
	d := newTestDeps(SeedRules()...)
	en := mustEngine(d, DefaultConfig())

	rc := testContext()
	rc.Email.Subject = "Weekly newsletter"
	rc.Email.Body = "Hello! Click here to unsubscribe."

	results, err := en.ExecuteRules(context.Background(), rc)
	require.NoError(t, err)

	matched := false
	for _, res := range results {
		if res.RuleName != "File newsletters" {
			continue
		}
		matched = res.Matched
		for _, ar := range res.Actions {
			assert.True(t, ar.Success, "action %s failed: %s", ar.Type, ar.Error)
		}
	}
	require.True(t, matched, "newsletter message did not fire the seed rule")
	assert.Equal(t, []string{rc.Email.ID}, d.markers.buckets["newsletters"])
}
