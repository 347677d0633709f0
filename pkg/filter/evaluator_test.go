package filter_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agencykit/automation/pkg/catalog"
	"github.com/agencykit/automation/pkg/filter"
	"github.com/agencykit/automation/pkg/models"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newEvaluator(t *testing.T) *filter.Evaluator {
	t.Helper()

	return filter.NewEvaluator(catalog.Builtin())
}

func selectRule(conditionID string, bucket models.RuleBucket, value any) models.FilterRule {
	return models.FilterRule{
		ID:          "rule-" + conditionID + "-" + string(bucket),
		ConditionID: conditionID,
		Bucket:      bucket,
		Value:       value,
	}
}

func TestEvaluateAutoIncludeHomeExclude(t *testing.T) {
	evaluator := newEvaluator(t)

	config := models.FilterConfig{
		GroupLogic: models.GroupLogicAnd,
		Groups: []models.FilterGroup{
			{
				ID:    "g1",
				Logic: models.GroupLogicAnd,
				Rules: []models.FilterRule{
					selectRule("has_policy_type", models.RuleBucketInclude, "Auto"),
					selectRule("has_policy_type", models.RuleBucketExclude, "Home"),
				},
			},
		},
	}

	autoOnly := &models.Contact{
		ID:     "c1",
		Fields: map[string]any{"policy_types": []string{"Auto"}},
	}

	result := evaluator.Evaluate(config, autoOnly, now, models.TimingWindow{})
	assert.True(t, result.Passes)

	autoAndHome := &models.Contact{
		ID:     "c2",
		Fields: map[string]any{"policy_types": []string{"Auto", "Home"}},
	}

	result = evaluator.Evaluate(config, autoAndHome, now, models.TimingWindow{})
	assert.False(t, result.Passes)

	// The exclude rule passed raw (Home present) but contributes false.
	require.Len(t, result.GroupResults, 1)
	require.Len(t, result.GroupResults[0].RuleResults, 2)

	excludeResult := result.GroupResults[0].RuleResults[1]
	assert.True(t, excludeResult.Passes)
	assert.False(t, excludeResult.Effective)
	assert.Equal(t, "Account has Home", excludeResult.Reason)
}

func TestEvaluateOrAcrossGroups(t *testing.T) {
	evaluator := newEvaluator(t)

	config := models.FilterConfig{
		GroupLogic: models.GroupLogicOr,
		Groups: []models.FilterGroup{
			{
				ID:    "g1",
				Logic: models.GroupLogicAnd,
				Rules: []models.FilterRule{
					selectRule("has_policy_type", models.RuleBucketInclude, "Auto"),
				},
			},
			{
				ID:    "g2",
				Logic: models.GroupLogicAnd,
				Rules: []models.FilterRule{
					selectRule("customer_state", models.RuleBucketInclude, "TX"),
				},
			},
		},
	}

	contact := &models.Contact{
		ID: "c1",
		Fields: map[string]any{
			"policy_types": []string{"Auto"},
			"state":        "CA",
		},
	}

	result := evaluator.Evaluate(config, contact, now, models.TimingWindow{})
	assert.True(t, result.Passes)
	require.Len(t, result.GroupResults, 2)
	assert.True(t, result.GroupResults[0].Passes)
	assert.False(t, result.GroupResults[1].Passes)
}

func TestEvaluateZeroGroupsNeverMatches(t *testing.T) {
	evaluator := newEvaluator(t)

	config := models.FilterConfig{GroupLogic: models.GroupLogicAnd}
	contact := &models.Contact{ID: "c1", Fields: map[string]any{"state": "TX"}}

	result := evaluator.Evaluate(config, contact, now, models.TimingWindow{})
	assert.False(t, result.Passes)
	assert.Empty(t, result.GroupResults)
}

func TestEvaluateEmptyGroupIsVacuouslyTrue(t *testing.T) {
	evaluator := newEvaluator(t)

	group := models.FilterGroup{ID: "g1", Logic: models.GroupLogicAnd}
	contact := &models.Contact{ID: "c1"}

	result := evaluator.EvaluateGroup(group, contact, now, models.TimingWindow{})
	assert.True(t, result.Passes)
	assert.Empty(t, result.RuleResults)
}

func TestEvaluateSkipsUnconfiguredRules(t *testing.T) {
	evaluator := newEvaluator(t)

	group := models.FilterGroup{
		ID:    "g1",
		Logic: models.GroupLogicAnd,
		Rules: []models.FilterRule{
			// No value yet: the agent picked the condition but not a policy type.
			{ID: "r1", ConditionID: "has_policy_type", Bucket: models.RuleBucketInclude},
			// Unknown condition id.
			{ID: "r2", ConditionID: "does_not_exist", Bucket: models.RuleBucketInclude, Value: "x"},
			selectRule("customer_state", models.RuleBucketInclude, "TX"),
		},
	}

	contact := &models.Contact{ID: "c1", Fields: map[string]any{"state": "TX"}}

	result := evaluator.EvaluateGroup(group, contact, now, models.TimingWindow{})
	assert.True(t, result.Passes)
	assert.Len(t, result.RuleResults, 1)
}

func TestActiveFilterCount(t *testing.T) {
	evaluator := newEvaluator(t)

	config := models.FilterConfig{
		GroupLogic: models.GroupLogicAnd,
		Groups: []models.FilterGroup{
			{
				ID:    "g1",
				Logic: models.GroupLogicAnd,
				Rules: []models.FilterRule{
					selectRule("has_policy_type", models.RuleBucketInclude, "Auto"),
					{ID: "r2", ConditionID: "has_policy_type", Bucket: models.RuleBucketInclude},
					{ID: "r3", ConditionID: "policy_count", Bucket: models.RuleBucketInclude, Operator: models.OperatorAtLeast, Value: 2},
					{ID: "r4", ConditionID: "policy_count", Bucket: models.RuleBucketInclude, Value: 2},
				},
			},
		},
	}

	assert.Equal(t, 2, evaluator.ActiveFilterCount(config))
}

func TestEvaluateSelectAbsentFieldReportsSentinel(t *testing.T) {
	evaluator := newEvaluator(t)

	rule := selectRule("carrier", models.RuleBucketInclude, "Acme Mutual")
	contact := &models.Contact{ID: "c1"}

	result := evaluator.EvaluateRule(rule, contact, now, models.TimingWindow{})
	assert.False(t, result.Passes)
	assert.Equal(t, filter.NoneExcluded, result.Actual)

	// The same absence passes under an exclude bucket.
	excludeRule := selectRule("carrier", models.RuleBucketExclude, "Acme Mutual")
	result = evaluator.EvaluateRule(excludeRule, contact, now, models.TimingWindow{})
	assert.False(t, result.Passes)
	assert.True(t, result.Effective)
}

func TestEvaluateDaysThreshold(t *testing.T) {
	evaluator := newEvaluator(t)

	rule := models.FilterRule{
		ID:          "r1",
		ConditionID: "no_email_received",
		Bucket:      models.RuleBucketActivity,
		Value:       30,
	}

	stale := &models.Contact{
		ID:    "c1",
		Dates: map[string]time.Time{"last_email_received_at": now.AddDate(0, 0, -45)},
	}

	result := evaluator.EvaluateRule(rule, stale, now, models.TimingWindow{})
	assert.True(t, result.Passes)
	assert.Equal(t, 45, result.Actual)

	recent := &models.Contact{
		ID:    "c2",
		Dates: map[string]time.Time{"last_email_received_at": now.AddDate(0, 0, -3)},
	}

	result = evaluator.EvaluateRule(rule, recent, now, models.TimingWindow{})
	assert.False(t, result.Passes)

	// A contact who never received an email satisfies any threshold.
	never := &models.Contact{ID: "c3"}

	result = evaluator.EvaluateRule(rule, never, now, models.TimingWindow{})
	assert.True(t, result.Passes)
	assert.Nil(t, result.Actual)
}

func TestEvaluateNumberCompare(t *testing.T) {
	evaluator := newEvaluator(t)

	contact := &models.Contact{ID: "c1", Fields: map[string]any{"policy_count": 3}}

	cases := []struct {
		operator models.Operator
		value    any
		want     bool
	}{
		{models.OperatorEquals, 3, true},
		{models.OperatorEquals, 2, false},
		{models.OperatorAtLeast, 2, true},
		{models.OperatorAtLeast, 4, false},
		{models.OperatorAtMost, 3, true},
		{models.OperatorAtMost, 2, false},
	}

	for _, tc := range cases {
		rule := models.FilterRule{
			ID:          "r1",
			ConditionID: "policy_count",
			Bucket:      models.RuleBucketInclude,
			Operator:    tc.operator,
			Value:       tc.value,
		}

		result := evaluator.EvaluateRule(rule, contact, now, models.TimingWindow{})
		assert.Equal(t, tc.want, result.Passes, "operator %s value %v", tc.operator, tc.value)
	}
}

func TestEvaluateNumberCompareClampsToMax(t *testing.T) {
	evaluator := newEvaluator(t)

	// policy_count caps at 50; a threshold of 500 behaves as 50.
	rule := models.FilterRule{
		ID:          "r1",
		ConditionID: "policy_count",
		Bucket:      models.RuleBucketInclude,
		Operator:    models.OperatorAtLeast,
		Value:       500,
	}

	contact := &models.Contact{ID: "c1", Fields: map[string]any{"policy_count": 50}}

	result := evaluator.EvaluateRule(rule, contact, now, models.TimingWindow{})
	assert.True(t, result.Passes)
}

func TestEvaluateDateWindow(t *testing.T) {
	evaluator := newEvaluator(t)

	timing := models.TimingWindow{MinDays: 30, MaxDays: 60}

	rule := models.FilterRule{
		ID:          "r1",
		ConditionID: "policy_renewal",
		Bucket:      models.RuleBucketInclude,
	}

	inWindow := &models.Contact{
		ID:    "c1",
		Dates: map[string]time.Time{"policy_renewal_date": now.AddDate(0, 0, 45)},
	}

	result := evaluator.EvaluateRule(rule, inWindow, now, timing)
	assert.True(t, result.Passes)
	assert.Equal(t, 45, result.Actual)
	assert.Empty(t, result.Reason)

	tooSoon := &models.Contact{
		ID:    "c2",
		Dates: map[string]time.Time{"policy_renewal_date": now.AddDate(0, 0, 10)},
	}

	result = evaluator.EvaluateRule(rule, tooSoon, now, timing)
	assert.False(t, result.Passes)
	assert.Equal(t, filter.ReasonOutsideTimingWindow, result.Reason)

	// A contact without the date fails with no window reason.
	noDate := &models.Contact{ID: "c3"}

	result = evaluator.EvaluateRule(rule, noDate, now, timing)
	assert.False(t, result.Passes)
	assert.Nil(t, result.Actual)
	assert.Empty(t, result.Reason)
}

func TestEvaluateDaysAgo(t *testing.T) {
	evaluator := newEvaluator(t)

	timing := models.TimingWindow{MinDays: 0, MaxDays: 90}

	rule := models.FilterRule{
		ID:          "r1",
		ConditionID: "policy_start",
		Bucket:      models.RuleBucketInclude,
	}

	contact := &models.Contact{
		ID:    "c1",
		Dates: map[string]time.Time{"policy_start_date": now.AddDate(0, 0, -30)},
	}

	result := evaluator.EvaluateRule(rule, contact, now, timing)
	assert.True(t, result.Passes)
	assert.Equal(t, 30, result.Actual)
}

func TestEvaluatePresenceCondition(t *testing.T) {
	evaluator := newEvaluator(t)

	rule := models.FilterRule{
		ID:          "r1",
		ConditionID: "is_new_customer",
		Bucket:      models.RuleBucketInclude,
	}

	fresh := &models.Contact{ID: "c1", Fields: map[string]any{"is_new_customer": true}}
	result := evaluator.EvaluateRule(rule, fresh, now, models.TimingWindow{})
	assert.True(t, result.Passes)

	existing := &models.Contact{ID: "c2", Fields: map[string]any{"is_new_customer": false}}
	result = evaluator.EvaluateRule(rule, existing, now, models.TimingWindow{})
	assert.False(t, result.Passes)

	absent := &models.Contact{ID: "c3"}
	result = evaluator.EvaluateRule(rule, absent, now, models.TimingWindow{})
	assert.False(t, result.Passes)
}

func TestEvaluateGroupOrLogic(t *testing.T) {
	evaluator := newEvaluator(t)

	group := models.FilterGroup{
		ID:    "g1",
		Logic: models.GroupLogicOr,
		Rules: []models.FilterRule{
			selectRule("customer_state", models.RuleBucketInclude, "TX"),
			selectRule("customer_state", models.RuleBucketInclude, "CA"),
		},
	}

	contact := &models.Contact{ID: "c1", Fields: map[string]any{"state": "CA"}}

	result := evaluator.EvaluateGroup(group, contact, now, models.TimingWindow{})
	assert.True(t, result.Passes)
}
