package filter

import (
	"fmt"
	"time"

	"github.com/agencykit/automation/pkg/catalog"
	"github.com/agencykit/automation/pkg/models"
)

// Evaluator evaluates filter rules, groups and whole audience configs against
// contact records. Evaluation is pure: the same inputs always produce the
// same result, and "now" is an explicit parameter.
type Evaluator struct {
	catalog *catalog.Registry
}

// NewEvaluator creates an evaluator resolving rules against the given
// condition catalog.
func NewEvaluator(registry *catalog.Registry) *Evaluator {
	return &Evaluator{catalog: registry}
}

// IsConfigured reports whether a rule participates in evaluation. A rule
// missing its condition id, resolving to no catalog entry, or missing the
// operator/value its config type needs is inert: an in-progress edit never
// breaks evaluation.
func (e *Evaluator) IsConfigured(rule models.FilterRule) bool {
	if rule.ConditionID == "" {
		return false
	}

	def, ok := e.catalog.Get(rule.ConditionID)
	if !ok {
		return false
	}

	switch def.ConfigType {
	case models.ConfigTypeSelect:
		return rule.Value != nil
	case models.ConfigTypeDaysThreshold:
		_, ok := toFloat(rule.Value)

		return ok
	case models.ConfigTypeNumberCompare:
		if _, ok := toFloat(rule.Value); !ok {
			return false
		}

		switch rule.Operator {
		case models.OperatorEquals, models.OperatorAtLeast, models.OperatorAtMost:
			return true
		default:
			return false
		}
	case models.ConfigTypeDaysFromNow, models.ConfigTypeDaysAgo, models.ConfigTypeNone:
		// Date conditions read the shared timing window and presence checks
		// need no configuration beyond the condition itself.
		return true
	default:
		return false
	}
}

// ActiveFilterCount returns the number of configured rules across all groups.
func (e *Evaluator) ActiveFilterCount(config models.FilterConfig) int {
	count := 0

	for _, group := range config.Groups {
		for _, rule := range group.Rules {
			if e.IsConfigured(rule) {
				count++
			}
		}
	}

	return count
}

// EvaluateRule evaluates one configured rule against a contact record.
func (e *Evaluator) EvaluateRule(rule models.FilterRule, contact *models.Contact, now time.Time, timing models.TimingWindow) RuleResult {
	def, _ := e.catalog.Get(rule.ConditionID)

	result := RuleResult{Rule: rule}

	switch def.ConfigType {
	case models.ConfigTypeSelect:
		result.Passes, result.Actual = evaluateSelect(def, rule, contact)
	case models.ConfigTypeDaysThreshold:
		result.Passes, result.Actual = evaluateDaysThreshold(def, rule, contact, now)
	case models.ConfigTypeNumberCompare:
		result.Passes, result.Actual = evaluateNumberCompare(def, rule, contact)
	case models.ConfigTypeDaysFromNow, models.ConfigTypeDaysAgo:
		var inWindow bool
		result.Actual, inWindow, result.Passes = evaluateDateWindow(def, contact, now, timing)

		if !inWindow && result.Actual != nil {
			result.Reason = ReasonOutsideTimingWindow
		}
	case models.ConfigTypeNone:
		value, _ := contact.Field(def.Field)
		flag, _ := value.(bool)
		result.Passes = flag
		result.Actual = flag
	}

	result.Effective = result.Passes

	if rule.Bucket == models.RuleBucketExclude {
		result.Effective = !result.Passes

		// A raw pass on an exclude rule means the contact carries the very
		// value the rule excludes; surface the conflict in the diagnostics.
		if result.Passes && result.Reason == "" {
			result.Reason = fmt.Sprintf("Account has %v", rule.Value)
		}
	}

	return result
}

// EvaluateGroup evaluates every configured rule of a group and combines the
// effective results with the group's logic. A group with zero configured
// rules is vacuously true, so an automation holding only a named, empty
// group is not silently blocked.
func (e *Evaluator) EvaluateGroup(group models.FilterGroup, contact *models.Contact, now time.Time, timing models.TimingWindow) GroupResult {
	result := GroupResult{
		Group:       group,
		RuleResults: make([]RuleResult, 0, len(group.Rules)),
	}

	for _, rule := range group.Rules {
		if !e.IsConfigured(rule) {
			continue
		}

		result.RuleResults = append(result.RuleResults, e.EvaluateRule(rule, contact, now, timing))
	}

	if len(result.RuleResults) == 0 {
		result.Passes = true

		return result
	}

	result.Passes = combine(group.Logic, result.RuleResults, func(r RuleResult) bool {
		return r.Effective
	})

	return result
}

// Evaluate runs the full audience match in one pass and returns the verdict
// together with the complete group and rule breakdown. Zero groups is a
// definite non-match, unlike the per-group vacuous-true rule.
func (e *Evaluator) Evaluate(config models.FilterConfig, contact *models.Contact, now time.Time, timing models.TimingWindow) MatchResult {
	result := MatchResult{
		GroupResults: make([]GroupResult, 0, len(config.Groups)),
	}

	if len(config.Groups) == 0 {
		return result
	}

	for _, group := range config.Groups {
		result.GroupResults = append(result.GroupResults, e.EvaluateGroup(group, contact, now, timing))
	}

	result.Passes = combine(config.GroupLogic, result.GroupResults, func(g GroupResult) bool {
		return g.Passes
	})

	return result
}

func combine[T any](logic models.GroupLogic, items []T, passes func(T) bool) bool {
	if logic == models.GroupLogicOr {
		for _, item := range items {
			if passes(item) {
				return true
			}
		}

		return false
	}

	for _, item := range items {
		if !passes(item) {
			return false
		}
	}

	return true
}

// evaluateSelect performs a case-sensitive exact match against the resolved
// field value. Multi-valued fields (a contact holding several policy types)
// pass when any element matches; under an exclude bucket the inversion then
// requires every element to differ.
func evaluateSelect(def models.ConditionDefinition, rule models.FilterRule, contact *models.Contact) (bool, any) {
	value, ok := contact.Field(def.Field)
	if !ok || value == nil {
		return false, NoneExcluded
	}

	want := fmt.Sprint(rule.Value)

	switch v := value.(type) {
	case []string:
		for _, element := range v {
			if element == want {
				return true, value
			}
		}

		return false, value
	case []any:
		for _, element := range v {
			if fmt.Sprint(element) == want {
				return true, value
			}
		}

		return false, value
	default:
		return fmt.Sprint(v) == want, value
	}
}

// evaluateDaysThreshold implements "hasn't happened in N days". A contact
// with no recorded event passes: "never" satisfies any threshold.
func evaluateDaysThreshold(def models.ConditionDefinition, rule models.FilterRule, contact *models.Contact, now time.Time) (bool, any) {
	last, ok := contact.Date(def.Field)
	if !ok {
		return true, nil
	}

	threshold, _ := toFloat(rule.Value)
	daysSince := int(now.Sub(last).Hours() / 24)

	return daysSince >= int(threshold), daysSince
}

func evaluateNumberCompare(def models.ConditionDefinition, rule models.FilterRule, contact *models.Contact) (bool, any) {
	raw, ok := contact.Field(def.Field)
	if !ok {
		return false, nil
	}

	actual, ok := toFloat(raw)
	if !ok {
		return false, raw
	}

	want, _ := toFloat(rule.Value)
	if def.Max > 0 && want > float64(def.Max) {
		want = float64(def.Max)
	}

	switch rule.Operator {
	case models.OperatorEquals:
		return actual == want, actual
	case models.OperatorAtLeast:
		return actual >= want, actual
	case models.OperatorAtMost:
		return actual <= want, actual
	default:
		return false, actual
	}
}

// evaluateDateWindow computes the day delta of a date field relative to now
// (future for days_from_now, past for days_ago) and checks it against the
// automation's shared timing window. Returns (actual delta, in-window, passes).
func evaluateDateWindow(def models.ConditionDefinition, contact *models.Contact, now time.Time, timing models.TimingWindow) (any, bool, bool) {
	date, ok := contact.Date(def.Field)
	if !ok {
		return nil, false, false
	}

	var delta int
	if def.ConfigType == models.ConfigTypeDaysFromNow {
		delta = int(date.Sub(now).Hours() / 24)
	} else {
		delta = int(now.Sub(date).Hours() / 24)
	}

	inWindow := timing.Contains(delta)

	return delta, inWindow, inWindow
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
