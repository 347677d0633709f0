// Package filter implements the audience filter evaluator: a boolean rule
// engine deciding whether a contact matches an automation's grouped
// conditions, with per-condition diagnostics.
package filter

import "github.com/agencykit/automation/pkg/models"

// NoneExcluded is the sentinel reported as the actual value of a select
// condition whose field is absent from the contact record.
const NoneExcluded = "None (Excluded)"

// ReasonOutsideTimingWindow is reported when a date condition's delta falls
// outside the automation's timing window.
const ReasonOutsideTimingWindow = "Outside timing window"

// RuleResult is the outcome of evaluating one configured rule.
//
// Passes is the raw evaluation of the condition itself; Effective is the
// contribution after exclude-bucket inversion and is what the group logic
// combines. For include and activity rules the two are identical.
type RuleResult struct {
	Rule      models.FilterRule `json:"rule"`
	Passes    bool              `json:"passes"`
	Effective bool              `json:"effective"`
	Actual    any               `json:"actual,omitempty"`
	Reason    string            `json:"reason,omitempty"`
}

// GroupResult is the outcome of one group: the combined verdict plus the
// per-rule breakdown. Unconfigured rules do not appear.
type GroupResult struct {
	Group       models.FilterGroup `json:"group"`
	Passes      bool               `json:"passes"`
	RuleResults []RuleResult       `json:"rule_results"`
}

// MatchResult is the outcome of a full audience evaluation. The boolean
// verdict is derived from the group breakdown, never computed separately, so
// diagnostic rendering and enrollment decisions cannot drift apart.
type MatchResult struct {
	Passes       bool          `json:"passes"`
	GroupResults []GroupResult `json:"group_results"`
}
