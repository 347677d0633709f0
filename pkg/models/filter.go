package models

// GroupLogic is the AND/OR combinator applied across the rules of a group or
// across the groups of a filter config.
type GroupLogic string

const (
	GroupLogicAnd GroupLogic = "AND"
	GroupLogicOr  GroupLogic = "OR"
)

// RuleBucket separates the rules of a group by intent. Exclude-bucket rule
// results are inverted before the group logic is applied: a configured
// exclude rule passes the group only when the excluded condition is absent.
type RuleBucket string

const (
	RuleBucketInclude  RuleBucket = "include"
	RuleBucketExclude  RuleBucket = "exclude"
	RuleBucketActivity RuleBucket = "activity"
)

// Operator is the comparison operator for number_compare conditions.
type Operator string

const (
	OperatorEquals  Operator = "equals"
	OperatorAtLeast Operator = "at_least"
	OperatorAtMost  Operator = "at_most"
)

// FilterRule binds one condition definition to a configured value. A rule
// missing its condition id or, where the config type needs one, its operator
// or value is "not configured": it is excluded from evaluation and from
// active-filter counts so an in-progress edit never breaks evaluation.
type FilterRule struct {
	ID          string     `json:"id"`
	ConditionID string     `json:"condition_id"`
	Bucket      RuleBucket `json:"bucket"`
	Operator    Operator   `json:"operator,omitempty"`
	Value       any        `json:"value,omitempty"`
}

// FilterGroup is an ordered set of rules combined with one logic operator.
type FilterGroup struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Logic GroupLogic   `json:"logic" validate:"required,oneof=AND OR"`
	Rules []FilterRule `json:"rules"`
}

// FilterConfig is the audience filter of an automation: ordered groups
// combined with a top-level logic operator. An empty group list never
// matches; there is no implicit match-all.
type FilterConfig struct {
	Groups     []FilterGroup `json:"groups"`
	GroupLogic GroupLogic    `json:"group_logic" validate:"required,oneof=AND OR"`
}

// TimingWindow is the automation-wide [Min, Max] day window shared by
// days_from_now and days_ago conditions.
type TimingWindow struct {
	MinDays int `json:"min_days"`
	MaxDays int `json:"max_days"`
}

// Contains reports whether a day delta falls inside the window, inclusive.
func (w TimingWindow) Contains(days int) bool {
	return days >= w.MinDays && days <= w.MaxDays
}
