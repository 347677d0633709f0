// Package models defines the core domain models for audience filtering and
// workflow-based marketing automation.
package models

// ConfigType identifies how a condition definition is configured and
// evaluated. The set is closed: an unknown config type is rejected when the
// catalog is built, not silently ignored at evaluation time.
type ConfigType string

const (
	ConfigTypeSelect        ConfigType = "select"         // Exact match against one of a fixed option list
	ConfigTypeDaysThreshold ConfigType = "days_threshold" // "hasn't happened in N days" style checks
	ConfigTypeNumberCompare ConfigType = "number_compare" // Numeric comparison with an operator
	ConfigTypeDaysFromNow   ConfigType = "days_from_now"  // Date field N days in the future, within the timing window
	ConfigTypeDaysAgo       ConfigType = "days_ago"       // Date field N days in the past, within the timing window
	ConfigTypeNone          ConfigType = "none"           // Boolean presence check, no configuration
)

// IsValid reports whether the config type is one of the closed set.
func (c ConfigType) IsValid() bool {
	switch c {
	case ConfigTypeSelect, ConfigTypeDaysThreshold, ConfigTypeNumberCompare,
		ConfigTypeDaysFromNow, ConfigTypeDaysAgo, ConfigTypeNone:
		return true
	default:
		return false
	}
}

// ConditionDefinition describes one entry of the condition catalog: which
// contact field it reads, how it is configured and which options or bounds
// apply. Definitions are immutable and loaded once at startup.
type ConditionDefinition struct {
	ID           string     `json:"id"            validate:"required"`
	Category     string     `json:"category"      validate:"required"`
	Label        string     `json:"label"         validate:"required"`
	ConfigType   ConfigType `json:"config_type"   validate:"required"`
	Field        string     `json:"field"`                  // Contact field (or date field) the condition reads
	Options      []string   `json:"options,omitempty"`      // For select conditions
	DefaultValue any        `json:"default_value,omitempty"`
	Unit         string     `json:"unit,omitempty"` // Display unit for numeric conditions (days, years, ...)
	Max          int        `json:"max,omitempty"`  // Upper clamp for number_compare values, 0 means unbounded
}
