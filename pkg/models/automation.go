package models

import (
	"fmt"
	"time"
)

// AutomationStatus represents the lifecycle state of an automation.
type AutomationStatus string

const (
	AutomationStatusDraft  AutomationStatus = "draft"  // Editable, not picked up by ticks
	AutomationStatusActive AutomationStatus = "active" // Enrolling and advancing contacts
	AutomationStatusPaused AutomationStatus = "paused" // Enrollments frozen until resumed
)

// IsValid reports whether the status is one of the known states.
func (s AutomationStatus) IsValid() bool {
	switch s {
	case AutomationStatusDraft, AutomationStatusActive, AutomationStatusPaused:
		return true
	default:
		return false
	}
}

// ReentryType selects the re-entry policy of an automation.
type ReentryType string

const (
	ReentryNever     ReentryType = "never"
	ReentryAfterDays ReentryType = "after_days"
)

// ReentryConfig governs whether a contact who already went through an
// automation may enter it again. Updates replace the whole value and are
// validated before acceptance.
type ReentryConfig struct {
	Enabled bool        `json:"enabled"`
	Type    ReentryType `json:"type,omitempty"`
	Days    int         `json:"days,omitempty"`
}

// Validate checks the re-entry invariants.
func (r ReentryConfig) Validate() error {
	if !r.Enabled {
		return nil
	}

	switch r.Type {
	case ReentryNever:
		return nil
	case ReentryAfterDays:
		if r.Days < 1 {
			return fmt.Errorf("%w: after_days requires days >= 1, got %d", ErrInvalidReentry, r.Days)
		}

		return nil
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidReentry, r.Type)
	}
}

// Weekday is a lowercase three-letter weekday name as stored in automation
// documents.
type Weekday string

const (
	WeekdaySun Weekday = "sun"
	WeekdayMon Weekday = "mon"
	WeekdayTue Weekday = "tue"
	WeekdayWed Weekday = "wed"
	WeekdayThu Weekday = "thu"
	WeekdayFri Weekday = "fri"
	WeekdaySat Weekday = "sat"
)

var weekdayByName = map[Weekday]time.Weekday{
	WeekdaySun: time.Sunday,
	WeekdayMon: time.Monday,
	WeekdayTue: time.Tuesday,
	WeekdayWed: time.Wednesday,
	WeekdayThu: time.Thursday,
	WeekdayFri: time.Friday,
	WeekdaySat: time.Saturday,
}

// TimeWeekday maps the document form onto time.Weekday.
func (w Weekday) TimeWeekday() (time.Weekday, bool) {
	weekday, ok := weekdayByName[w]

	return weekday, ok
}

// PacingConfig spreads a batch of new enrollments across future calendar
// days instead of sending all at once. Updates replace the whole value and
// are validated before acceptance.
type PacingConfig struct {
	Enabled        bool      `json:"enabled"`
	SpreadOverDays int       `json:"spread_over_days,omitempty"`
	AllowedDays    []Weekday `json:"allowed_days,omitempty"`
}

// Validate checks the pacing invariants.
func (p PacingConfig) Validate() error {
	if !p.Enabled {
		return nil
	}

	if p.SpreadOverDays < 1 {
		return fmt.Errorf("%w: spread_over_days must be >= 1, got %d", ErrInvalidPacing, p.SpreadOverDays)
	}

	for _, day := range p.AllowedDays {
		if _, ok := day.TimeWeekday(); !ok {
			return fmt.Errorf("%w: unknown weekday %q", ErrInvalidPacing, day)
		}
	}

	return nil
}

// AllowsWeekday reports whether the given weekday is in the whitelist.
func (p PacingConfig) AllowsWeekday(weekday time.Weekday) bool {
	for _, day := range p.AllowedDays {
		if mapped, ok := day.TimeWeekday(); ok && mapped == weekday {
			return true
		}
	}

	return false
}

// Automation pairs an audience filter with a workflow graph: who enters and
// what happens to them over time.
type Automation struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"   validate:"required,min=3"`
	Status    AutomationStatus `json:"status" validate:"required"`
	Filter    FilterConfig     `json:"filter"`
	Timing    TimingWindow     `json:"timing"`
	Nodes     []NodeDocument   `json:"nodes"` // Persisted nested form of the graph
	Reentry   ReentryConfig    `json:"reentry"`
	Pacing    PacingConfig     `json:"pacing"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Graph builds the arena form of the automation's workflow tree.
func (a *Automation) Graph() (*WorkflowGraph, error) {
	return GraphFromDocuments(a.Nodes)
}

// IsEnrollable reports whether refresh may enroll contacts: the automation
// must be active and carry at least one filter group. An automation with no
// groups enrolls nobody.
func (a *Automation) IsEnrollable() bool {
	return a.Status == AutomationStatusActive && len(a.Filter.Groups) > 0
}
