package models

import "time"

// Contact is the read model one evaluation pass sees: resolved field values,
// date fields (policy renewals, last activity timestamps) and per-node email
// engagement. The owning platform assembles it; the engine only reads it,
// except for update_field nodes which write through Fields.
type Contact struct {
	ID     string         `json:"id" validate:"required"`
	Fields map[string]any `json:"fields,omitempty"`

	// Dates carries date-typed fields and last-event timestamps, keyed by
	// the condition definition's field name (e.g. "policy_renewal_date",
	// "last_email_received_at").
	Dates map[string]time.Time `json:"dates,omitempty"`

	// Opened and Clicked record email engagement keyed by the send_email
	// node id that produced the message.
	Opened  map[string]bool `json:"opened,omitempty"`
	Clicked map[string]bool `json:"clicked,omitempty"`
}

// Field resolves a plain field value. The second return reports presence.
func (c *Contact) Field(name string) (any, bool) {
	value, ok := c.Fields[name]

	return value, ok
}

// Date resolves a date field. The second return reports presence.
func (c *Contact) Date(name string) (time.Time, bool) {
	value, ok := c.Dates[name]

	return value, ok
}

// SetField writes a field value, allocating the map on first use.
func (c *Contact) SetField(name string, value any) {
	if c.Fields == nil {
		c.Fields = make(map[string]any)
	}

	c.Fields[name] = value
}
