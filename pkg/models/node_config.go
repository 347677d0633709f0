package models

import (
	"errors"
	"fmt"
	"time"
)

// DelayUnit is the unit of a delay node's duration.
type DelayUnit string

const (
	DelayUnitHours DelayUnit = "hours"
	DelayUnitDays  DelayUnit = "days"
	DelayUnitWeeks DelayUnit = "weeks"
)

// DelayConfig is the typed config of a delay node.
type DelayConfig struct {
	Value int       `json:"value"`
	Unit  DelayUnit `json:"unit"`
}

// Duration converts the delay into a time.Duration.
func (d DelayConfig) Duration() time.Duration {
	switch d.Unit {
	case DelayUnitHours:
		return time.Duration(d.Value) * time.Hour
	case DelayUnitDays:
		return time.Duration(d.Value) * 24 * time.Hour
	case DelayUnitWeeks:
		return time.Duration(d.Value) * 7 * 24 * time.Hour
	default:
		return 0
	}
}

// ParseDelayConfig extracts a delay node's config from its raw config map.
func ParseDelayConfig(config map[string]any) (DelayConfig, error) {
	value, ok := configInt(config, "value")
	if !ok || value < 0 {
		return DelayConfig{}, errors.New("delay node requires a non-negative 'value'")
	}

	unit, _ := config["unit"].(string)
	switch DelayUnit(unit) {
	case DelayUnitHours, DelayUnitDays, DelayUnitWeeks:
	default:
		return DelayConfig{}, fmt.Errorf("delay node has unknown unit %q", unit)
	}

	return DelayConfig{Value: value, Unit: DelayUnit(unit)}, nil
}

// SendEmailConfig is the typed config of a send_email node.
type SendEmailConfig struct {
	TemplateID string `json:"template_id"`
	Subject    string `json:"subject"`
}

// ParseSendEmailConfig extracts a send_email node's config.
func ParseSendEmailConfig(config map[string]any) (SendEmailConfig, error) {
	templateID, _ := config["template_id"].(string)
	if templateID == "" {
		return SendEmailConfig{}, errors.New("send_email node requires 'template_id'")
	}

	subject, _ := config["subject"].(string)

	return SendEmailConfig{TemplateID: templateID, Subject: subject}, nil
}

// ConditionKind identifies what a condition node inspects.
type ConditionKind string

const (
	ConditionKindEmailOpened  ConditionKind = "email_opened"
	ConditionKindEmailClicked ConditionKind = "email_clicked"
)

// ConditionConfig is the typed config of a condition node: an engagement
// lookup against a previously sent email node.
type ConditionConfig struct {
	Kind   ConditionKind `json:"kind"`
	NodeID string        `json:"node_id"` // The send_email node whose engagement is checked
}

// ParseConditionConfig extracts a condition node's config.
func ParseConditionConfig(config map[string]any) (ConditionConfig, error) {
	kind, _ := config["kind"].(string)
	switch ConditionKind(kind) {
	case ConditionKindEmailOpened, ConditionKindEmailClicked:
	default:
		return ConditionConfig{}, fmt.Errorf("condition node has unknown kind %q", kind)
	}

	nodeID, _ := config["node_id"].(string)
	if nodeID == "" {
		return ConditionConfig{}, errors.New("condition node requires 'node_id'")
	}

	return ConditionConfig{Kind: ConditionKind(kind), NodeID: nodeID}, nil
}

// FieldConditionConfig is the typed config of a field_condition node. Its
// shape mirrors the select and number_compare filter evaluators.
type FieldConditionConfig struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator,omitempty"` // Empty means exact match
	Value    any      `json:"value"`
}

// ParseFieldConditionConfig extracts a field_condition node's config.
func ParseFieldConditionConfig(config map[string]any) (FieldConditionConfig, error) {
	field, _ := config["field"].(string)
	if field == "" {
		return FieldConditionConfig{}, errors.New("field_condition node requires 'field'")
	}

	operator, _ := config["operator"].(string)

	return FieldConditionConfig{
		Field:    field,
		Operator: Operator(operator),
		Value:    config["value"],
	}, nil
}

// UpdateFieldConfig is the typed config of an update_field node.
type UpdateFieldConfig struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// ParseUpdateFieldConfig extracts an update_field node's config.
func ParseUpdateFieldConfig(config map[string]any) (UpdateFieldConfig, error) {
	field, _ := config["field"].(string)
	if field == "" {
		return UpdateFieldConfig{}, errors.New("update_field node requires 'field'")
	}

	return UpdateFieldConfig{Field: field, Value: config["value"]}, nil
}

// configInt reads an integer config entry. JSON decoding hands numbers over
// as float64, so both forms are accepted.
func configInt(config map[string]any, key string) (int, bool) {
	switch v := config[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
