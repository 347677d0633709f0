package models

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// automationSchema is the JSON Schema every stored automation document must
// satisfy before the engine accepts it. It guards structure only; semantic
// checks (graph consistency, pacing bounds) run afterwards on the decoded
// model.
const automationSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["id", "name", "status", "filter", "nodes"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"name": {"type": "string", "minLength": 3},
		"status": {"enum": ["draft", "active", "paused"]},
		"filter": {
			"type": "object",
			"required": ["groups", "group_logic"],
			"properties": {
				"group_logic": {"enum": ["AND", "OR"]},
				"groups": {
					"type": "array",
					"items": {
						"type": "object",
						"required": ["logic"],
						"properties": {
							"logic": {"enum": ["AND", "OR"]},
							"rules": {"type": "array"}
						}
					}
				}
			}
		},
		"timing": {
			"type": "object",
			"properties": {
				"min_days": {"type": "integer"},
				"max_days": {"type": "integer"}
			}
		},
		"nodes": {
			"type": "array",
			"items": {"$ref": "#/definitions/node"}
		},
		"reentry": {
			"type": "object",
			"properties": {
				"enabled": {"type": "boolean"},
				"type": {"enum": ["never", "after_days"]},
				"days": {"type": "integer", "minimum": 1}
			}
		},
		"pacing": {
			"type": "object",
			"properties": {
				"enabled": {"type": "boolean"},
				"spread_over_days": {"type": "integer", "minimum": 1},
				"allowed_days": {
					"type": "array",
					"items": {"enum": ["sun", "mon", "tue", "wed", "thu", "fri", "sat"]}
				}
			}
		}
	},
	"definitions": {
		"node": {
			"type": "object",
			"required": ["type"],
			"properties": {
				"id": {"type": "string"},
				"type": {
					"enum": [
						"trigger", "entry_criteria", "send_email", "delay",
						"condition", "field_condition", "update_field", "end"
					]
				},
				"config": {"type": "object"},
				"branches": {
					"type": "object",
					"properties": {
						"yes": {"type": "array", "items": {"$ref": "#/definitions/node"}},
						"no": {"type": "array", "items": {"$ref": "#/definitions/node"}}
					}
				}
			}
		}
	}
}`

// ValidateAutomationDocument checks a raw automation document against the
// schema and returns ErrInvalidDocument with the collected violations.
func ValidateAutomationDocument(raw []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(automationSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return fmt.Errorf("failed to run schema validation: %w", err)
	}

	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, violation := range result.Errors() {
		details = append(details, violation.String())
	}

	return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(details, "; "))
}
