package models

import "errors"

var (
	// ErrNodeNotFound indicates a node id has no entry in the graph arena.
	ErrNodeNotFound = errors.New("workflow node not found")

	// ErrUnknownNodeType indicates a node type outside the closed variant set.
	ErrUnknownNodeType = errors.New("unknown workflow node type")

	// ErrUnknownConfigType indicates a condition config type outside the closed set.
	ErrUnknownConfigType = errors.New("unknown condition config type")

	// ErrInvalidPacing indicates a pacing config violating its invariants.
	ErrInvalidPacing = errors.New("invalid pacing configuration")

	// ErrInvalidReentry indicates a re-entry config violating its invariants.
	ErrInvalidReentry = errors.New("invalid re-entry configuration")

	// ErrInvalidDocument indicates an automation document that failed schema validation.
	ErrInvalidDocument = errors.New("invalid automation document")
)
