// Package engine advances enrollments through workflow graphs and runs the
// periodic refresh, verify and send ticks.
package engine

import (
	"fmt"

	"github.com/agencykit/automation/pkg/models"
)

// Advance moves an enrollment position one step forward: to the next sibling
// of the current node, or — when the current node closes its list — to the
// next sibling of the nearest ancestor with one. The second return reports
// that no ancestor remained and the enrollment is complete.
//
// The path holds node ids from the top-level list down to the current node,
// so ancestry is recoverable from the path alone.
func Advance(graph *models.WorkflowGraph, path []string) ([]string, bool) {
	current := make([]string, len(path))
	copy(current, path)

	for len(current) > 0 {
		last := len(current) - 1
		nodeID := current[last]

		node := graph.Node(nodeID)
		if node == nil {
			// A stale path (node deleted mid-flight) falls back to popping.
			current = current[:last]

			continue
		}

		siblings := graph.List(node.Parent, node.ParentBranch)

		next := ""

		for i, siblingID := range siblings {
			if siblingID == nodeID && i+1 < len(siblings) {
				next = siblings[i+1]

				break
			}
		}

		if next != "" {
			current[last] = next

			return current, false
		}

		current = current[:last]
	}

	return nil, true
}

// Descend enters a condition node's chosen branch. An empty branch is
// immediately exhausted and behaves like Advance on the condition node.
func Descend(graph *models.WorkflowGraph, path []string, branch models.Branch) ([]string, bool) {
	if len(path) == 0 {
		return nil, true
	}

	node := graph.Node(path[len(path)-1])
	if node == nil {
		return Advance(graph, path)
	}

	children := node.Yes
	if branch == models.BranchNo {
		children = node.No
	}

	if len(children) == 0 {
		return Advance(graph, path)
	}

	descended := make([]string, len(path), len(path)+1)
	copy(descended, path)

	return append(descended, children[0]), false
}

// EntryPath returns the starting position of a fresh enrollment: the first
// top-level node. The second return is false for an empty graph.
func EntryPath(graph *models.WorkflowGraph) ([]string, bool) {
	if len(graph.Roots) == 0 {
		return nil, false
	}

	return []string{graph.Roots[0]}, true
}

// evaluateCondition resolves a condition node's boolean: an engagement
// lookup for condition nodes, a field comparison for field_condition nodes.
func evaluateCondition(node *models.WorkflowNode, contact *models.Contact) (bool, error) {
	switch node.Type {
	case models.NodeTypeCondition:
		config, err := models.ParseConditionConfig(node.Config)
		if err != nil {
			return false, err
		}

		if config.Kind == models.ConditionKindEmailClicked {
			return contact.Clicked[config.NodeID], nil
		}

		return contact.Opened[config.NodeID], nil
	case models.NodeTypeFieldCondition:
		config, err := models.ParseFieldConditionConfig(node.Config)
		if err != nil {
			return false, err
		}

		return evaluateFieldCondition(config, contact), nil
	default:
		return false, fmt.Errorf("node %s (%s) is not a condition node", node.ID, node.Type)
	}
}

// evaluateFieldCondition mirrors the filter evaluator's select and
// number_compare shapes against a single contact field.
func evaluateFieldCondition(config models.FieldConditionConfig, contact *models.Contact) bool {
	value, ok := contact.Field(config.Field)
	if !ok {
		return false
	}

	switch config.Operator {
	case models.OperatorEquals, models.OperatorAtLeast, models.OperatorAtMost:
		actual, ok := toFloat(value)
		if !ok {
			return false
		}

		want, ok := toFloat(config.Value)
		if !ok {
			return false
		}

		switch config.Operator {
		case models.OperatorAtLeast:
			return actual >= want
		case models.OperatorAtMost:
			return actual <= want
		default:
			return actual == want
		}
	default:
		return fmt.Sprint(value) == fmt.Sprint(config.Value)
	}
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
