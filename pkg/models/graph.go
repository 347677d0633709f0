package models

import (
	"fmt"

	"github.com/google/uuid"
)

// NodeType is the tagged variant of a workflow node.
type NodeType string

const (
	NodeTypeTrigger        NodeType = "trigger"
	NodeTypeEntryCriteria  NodeType = "entry_criteria"
	NodeTypeSendEmail      NodeType = "send_email"
	NodeTypeDelay          NodeType = "delay"
	NodeTypeCondition      NodeType = "condition"
	NodeTypeFieldCondition NodeType = "field_condition"
	NodeTypeUpdateField    NodeType = "update_field"
	NodeTypeEnd            NodeType = "end"
)

// IsValid reports whether the node type is one of the known variants.
func (t NodeType) IsValid() bool {
	switch t {
	case NodeTypeTrigger, NodeTypeEntryCriteria, NodeTypeSendEmail, NodeTypeDelay,
		NodeTypeCondition, NodeTypeFieldCondition, NodeTypeUpdateField, NodeTypeEnd:
		return true
	default:
		return false
	}
}

// HasBranches reports whether nodes of this type own yes/no child lists.
func (t NodeType) HasBranches() bool {
	return t == NodeTypeCondition || t == NodeTypeFieldCondition
}

// IsProtected reports whether nodes of this type are structurally pinned and
// cannot be deleted.
func (t NodeType) IsProtected() bool {
	return t == NodeTypeTrigger || t == NodeTypeEntryCriteria
}

// Branch names one of the two ordered child lists of a condition node.
type Branch string

const (
	BranchYes Branch = "yes"
	BranchNo  Branch = "no"
)

// WorkflowNode is one node of an automation's workflow graph. Nodes live in a
// flat arena keyed by id; parent and child-list membership are id references,
// so structural edits are table operations rather than recursive rewrites.
type WorkflowNode struct {
	ID           string         `json:"id"`
	Type         NodeType       `json:"type"   validate:"required"`
	Config       map[string]any `json:"config,omitempty"`
	Parent       string         `json:"parent,omitempty"`        // Empty for top-level nodes
	ParentBranch Branch         `json:"parent_branch,omitempty"` // Branch of the parent holding this node
	Yes          []string       `json:"yes,omitempty"`           // Child ids, condition nodes only
	No           []string       `json:"no,omitempty"`            // Child ids, condition nodes only
}

// WorkflowGraph is a rooted ordered forest of workflow nodes stored as an
// arena. Roots holds the top-level execution order.
type WorkflowGraph struct {
	Roots []string                 `json:"roots"`
	Nodes map[string]*WorkflowNode `json:"nodes"`
}

// NewWorkflowGraph returns an empty graph.
func NewWorkflowGraph() *WorkflowGraph {
	return &WorkflowGraph{
		Roots: make([]string, 0),
		Nodes: make(map[string]*WorkflowNode),
	}
}

// Node returns the node with the given id, or nil.
func (g *WorkflowGraph) Node(id string) *WorkflowNode {
	return g.Nodes[id]
}

// List returns the ordered child list identified by parent id and branch.
// An empty parent id addresses the top-level list.
func (g *WorkflowGraph) List(parentID string, branch Branch) []string {
	if parentID == "" {
		return g.Roots
	}

	parent := g.Nodes[parentID]
	if parent == nil {
		return nil
	}

	if branch == BranchNo {
		return parent.No
	}

	return parent.Yes
}

// AppendNode adds a node to the end of the addressed list. A missing id is
// generated. Appending under a parent that does not carry branches is an
// error.
func (g *WorkflowGraph) AppendNode(node *WorkflowNode, parentID string, branch Branch) error {
	if !node.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownNodeType, node.Type)
	}

	if node.ID == "" {
		node.ID = "node-" + uuid.New().String()[:8]
	}

	if _, exists := g.Nodes[node.ID]; exists {
		return fmt.Errorf("node %s already exists in graph", node.ID)
	}

	node.Parent = parentID
	node.ParentBranch = ""

	if parentID == "" {
		g.Roots = append(g.Roots, node.ID)
		g.Nodes[node.ID] = node

		return nil
	}

	parent := g.Nodes[parentID]
	if parent == nil {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, parentID)
	}

	if !parent.Type.HasBranches() {
		return fmt.Errorf("node %s (%s) cannot hold children", parentID, parent.Type)
	}

	node.ParentBranch = branch
	if branch == BranchNo {
		parent.No = append(parent.No, node.ID)
	} else {
		node.ParentBranch = BranchYes
		parent.Yes = append(parent.Yes, node.ID)
	}

	g.Nodes[node.ID] = node

	return nil
}

// UpdateConfig replaces a node's config wholesale. Partial nested mutation is
// deliberately not supported.
func (g *WorkflowGraph) UpdateConfig(id string, config map[string]any) error {
	node := g.Nodes[id]
	if node == nil {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	node.Config = config

	return nil
}

// DeleteNode removes a node and its subtree from the graph. Trigger and
// entry-criteria nodes are protected: deleting them is a no-op. The return
// value reports whether anything was removed.
func (g *WorkflowGraph) DeleteNode(id string) bool {
	node := g.Nodes[id]
	if node == nil || node.Type.IsProtected() {
		return false
	}

	if node.Parent == "" {
		g.Roots = removeID(g.Roots, id)
	} else if parent := g.Nodes[node.Parent]; parent != nil {
		if node.ParentBranch == BranchNo {
			parent.No = removeID(parent.No, id)
		} else {
			parent.Yes = removeID(parent.Yes, id)
		}
	}

	g.deleteSubtree(id)

	return true
}

func (g *WorkflowGraph) deleteSubtree(id string) {
	node := g.Nodes[id]
	if node == nil {
		return
	}

	for _, child := range node.Yes {
		g.deleteSubtree(child)
	}

	for _, child := range node.No {
		g.deleteSubtree(child)
	}

	delete(g.Nodes, id)
}

func removeID(ids []string, id string) []string {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}

	return ids
}

// Validate checks structural invariants: referenced nodes exist, parent
// references are consistent, and protected node types sit at the head of the
// top-level list.
func (g *WorkflowGraph) Validate() error {
	for _, id := range g.Roots {
		node := g.Nodes[id]
		if node == nil {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
		}

		if node.Parent != "" {
			return fmt.Errorf("top-level node %s carries parent reference %s", id, node.Parent)
		}
	}

	seenRegular := false

	for _, id := range g.Roots {
		node := g.Nodes[id]
		if node.Type.IsProtected() {
			if seenRegular {
				return fmt.Errorf("%s node %s must precede all other top-level nodes", node.Type, id)
			}

			continue
		}

		seenRegular = true
	}

	for id, node := range g.Nodes {
		if node.ID != id {
			return fmt.Errorf("node key %s does not match node id %s", id, node.ID)
		}

		if !node.Type.IsValid() {
			return fmt.Errorf("%w: %q", ErrUnknownNodeType, node.Type)
		}

		if len(node.Yes) > 0 || len(node.No) > 0 {
			if !node.Type.HasBranches() {
				return fmt.Errorf("node %s (%s) carries branches", id, node.Type)
			}
		}

		for _, branch := range []Branch{BranchYes, BranchNo} {
			children := node.Yes
			if branch == BranchNo {
				children = node.No
			}

			for _, childID := range children {
				child := g.Nodes[childID]
				if child == nil {
					return fmt.Errorf("%w: %s referenced by %s", ErrNodeNotFound, childID, id)
				}

				if child.Parent != id || child.ParentBranch != branch {
					return fmt.Errorf("node %s parent reference is inconsistent", childID)
				}
			}
		}
	}

	return nil
}
