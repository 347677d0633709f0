package models

import "fmt"

// NodeDocument is the persisted, nested shape of a workflow node: the
// automation's serialized configuration stores the graph as a tree of these
// documents rather than the flat arena used in memory.
type NodeDocument struct {
	ID       string          `json:"id"`
	Type     NodeType        `json:"type"`
	Config   map[string]any  `json:"config,omitempty"`
	Branches *BranchDocument `json:"branches,omitempty"`
}

// BranchDocument holds the nested yes/no child trees of a condition node.
type BranchDocument struct {
	Yes []NodeDocument `json:"yes"`
	No  []NodeDocument `json:"no"`
}

// Documents renders the graph back into its nested persisted shape.
func (g *WorkflowGraph) Documents() []NodeDocument {
	return g.documentsFor(g.Roots)
}

func (g *WorkflowGraph) documentsFor(ids []string) []NodeDocument {
	docs := make([]NodeDocument, 0, len(ids))

	for _, id := range ids {
		node := g.Nodes[id]
		if node == nil {
			continue
		}

		doc := NodeDocument{
			ID:     node.ID,
			Type:   node.Type,
			Config: node.Config,
		}

		if node.Type.HasBranches() {
			doc.Branches = &BranchDocument{
				Yes: g.documentsFor(node.Yes),
				No:  g.documentsFor(node.No),
			}
		}

		docs = append(docs, doc)
	}

	return docs
}

// GraphFromDocuments builds the arena form from the nested persisted shape.
// The result is validated before it is returned.
func GraphFromDocuments(docs []NodeDocument) (*WorkflowGraph, error) {
	graph := NewWorkflowGraph()

	if err := graph.appendDocuments(docs, "", ""); err != nil {
		return nil, err
	}

	if err := graph.Validate(); err != nil {
		return nil, err
	}

	return graph, nil
}

func (g *WorkflowGraph) appendDocuments(docs []NodeDocument, parentID string, branch Branch) error {
	for _, doc := range docs {
		node := &WorkflowNode{
			ID:     doc.ID,
			Type:   doc.Type,
			Config: doc.Config,
		}

		if err := g.AppendNode(node, parentID, branch); err != nil {
			return fmt.Errorf("failed to load node %s: %w", doc.ID, err)
		}

		if doc.Branches != nil {
			if err := g.appendDocuments(doc.Branches.Yes, node.ID, BranchYes); err != nil {
				return err
			}

			if err := g.appendDocuments(doc.Branches.No, node.ID, BranchNo); err != nil {
				return err
			}
		}
	}

	return nil
}
