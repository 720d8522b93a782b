// Package transform converts between the persisted sitemap tree and the
// editable node/edge graph, and diffs two graphs into pending operations.
// Every function here is pure: inputs are never modified and results share no
// maps or slices with them.
package transform

import (
	"sitemap-sync/domain/core/entities"
	"sitemap-sync/domain/core/valueobjects"
)

// Diagnostic describes a tree node that was skipped during conversion
type Diagnostic struct {
	NodeID             string `json:"nodeId,omitempty"`
	ParentPath         string `json:"parentPath"`
	Reason             string `json:"reason"`
	SkippedDescendants int    `json:"skippedDescendants"`
}

// ToGraph flattens one or more trees into a graph using a pre-order walk.
// FullPath is always rebuilt from the walk; any stored value is ignored.
// A node without id or slug is skipped together with its subtree and reported.
func ToGraph(roots ...entities.TreeNode) (entities.Graph, []Diagnostic) {
	b := &graphBuilder{seen: make(map[string]bool)}
	for _, root := range roots {
		b.walk(root, "", "")
	}
	if b.graph.Nodes == nil {
		b.graph.Nodes = []entities.GraphNode{}
	}
	if b.graph.Edges == nil {
		b.graph.Edges = []entities.GraphEdge{}
	}
	return b.graph, b.diagnostics
}

type graphBuilder struct {
	graph       entities.Graph
	diagnostics []Diagnostic
	seen        map[string]bool
}

// walk appends node and its subtree and reports whether node was kept
func (b *graphBuilder) walk(node entities.TreeNode, parentID, parentPath string) bool {
	reason := ""
	switch {
	case node.ID == "":
		reason = "missing id"
	case node.Slug == "":
		reason = "missing slug"
	case b.seen[node.ID]:
		reason = "duplicate id"
	}
	if reason != "" {
		b.diagnostics = append(b.diagnostics, Diagnostic{
			NodeID:             node.ID,
			ParentPath:         parentPath,
			Reason:             reason,
			SkippedDescendants: countDescendants(node),
		})
		return false
	}
	b.seen[node.ID] = true

	fullPath := valueobjects.JoinPath(parentPath, node.Slug)
	label := node.Title
	if label == "" {
		label = node.Slug
	}

	idx := len(b.graph.Nodes)
	b.graph.Nodes = append(b.graph.Nodes, entities.GraphNode{
		ID:   node.ID,
		Type: classify(node),
		Data: entities.NodeData{
			Label:         label,
			Slug:          node.Slug,
			FullPath:      fullPath,
			Components:    entities.CloneComponents(node.Components),
			Metadata:      entities.CloneMap(node.Metadata),
			HasContent:    node.ContentTypeID != "",
			ContentTypeID: node.ContentTypeID,
		},
	})
	if parentID != "" {
		b.graph.Edges = append(b.graph.Edges, entities.NewEdge(parentID, node.ID))
	}

	kept := 0
	for _, child := range node.Children {
		if b.walk(child, node.ID, fullPath) {
			kept++
		}
	}
	b.graph.Nodes[idx].Data.ChildCount = kept
	return true
}

// classify honours an explicit type, else a content reference makes a page
func classify(node entities.TreeNode) entities.NodeType {
	if node.Type.IsValid() {
		return node.Type
	}
	if node.ContentTypeID != "" {
		return entities.NodeTypePage
	}
	return entities.NodeTypeFolder
}

func countDescendants(node entities.TreeNode) int {
	n := 0
	for _, c := range node.Children {
		n += 1 + countDescendants(c)
	}
	return n
}
