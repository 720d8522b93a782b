package transform

import (
	"sitemap-sync/domain/core/entities"
	"sitemap-sync/domain/core/valueobjects"
)

// RecomputeDerived returns a copy of g with FullPath and ChildCount rebuilt
// from the edges. Nodes that cannot be reached from a root keep their own
// slug as path.
func RecomputeDerived(g entities.Graph) entities.Graph {
	out := g.Clone()
	idx := out.NodeIndex()
	children := out.ChildrenMap()

	for i := range out.Nodes {
		out.Nodes[i].Data.ChildCount = len(children[out.Nodes[i].ID])
		out.Nodes[i].Data.FullPath = out.Nodes[i].Data.Slug
	}

	visited := make(map[string]bool, len(out.Nodes))
	var walk func(id, parentPath string)
	walk = func(id, parentPath string) {
		if visited[id] {
			return
		}
		visited[id] = true
		i, ok := idx[id]
		if !ok {
			return
		}
		path := valueobjects.JoinPath(parentPath, out.Nodes[i].Data.Slug)
		out.Nodes[i].Data.FullPath = path
		for _, c := range children[id] {
			walk(c, path)
		}
	}
	for _, root := range out.Roots() {
		walk(root, "")
	}
	return out
}

// ToTree nests a graph back into trees. Roots keep node order and children
// keep edge order. Nodes unreachable from any root are dropped.
func ToTree(g entities.Graph) []entities.TreeNode {
	byID := make(map[string]entities.GraphNode, len(g.Nodes))
	for _, n := range g.Nodes {
		byID[n.ID] = n
	}
	children := g.ChildrenMap()
	visited := make(map[string]bool, len(g.Nodes))

	var build func(id string) (entities.TreeNode, bool)
	build = func(id string) (entities.TreeNode, bool) {
		n, ok := byID[id]
		if !ok || visited[id] {
			return entities.TreeNode{}, false
		}
		visited[id] = true
		tree := entities.TreeNode{
			ID:            n.ID,
			Slug:          n.Data.Slug,
			Title:         n.Data.Label,
			FullPath:      n.Data.FullPath,
			Type:          n.Type,
			ContentTypeID: n.Data.ContentTypeID,
			Components:    entities.CloneComponents(n.Data.Components),
			Metadata:      entities.CloneMap(n.Data.Metadata),
		}
		for _, c := range children[id] {
			if child, ok := build(c); ok {
				tree.Children = append(tree.Children, child)
			}
		}
		return tree, true
	}

	var roots []entities.TreeNode
	for _, id := range g.Roots() {
		if tree, ok := build(id); ok {
			roots = append(roots, tree)
		}
	}
	return roots
}

// preOrder lists node ids parents-first, starting at the roots in node order.
// Nodes stuck in a cycle are appended last in node order.
func preOrder(g entities.Graph) []string {
	children := g.ChildrenMap()
	idx := g.NodeIndex()
	visited := make(map[string]bool, len(g.Nodes))
	order := make([]string, 0, len(g.Nodes))

	var walk func(string)
	walk = func(id string) {
		if _, ok := idx[id]; !ok || visited[id] {
			return
		}
		visited[id] = true
		order = append(order, id)
		for _, c := range children[id] {
			walk(c)
		}
	}
	for _, root := range g.Roots() {
		walk(root)
	}
	for _, n := range g.Nodes {
		if !visited[n.ID] {
			walk(n.ID)
		}
	}
	return order
}
