package entities

// GraphEdge links a parent to one of its children
type GraphEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// EdgeID derives the stable edge identifier for a parent/child pair
func EdgeID(source, target string) string {
	return "e-" + source + "-" + target
}

// NewEdge creates the edge for a parent/child pair
func NewEdge(source, target string) GraphEdge {
	return GraphEdge{ID: EdgeID(source, target), Source: source, Target: target}
}

// Graph is a flat node/edge view of one or more sitemap trees
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// Clone returns a deep copy of the graph
func (g Graph) Clone() Graph {
	out := Graph{
		Nodes: make([]GraphNode, len(g.Nodes)),
		Edges: make([]GraphEdge, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		out.Nodes[i] = n.Clone()
	}
	copy(out.Edges, g.Edges)
	return out
}

// IsEmpty reports whether the graph has no nodes
func (g Graph) IsEmpty() bool {
	return len(g.Nodes) == 0
}

// NodeIndex maps node IDs to their slice position
func (g Graph) NodeIndex() map[string]int {
	idx := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		idx[n.ID] = i
	}
	return idx
}

// FindNode returns a copy of the node with the given id
func (g Graph) FindNode(id string) (GraphNode, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n.Clone(), true
		}
	}
	return GraphNode{}, false
}

// HasNode reports whether a node with the given id exists
func (g Graph) HasNode(id string) bool {
	for _, n := range g.Nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}

// ParentMap maps each child id to its parent id. When a node has several
// incoming edges the first one wins.
func (g Graph) ParentMap() map[string]string {
	parents := make(map[string]string, len(g.Edges))
	for _, e := range g.Edges {
		if _, seen := parents[e.Target]; !seen {
			parents[e.Target] = e.Source
		}
	}
	return parents
}

// ParentOf returns the parent id of a node, or false for a root
func (g Graph) ParentOf(id string) (string, bool) {
	for _, e := range g.Edges {
		if e.Target == id {
			return e.Source, true
		}
	}
	return "", false
}

// ChildrenMap maps each parent id to its children, in edge order
func (g Graph) ChildrenMap() map[string][]string {
	children := make(map[string][]string)
	for _, e := range g.Edges {
		children[e.Source] = append(children[e.Source], e.Target)
	}
	return children
}

// Roots returns the ids of nodes without a parent, in node order
func (g Graph) Roots() []string {
	parents := g.ParentMap()
	var roots []string
	for _, n := range g.Nodes {
		if _, ok := parents[n.ID]; !ok {
			roots = append(roots, n.ID)
		}
	}
	return roots
}

// Descendants returns every node below id, depth first
func (g Graph) Descendants(id string) []string {
	children := g.ChildrenMap()
	var out []string
	var walk func(string)
	walk = func(cur string) {
		for _, c := range children[cur] {
			out = append(out, c)
			walk(c)
		}
	}
	walk(id)
	return out
}

// IsAncestor reports whether ancestor appears on the parent chain of id
func (g Graph) IsAncestor(ancestor, id string) bool {
	parents := g.ParentMap()
	seen := make(map[string]bool)
	for cur, ok := parents[id]; ok; cur, ok = parents[cur] {
		if cur == ancestor {
			return true
		}
		if seen[cur] {
			return false
		}
		seen[cur] = true
	}
	return false
}
