package entities

import "reflect"

// NodeType classifies a sitemap entry
type NodeType string

const (
	NodeTypePage   NodeType = "page"
	NodeTypeFolder NodeType = "folder"
)

// IsValid reports whether t is a known classification
func (t NodeType) IsValid() bool {
	return t == NodeTypePage || t == NodeTypeFolder
}

// Position is the editor canvas position. It is owned by the layout
// collaborator and never takes part in diffing.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Component is one entry of a page's ordered component list
type Component struct {
	ID    string                 `json:"id"`
	Type  string                 `json:"type"`
	Props map[string]interface{} `json:"props,omitempty"`
}

// NodeData is the editable payload of a node
type NodeData struct {
	Label string `json:"label"`
	Slug  string `json:"slug"`
	// FullPath is derived from the parent chain and never read from storage.
	FullPath      string                 `json:"fullPath"`
	Components    []Component            `json:"components,omitempty"`
	ChildCount    int                    `json:"childCount"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	HasContent    bool                   `json:"hasContent"`
	ContentTypeID string                 `json:"contentTypeId,omitempty"`
}

// GraphNode is the editable representation of one sitemap entry
type GraphNode struct {
	ID       string   `json:"id"`
	Type     NodeType `json:"type"`
	Position Position `json:"position"`
	Selected bool     `json:"selected,omitempty"`
	Data     NodeData `json:"data"`
}

// Clone returns a deep copy so callers never share maps or slices with the store
func (n GraphNode) Clone() GraphNode {
	out := n
	out.Data.Components = CloneComponents(n.Data.Components)
	out.Data.Metadata = CloneMap(n.Data.Metadata)
	return out
}

// CloneComponents deep-copies an ordered component list
func CloneComponents(in []Component) []Component {
	if in == nil {
		return nil
	}
	out := make([]Component, len(in))
	for i, c := range in {
		out[i] = Component{ID: c.ID, Type: c.Type, Props: CloneMap(c.Props)}
	}
	return out
}

// CloneMap deep-copies a JSON-like map
func CloneMap(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return CloneMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return val
	}
}

// EqualMaps compares two JSON-like maps by value. Nil and empty are equal.
func EqualMaps(a, b map[string]interface{}) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

// EqualComponents compares two ordered component lists by value
func EqualComponents(a, b []Component) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Type != b[i].Type || !EqualMaps(a[i].Props, b[i].Props) {
			return false
		}
	}
	return true
}
