package entities

// TreeNode is the persisted, nested form of a sitemap entry
type TreeNode struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
	// FullPath may be present in stored data but is never trusted.
	FullPath      string                 `json:"fullPath,omitempty"`
	Type          NodeType               `json:"type,omitempty"`
	ContentTypeID string                 `json:"contentTypeId,omitempty"`
	Components    []Component            `json:"components,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Children      []TreeNode             `json:"children,omitempty"`
}
