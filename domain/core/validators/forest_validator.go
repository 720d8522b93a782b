package validators

import (
	"sitemap-sync/domain/core/entities"
	"sitemap-sync/domain/core/valueobjects"
	"sitemap-sync/pkg/errors"
)

// ForestValidator validates the structural rules of a sitemap graph:
// a forest where each node has at most one parent and no node is its own ancestor
type ForestValidator struct {
	maxSlugLength int
}

// NewForestValidator creates a validator. maxSlugLength <= 0 uses the default.
func NewForestValidator(maxSlugLength int) *ForestValidator {
	if maxSlugLength <= 0 {
		maxSlugLength = valueobjects.DefaultMaxSlugLength
	}
	return &ForestValidator{maxSlugLength: maxSlugLength}
}

// ValidateSlug checks the slug grammar
func (v *ForestValidator) ValidateSlug(slug string) error {
	return valueobjects.ValidateSlug(slug, v.maxSlugLength)
}

// CheckSiblingSlug fails with DUPLICATE_SLUG when another child of parentID
// ("" for the root level) already uses slug. exceptID is ignored.
func (v *ForestValidator) CheckSiblingSlug(g entities.Graph, parentID, slug, exceptID string) error {
	parents := g.ParentMap()
	for _, n := range g.Nodes {
		if n.ID == exceptID || n.Data.Slug != slug {
			continue
		}
		if parents[n.ID] == parentID {
			return errors.NewDuplicateSlug(parentID, slug)
		}
	}
	return nil
}

// CheckParentExists fails with NODE_NOT_FOUND when parentID is set and unknown
func (v *ForestValidator) CheckParentExists(g entities.Graph, parentID string) error {
	if parentID != "" && !g.HasNode(parentID) {
		return errors.NewNodeNotFound(parentID)
	}
	return nil
}

// CheckMove validates re-parenting nodeID under newParentID ("" for root)
func (v *ForestValidator) CheckMove(g entities.Graph, nodeID, newParentID string) error {
	if !g.HasNode(nodeID) {
		return errors.NewNodeNotFound(nodeID)
	}
	if newParentID == "" {
		return nil
	}
	if !g.HasNode(newParentID) {
		return errors.NewNodeNotFound(newParentID)
	}
	if newParentID == nodeID || g.IsAncestor(nodeID, newParentID) {
		return errors.NewCircularReference(nodeID, newParentID)
	}
	return nil
}

// CheckDelete validates removing ids. Without cascade, any surviving child of a
// removed node would be disconnected from its subtree.
func (v *ForestValidator) CheckDelete(g entities.Graph, ids []string, cascade bool) error {
	removed := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !g.HasNode(id) {
			return errors.NewNodeNotFound(id)
		}
		removed[id] = true
	}
	if cascade {
		return nil
	}
	children := g.ChildrenMap()
	for _, id := range ids {
		var survivors []string
		for _, c := range children[id] {
			if !removed[c] {
				survivors = append(survivors, c)
			}
		}
		if len(survivors) > 0 {
			return errors.NewOrphanedNode(id, survivors)
		}
	}
	return nil
}

// ValidateForest returns the first structural violation in g
func (v *ForestValidator) ValidateForest(g entities.Graph) error {
	ids := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if ids[n.ID] {
			return errors.NewDuplicateNodeID(n.ID)
		}
		ids[n.ID] = true
	}

	incoming := make(map[string]string, len(g.Edges))
	for _, e := range g.Edges {
		if !ids[e.Source] {
			return errors.NewNodeNotFound(e.Source).WithDetail("edge_id", e.ID)
		}
		if !ids[e.Target] {
			return errors.NewNodeNotFound(e.Target).WithDetail("edge_id", e.ID)
		}
		if prev, ok := incoming[e.Target]; ok && prev != e.Source {
			return errors.NewOrphanedNode(e.Target, nil).
				WithDetail("reason", "node has more than one parent")
		}
		incoming[e.Target] = e.Source
	}

	for _, n := range g.Nodes {
		if g.IsAncestor(n.ID, n.ID) {
			return errors.NewCircularReference(n.ID, incoming[n.ID])
		}
	}
	return nil
}
