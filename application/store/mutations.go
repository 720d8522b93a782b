package store

import (
	"sitemap-sync/domain/core/entities"
	"sitemap-sync/domain/core/valueobjects"
	"sitemap-sync/pkg/errors"
)

// AddNode creates a node, under ParentID when set
func (s *Store) AddNode(in NodeInput) (entities.GraphNode, error) {
	var created entities.GraphNode
	err := s.mutate("add_node", func(tx *txn) error {
		id := in.ID
		if id == "" {
			id = valueobjects.NewNodeID()
		} else if err := valueobjects.ValidateNodeID(id); err != nil {
			return errors.NewValidationError(err.Error())
		} else if tx.graph.HasNode(id) {
			return errors.NewValidationError("node id already exists: " + id)
		}
		if err := s.validator.CheckParentExists(tx.graph, in.ParentID); err != nil {
			return err
		}
		slug := in.Slug
		if slug == "" {
			slug = valueobjects.GenerateSlug(in.Label)
		}
		if err := s.checkSlugLocked(tx.graph, in.ParentID, slug, ""); err != nil {
			return err
		}
		nodeType := in.Type
		if !nodeType.IsValid() {
			nodeType = entities.NodeTypePage
		}
		label := in.Label
		if label == "" {
			label = slug
		}

		created = entities.GraphNode{
			ID:       id,
			Type:     nodeType,
			Position: in.Position,
			Data: entities.NodeData{
				Label:         label,
				Slug:          slug,
				Components:    entities.CloneComponents(in.Components),
				Metadata:      entities.CloneMap(in.Metadata),
				HasContent:    in.ContentTypeID != "",
				ContentTypeID: in.ContentTypeID,
			},
		}
		tx.graph.Nodes = append(tx.graph.Nodes, created)
		if in.ParentID != "" {
			tx.graph.Edges = append(tx.graph.Edges, entities.NewEdge(in.ParentID, id))
		}
		return nil
	})
	if err != nil {
		return entities.GraphNode{}, err
	}
	node, _ := s.Graph().FindNode(created.ID)
	return node, nil
}

// UpdateNode applies the set fields of patch to a node. Slugs are never
// regenerated from a new label.
func (s *Store) UpdateNode(id string, patch entities.UpdatePayload) error {
	return s.mutate("update_node", func(tx *txn) error {
		idx, ok := tx.graph.NodeIndex()[id]
		if !ok {
			return errors.NewNodeNotFound(id)
		}
		node := &tx.graph.Nodes[idx]

		if patch.Slug != nil && *patch.Slug != node.Data.Slug {
			parent, _ := tx.graph.ParentOf(id)
			if err := s.checkSlugLocked(tx.graph, parent, *patch.Slug, id); err != nil {
				return err
			}
			node.Data.Slug = *patch.Slug
		}
		if patch.Label != nil {
			node.Data.Label = *patch.Label
		}
		if patch.Type != nil {
			if !patch.Type.IsValid() {
				return errors.NewValidationError("invalid node type: " + string(*patch.Type))
			}
			node.Type = *patch.Type
		}
		if patch.Components != nil {
			node.Data.Components = entities.CloneComponents(*patch.Components)
		}
		if patch.Metadata != nil {
			node.Data.Metadata = entities.CloneMap(*patch.Metadata)
		}
		if patch.ContentTypeID != nil {
			node.Data.ContentTypeID = *patch.ContentTypeID
			node.Data.HasContent = *patch.ContentTypeID != ""
		}
		if patch.HasContent != nil {
			node.Data.HasContent = *patch.HasContent
		}
		return nil
	})
}

// DeleteNodes removes nodes, every edge touching them and their selection.
// Descendants go too when CascadeDeletes is on; otherwise deleting a node
// that still has children fails with ORPHANED_NODE.
func (s *Store) DeleteNodes(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.mutate("delete_nodes", func(tx *txn) error {
		return s.removeNodesLocked(tx, ids)
	})
}

// MoveNode re-parents a node, "" meaning the root level
func (s *Store) MoveNode(id, newParentID string) error {
	return s.mutate("move_node", func(tx *txn) error {
		return s.reparentLocked(tx, id, newParentID)
	})
}

// Connect links source as the parent of target, replacing target's current
// parent. It is persisted as a MOVE.
func (s *Store) Connect(source, target string) error {
	return s.mutate("connect", func(tx *txn) error {
		if !tx.graph.HasNode(source) {
			return errors.NewNodeNotFound(source)
		}
		return s.reparentLocked(tx, target, source)
	})
}

// Disconnect removes an edge, turning its target into a root
func (s *Store) Disconnect(edgeID string) error {
	return s.mutate("disconnect", func(tx *txn) error {
		for _, e := range tx.graph.Edges {
			if e.ID == edgeID {
				return s.reparentLocked(tx, e.Target, "")
			}
		}
		return errors.NewNotFoundError("edge " + edgeID)
	})
}

// ApplyNodeChanges applies raw canvas events in order. Intermediate drag
// frames and selection changes never create history entries; a drag end
// or a removal does.
func (s *Store) ApplyNodeChanges(changes []NodeChange) error {
	if len(changes) == 0 {
		return nil
	}
	return s.mutate("node_changes", func(tx *txn) error {
		tx.history = historySkip
		var removed []string
		for _, ch := range changes {
			idx, ok := tx.graph.NodeIndex()[ch.ID]
			if !ok {
				return errors.NewNodeNotFound(ch.ID)
			}
			switch ch.Type {
			case NodeChangePosition:
				if ch.Position != nil {
					tx.graph.Nodes[idx].Position = *ch.Position
				}
				if !ch.Dragging {
					tx.history = historyAlways
				}
			case NodeChangeSelect:
				tx.selection = toggle(tx.selection, ch.ID, ch.Selected)
			case NodeChangeRemove:
				removed = append(removed, ch.ID)
			default:
				return errors.NewValidationError("unknown node change type: " + string(ch.Type))
			}
		}
		if len(removed) > 0 {
			tx.history = historyAlways
			return s.removeNodesLocked(tx, removed)
		}
		return nil
	})
}

// SetSelection replaces the selection. Unknown ids are ignored.
func (s *Store) SetSelection(ids []string) error {
	return s.mutate("select", func(tx *txn) error {
		tx.history = historySkip
		tx.selection = append([]string(nil), ids...)
		return nil
	})
}

func (s *Store) removeNodesLocked(tx *txn, ids []string) error {
	if err := s.validator.CheckDelete(tx.graph, ids, s.cfg.CascadeDeletes); err != nil {
		return err
	}
	removed := make(map[string]bool, len(ids))
	for _, id := range ids {
		removed[id] = true
		if s.cfg.CascadeDeletes {
			for _, d := range tx.graph.Descendants(id) {
				removed[d] = true
			}
		}
	}

	nodes := tx.graph.Nodes[:0:0]
	for _, n := range tx.graph.Nodes {
		if !removed[n.ID] {
			nodes = append(nodes, n)
		}
	}
	edges := tx.graph.Edges[:0:0]
	for _, e := range tx.graph.Edges {
		if !removed[e.Source] && !removed[e.Target] {
			edges = append(edges, e)
		}
	}
	selection := tx.selection[:0:0]
	for _, id := range tx.selection {
		if !removed[id] {
			selection = append(selection, id)
		}
	}
	tx.graph.Nodes, tx.graph.Edges, tx.selection = nodes, edges, selection
	return nil
}

// reparentLocked enforces the single incoming edge: any current parent edge
// of id is dropped before the new one is added
func (s *Store) reparentLocked(tx *txn, id, newParentID string) error {
	if err := s.validator.CheckMove(tx.graph, id, newParentID); err != nil {
		return err
	}
	if current, _ := tx.graph.ParentOf(id); current == newParentID {
		return nil
	}
	node, _ := tx.graph.FindNode(id)
	if err := s.checkSiblingLocked(tx.graph, newParentID, node.Data.Slug, id); err != nil {
		return err
	}

	edges := tx.graph.Edges[:0:0]
	for _, e := range tx.graph.Edges {
		if e.Target != id {
			edges = append(edges, e)
		}
	}
	if newParentID != "" {
		edges = append(edges, entities.NewEdge(newParentID, id))
	}
	tx.graph.Edges = edges
	return nil
}

func (s *Store) checkSlugLocked(g entities.Graph, parentID, slug, exceptID string) error {
	if err := s.validator.ValidateSlug(slug); err != nil {
		return err
	}
	return s.checkSiblingLocked(g, parentID, slug, exceptID)
}

func (s *Store) checkSiblingLocked(g entities.Graph, parentID, slug, exceptID string) error {
	if !s.cfg.ValidateSiblingSlugs {
		return nil
	}
	return s.validator.CheckSiblingSlug(g, parentID, slug, exceptID)
}

func toggle(selection []string, id string, on bool) []string {
	out := selection[:0:0]
	for _, cur := range selection {
		if cur != id {
			out = append(out, cur)
		}
	}
	if on {
		out = append(out, id)
	}
	return out
}
