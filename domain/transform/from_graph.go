package transform

import (
	"sitemap-sync/domain/core/entities"
	"sitemap-sync/domain/core/valueobjects"
)

// FromGraph diffs current against previous and returns the operations that
// turn previous into current, ordered DELETE, MOVE, UPDATE, CREATE.
// A nil previous means nothing has been persisted yet.
//
// Inside the groups: deletes run children first, creates and moves run
// parents first, updates follow the current node order.
func FromGraph(current entities.Graph, previous *entities.Graph) []entities.Operation {
	prev := entities.Graph{}
	if previous != nil {
		prev = *previous
	}

	curIdx := current.NodeIndex()
	prevIdx := prev.NodeIndex()
	curParents := current.ParentMap()
	prevParents := prev.ParentMap()

	var deletes, moves, updates, creates []entities.Operation

	// Children before parents so the backend never cascades under us.
	prevOrder := preOrder(prev)
	for i := len(prevOrder) - 1; i >= 0; i-- {
		id := prevOrder[i]
		if _, ok := curIdx[id]; !ok {
			deletes = append(deletes, entities.NewDeleteOperation(id))
		}
	}

	// Parents first in the new tree: every ancestor a move lands under is
	// already in its final place, so no intermediate state has a cycle.
	for _, id := range preOrder(current) {
		if _, existed := prevIdx[id]; !existed {
			continue
		}
		if curParents[id] != prevParents[id] {
			moves = append(moves, entities.NewMoveOperation(id, entities.StringPtr(curParents[id])))
		}
	}

	for _, node := range current.Nodes {
		pi, existed := prevIdx[node.ID]
		if !existed {
			continue
		}
		if delta := diffNode(prev.Nodes[pi], node); !delta.IsEmpty() {
			updates = append(updates, entities.NewUpdateOperation(node.ID, delta))
		}
	}

	for _, id := range preOrder(current) {
		if _, existed := prevIdx[id]; existed {
			continue
		}
		node := current.Nodes[curIdx[id]]
		creates = append(creates, entities.NewCreateOperation(id, createPayload(node, curParents[id])))
	}

	ops := make([]entities.Operation, 0, len(deletes)+len(moves)+len(updates)+len(creates))
	ops = append(ops, deletes...)
	ops = append(ops, moves...)
	ops = append(ops, updates...)
	ops = append(ops, creates...)
	return ops
}

func createPayload(node entities.GraphNode, parentID string) entities.CreatePayload {
	slug := node.Data.Slug
	if slug == "" {
		slug = valueobjects.GenerateSlug(node.Data.Label)
	}
	nodeType := node.Type
	if !nodeType.IsValid() {
		nodeType = entities.NodeTypeFolder
		if node.Data.ContentTypeID != "" {
			nodeType = entities.NodeTypePage
		}
	}
	return entities.CreatePayload{
		ParentID:      entities.StringPtr(parentID),
		Label:         node.Data.Label,
		Slug:          slug,
		Type:          nodeType,
		Components:    entities.CloneComponents(node.Data.Components),
		Metadata:      entities.CloneMap(node.Data.Metadata),
		ContentTypeID: node.Data.ContentTypeID,
	}
}

// diffNode compares the persisted fields by value. Derived fields (FullPath,
// ChildCount) and editor-only state (Position, Selected) are ignored.
func diffNode(before, after entities.GraphNode) entities.UpdatePayload {
	var p entities.UpdatePayload
	if before.Data.Label != after.Data.Label {
		label := after.Data.Label
		p.Label = &label
	}
	if before.Data.Slug != after.Data.Slug {
		slug := after.Data.Slug
		p.Slug = &slug
	}
	if before.Type != after.Type {
		t := after.Type
		p.Type = &t
	}
	if !entities.EqualComponents(before.Data.Components, after.Data.Components) {
		components := entities.CloneComponents(after.Data.Components)
		if components == nil {
			components = []entities.Component{}
		}
		p.Components = &components
	}
	if !entities.EqualMaps(before.Data.Metadata, after.Data.Metadata) {
		metadata := entities.CloneMap(after.Data.Metadata)
		if metadata == nil {
			metadata = map[string]interface{}{}
		}
		p.Metadata = &metadata
	}
	if before.Data.HasContent != after.Data.HasContent {
		hasContent := after.Data.HasContent
		p.HasContent = &hasContent
	}
	if before.Data.ContentTypeID != after.Data.ContentTypeID {
		contentTypeID := after.Data.ContentTypeID
		p.ContentTypeID = &contentTypeID
	}
	return p
}

// DeferDependentMoves relocates every MOVE whose new parent is created in the
// same list to just after that CREATE. FromGraph keeps the strict group order;
// callers apply this before handing a batch to a backend that resolves
// references operation by operation.
func DeferDependentMoves(ops []entities.Operation) []entities.Operation {
	created := make(map[string]bool)
	for _, op := range ops {
		if op.Type == entities.OperationCreate {
			created[op.NodeID] = true
		}
	}

	deferred := make(map[string][]entities.Operation)
	out := make([]entities.Operation, 0, len(ops))
	for _, op := range ops {
		if op.Type == entities.OperationMove && op.Move != nil && op.Move.NewParentID != nil && created[*op.Move.NewParentID] {
			parent := *op.Move.NewParentID
			deferred[parent] = append(deferred[parent], op)
			continue
		}
		out = append(out, op)
	}
	if len(deferred) == 0 {
		return out
	}

	result := make([]entities.Operation, 0, len(ops))
	for _, op := range out {
		result = append(result, op)
		if op.Type == entities.OperationCreate {
			result = append(result, deferred[op.NodeID]...)
		}
	}
	return result
}
