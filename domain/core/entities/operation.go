package entities

import (
	"github.com/google/uuid"
)

// OperationType identifies the kind of pending change
type OperationType string

const (
	OperationDelete OperationType = "DELETE"
	OperationMove   OperationType = "MOVE"
	OperationUpdate OperationType = "UPDATE"
	OperationCreate OperationType = "CREATE"
)

// Precedence is the batch position of an operation type: deletes first so
// nothing touches a doomed node, creates last so parents already exist.
func (t OperationType) Precedence() int {
	switch t {
	case OperationDelete:
		return 0
	case OperationMove:
		return 1
	case OperationUpdate:
		return 2
	case OperationCreate:
		return 3
	default:
		return 4
	}
}

// CreatePayload carries the fields of a new node
type CreatePayload struct {
	ParentID      *string                `json:"parentId"`
	Label         string                 `json:"label"`
	Slug          string                 `json:"slug"`
	Type          NodeType               `json:"type"`
	Components    []Component            `json:"components,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	ContentTypeID string                 `json:"contentTypeId,omitempty"`
}

// UpdatePayload carries only the fields that changed. Nil means unchanged.
type UpdatePayload struct {
	Label         *string                 `json:"label,omitempty"`
	Slug          *string                 `json:"slug,omitempty"`
	Type          *NodeType               `json:"type,omitempty"`
	Components    *[]Component            `json:"components,omitempty"`
	Metadata      *map[string]interface{} `json:"metadata,omitempty"`
	HasContent    *bool                   `json:"hasContent,omitempty"`
	ContentTypeID *string                 `json:"contentTypeId,omitempty"`
}

// IsEmpty reports whether no field changed
func (p UpdatePayload) IsEmpty() bool {
	return len(p.ChangedFields()) == 0
}

// ChangedFields lists the names of the changed fields
func (p UpdatePayload) ChangedFields() []string {
	var fields []string
	if p.Label != nil {
		fields = append(fields, "label")
	}
	if p.Slug != nil {
		fields = append(fields, "slug")
	}
	if p.Type != nil {
		fields = append(fields, "type")
	}
	if p.Components != nil {
		fields = append(fields, "components")
	}
	if p.Metadata != nil {
		fields = append(fields, "metadata")
	}
	if p.HasContent != nil {
		fields = append(fields, "hasContent")
	}
	if p.ContentTypeID != nil {
		fields = append(fields, "contentTypeId")
	}
	return fields
}

// MovePayload carries the new parent. Nil means the node becomes a root.
type MovePayload struct {
	NewParentID *string `json:"newParentId"`
}

// Operation is a client intent awaiting persistence. ID is generated on the
// client so the backend can recognise a resent operation.
type Operation struct {
	ID     string         `json:"id"`
	Type   OperationType  `json:"type"`
	NodeID string         `json:"nodeId"`
	Create *CreatePayload `json:"create,omitempty"`
	Update *UpdatePayload `json:"update,omitempty"`
	Move   *MovePayload   `json:"move,omitempty"`
}

// NewCreateOperation creates a CREATE operation
func NewCreateOperation(nodeID string, payload CreatePayload) Operation {
	return Operation{ID: uuid.NewString(), Type: OperationCreate, NodeID: nodeID, Create: &payload}
}

// NewUpdateOperation creates an UPDATE operation
func NewUpdateOperation(nodeID string, payload UpdatePayload) Operation {
	return Operation{ID: uuid.NewString(), Type: OperationUpdate, NodeID: nodeID, Update: &payload}
}

// NewDeleteOperation creates a DELETE operation
func NewDeleteOperation(nodeID string) Operation {
	return Operation{ID: uuid.NewString(), Type: OperationDelete, NodeID: nodeID}
}

// NewMoveOperation creates a MOVE operation
func NewMoveOperation(nodeID string, newParentID *string) Operation {
	return Operation{ID: uuid.NewString(), Type: OperationMove, NodeID: nodeID, Move: &MovePayload{NewParentID: newParentID}}
}

// StringPtr returns a pointer to s, or nil for an empty string
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "" for nil
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
