package store

import (
	"sitemap-sync/application/persistence"
	"sitemap-sync/domain/core/entities"
)

// State is what observers see after every change
type State struct {
	SaveStatus   persistence.Status `json:"saveStatus"`
	Error        *ErrorState        `json:"error,omitempty"`
	CanUndo      bool               `json:"canUndo"`
	CanRedo      bool               `json:"canRedo"`
	PendingCount int                `json:"pendingCount"`
}

// HasUnsavedChanges reports whether leaving now would lose edits
func (s State) HasUnsavedChanges() bool {
	return s.PendingCount > 0
}

// ErrorState describes a save failure waiting for the user
type ErrorState struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	// Retry resumes saving. Always set, even for non-retryable codes, so the
	// user can try again after fixing the cause.
	Retry func() `json:"-"`
}

// NodeInput describes a node added from the editor. ID and Slug are
// generated when empty.
type NodeInput struct {
	ID            string                 `json:"id,omitempty"`
	ParentID      string                 `json:"parentId,omitempty"`
	Label         string                 `json:"label" validate:"required,max=200"`
	Slug          string                 `json:"slug,omitempty"`
	Type          entities.NodeType      `json:"type,omitempty" validate:"omitempty,oneof=page folder"`
	Position      entities.Position      `json:"position"`
	Components    []entities.Component   `json:"components,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	ContentTypeID string                 `json:"contentTypeId,omitempty"`
}

// NodeChangeType is the kind of a raw editor event
type NodeChangeType string

const (
	NodeChangePosition NodeChangeType = "position"
	NodeChangeSelect   NodeChangeType = "select"
	NodeChangeRemove   NodeChangeType = "remove"
)

// NodeChange is one raw event from the canvas. A position change with
// Dragging set is an intermediate drag frame.
type NodeChange struct {
	Type     NodeChangeType     `json:"type" validate:"required,oneof=position select remove"`
	ID       string             `json:"id" validate:"required"`
	Position *entities.Position `json:"position,omitempty"`
	Dragging bool               `json:"dragging,omitempty"`
	Selected bool               `json:"selected,omitempty"`
}

type historyMode int

const (
	historySkip historyMode = iota
	historyOnChange
	historyAlways
)

// txn is the working copy a mutation edits before it is swapped in
type txn struct {
	graph     entities.Graph
	selection []string
	history   historyMode
}
