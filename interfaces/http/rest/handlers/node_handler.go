package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"sitemap-sync/application/store"
	"sitemap-sync/domain/core/entities"
	"sitemap-sync/pkg/errors"
	"sitemap-sync/pkg/utils"
)

// NodeHandler handles node and edge mutations of an open session
type NodeHandler struct {
	base
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(sessions *store.SessionRegistry, errorHandler *errors.ErrorHandler, logger *zap.Logger) *NodeHandler {
	return &NodeHandler{base{sessions: sessions, errors: errorHandler, logger: logger}}
}

// UpdateNodeRequest represents the request body for updating a node. Absent
// fields are left unchanged.
type UpdateNodeRequest struct {
	Label         *string                 `json:"label,omitempty" validate:"omitempty,min=1,max=200"`
	Slug          *string                 `json:"slug,omitempty" validate:"omitempty,min=1"`
	Type          *string                 `json:"type,omitempty" validate:"omitempty,oneof=page folder"`
	Components    *[]entities.Component   `json:"components,omitempty"`
	Metadata      *map[string]interface{} `json:"metadata,omitempty"`
	HasContent    *bool                   `json:"hasContent,omitempty"`
	ContentTypeID *string                 `json:"contentTypeId,omitempty"`
}

func (req UpdateNodeRequest) payload() entities.UpdatePayload {
	p := entities.UpdatePayload{
		Label:         req.Label,
		Slug:          req.Slug,
		Components:    req.Components,
		Metadata:      req.Metadata,
		HasContent:    req.HasContent,
		ContentTypeID: req.ContentTypeID,
	}
	if req.Type != nil {
		t := entities.NodeType(*req.Type)
		p.Type = &t
	}
	return p
}

// DeleteNodesRequest represents the request body for deleting nodes
type DeleteNodesRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// MoveNodeRequest represents the request body for moving a node. An empty
// parent makes the node a root.
type MoveNodeRequest struct {
	ParentID string `json:"parentId"`
}

// ConnectRequest represents the request body for connecting two nodes
type ConnectRequest struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required,nefield=Source"`
}

// NodeChangesRequest carries raw canvas events
type NodeChangesRequest struct {
	Changes []store.NodeChange `json:"changes" validate:"required,min=1"`
}

// SelectionRequest replaces the selection
type SelectionRequest struct {
	IDs []string `json:"ids" validate:"dive,required"`
}

// CreateNode handles POST /sitemaps/{targetID}/nodes
func (h *NodeHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req store.NodeInput
	if !h.decode(w, r, &req) {
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	node, err := s.AddNode(req)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"node":  node,
		"state": stateOf(s),
	})
}

// UpdateNode handles PATCH /sitemaps/{targetID}/nodes/{nodeID}
func (h *NodeHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req UpdateNodeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	nodeID := chi.URLParam(r, "nodeID")
	if err := s.UpdateNode(nodeID, req.payload()); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	node, _ := s.Graph().FindNode(nodeID)
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"node":  node,
		"state": stateOf(s),
	})
}

// DeleteNodes handles POST /sitemaps/{targetID}/nodes/delete
func (h *NodeHandler) DeleteNodes(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req DeleteNodesRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	if err := s.DeleteNodes(req.IDs); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, stateOf(s))
}

// MoveNode handles POST /sitemaps/{targetID}/nodes/{nodeID}/move
func (h *NodeHandler) MoveNode(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req MoveNodeRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := s.MoveNode(chi.URLParam(r, "nodeID"), req.ParentID); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, stateOf(s))
}

// Connect handles POST /sitemaps/{targetID}/connect
func (h *NodeHandler) Connect(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req ConnectRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	if err := s.Connect(req.Source, req.Target); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, stateOf(s))
}

// Disconnect handles DELETE /sitemaps/{targetID}/edges/{edgeID}
func (h *NodeHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Disconnect(chi.URLParam(r, "edgeID")); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, stateOf(s))
}

// ApplyChanges handles POST /sitemaps/{targetID}/changes
func (h *NodeHandler) ApplyChanges(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req NodeChangesRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if err := utils.ValidateSlice(req.Changes); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	if err := s.ApplyNodeChanges(req.Changes); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, stateOf(s))
}

// SetSelection handles PUT /sitemaps/{targetID}/selection
func (h *NodeHandler) SetSelection(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req SelectionRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	if err := s.SetSelection(req.IDs); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, stateOf(s))
}
