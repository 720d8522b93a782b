package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"sitemap-sync/application/store"
	"sitemap-sync/domain/core/entities"
	"sitemap-sync/pkg/errors"
)

// SitemapHandler handles session lifecycle, reads and history requests
type SitemapHandler struct {
	base
}

// NewSitemapHandler creates a new sitemap handler
func NewSitemapHandler(sessions *store.SessionRegistry, errorHandler *errors.ErrorHandler, logger *zap.Logger) *SitemapHandler {
	return &SitemapHandler{base{sessions: sessions, errors: errorHandler, logger: logger}}
}

// GraphResponse carries the editable graph together with the session state
type GraphResponse struct {
	Graph entities.Graph `json:"graph"`
	StateResponse
}

// TreeResponse carries the persisted form of the graph
type TreeResponse struct {
	Tree []entities.TreeNode `json:"tree"`
	StateResponse
}

// ListSessions handles GET /sitemaps
func (h *SitemapHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"targets": h.sessions.Targets(),
	})
}

// Load handles POST /sitemaps/{targetID}/load. It opens the session when
// needed and seeds it from the backend. Reloading a session with unsaved
// changes needs ?force=true.
func (h *SitemapHandler) Load(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "targetID")
	s, created := h.sessions.Open(targetID)

	if !created && s.HasUnsavedChanges() && r.URL.Query().Get("force") != "true" {
		h.errors.Handle(w, r, errors.NewTransactionConflict("session has unsaved changes").
			WithDetail("pending", len(s.PendingOperations())))
		return
	}

	if err := s.Load(r.Context()); err != nil {
		if created {
			h.sessions.Close(targetID)
		}
		h.errors.Handle(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.respondJSON(w, status, GraphResponse{Graph: s.Graph(), StateResponse: stateOf(s)})
}

// GetGraph handles GET /sitemaps/{targetID}/graph. ?format=tree returns the
// nested form instead.
func (h *SitemapHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("format") == "tree" {
		h.respondJSON(w, http.StatusOK, TreeResponse{Tree: s.Tree(), StateResponse: stateOf(s)})
		return
	}
	h.respondJSON(w, http.StatusOK, GraphResponse{Graph: s.Graph(), StateResponse: stateOf(s)})
}

// GetState handles GET /sitemaps/{targetID}/state
func (h *SitemapHandler) GetState(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respondJSON(w, http.StatusOK, stateOf(s))
}

// GetPending handles GET /sitemaps/{targetID}/pending
func (h *SitemapHandler) GetPending(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	ops := s.PendingOperations()
	if ops == nil {
		ops = []entities.Operation{}
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"operations": ops})
}

// Undo handles POST /sitemaps/{targetID}/undo
func (h *SitemapHandler) Undo(w http.ResponseWriter, r *http.Request) {
	h.historyStep(w, r, (*store.Store).Undo)
}

// Redo handles POST /sitemaps/{targetID}/redo
func (h *SitemapHandler) Redo(w http.ResponseWriter, r *http.Request) {
	h.historyStep(w, r, (*store.Store).Redo)
}

func (h *SitemapHandler) historyStep(w http.ResponseWriter, r *http.Request, step func(*store.Store) bool) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	moved := step(s)
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"moved": moved,
		"graph": s.Graph(),
		"state": stateOf(s),
	})
}

// Save handles POST /sitemaps/{targetID}/save
func (h *SitemapHandler) Save(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.SaveNow()
	h.respondJSON(w, http.StatusAccepted, stateOf(s))
}

// Retry handles POST /sitemaps/{targetID}/retry
func (h *SitemapHandler) Retry(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Retry()
	h.respondJSON(w, http.StatusAccepted, stateOf(s))
}

// CloseSession handles DELETE /sitemaps/{targetID}. A session holding unsaved
// operations is only closed with ?discard=true.
func (h *SitemapHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "targetID")
	s, ok := h.sessions.Get(targetID)
	if !ok {
		h.errors.Handle(w, r, errors.NewNotFoundError("session "+targetID))
		return
	}
	if s.HasUnsavedChanges() && r.URL.Query().Get("discard") != "true" {
		h.errors.Handle(w, r, errors.NewTransactionConflict("session has unsaved changes").
			WithDetail("pending", len(s.PendingOperations())))
		return
	}
	h.sessions.Close(targetID)
	w.WriteHeader(http.StatusNoContent)
}
