package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"sitemap-sync/application/store"
	"sitemap-sync/pkg/errors"
)

const maxBodyBytes = 4 << 20

// base carries what every handler needs to reach a session and answer
type base struct {
	sessions *store.SessionRegistry
	errors   *errors.ErrorHandler
	logger   *zap.Logger
}

// session resolves the open session named by the targetID URL parameter
func (h *base) session(w http.ResponseWriter, r *http.Request) (*store.Store, bool) {
	targetID := chi.URLParam(r, "targetID")
	s, ok := h.sessions.Get(targetID)
	if !ok {
		h.errors.Handle(w, r, errors.NewNotFoundError("session "+targetID))
		return nil, false
	}
	return s, true
}

// decode reads a JSON body into dst. An empty body leaves dst untouched.
func (h *base) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && err != io.EOF {
		h.errors.Handle(w, r, errors.NewValidationError("Invalid request body: "+err.Error()).WithCause(err))
		return false
	}
	return true
}

func (h *base) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// StateResponse is the observable state of a session
type StateResponse struct {
	TargetID          string      `json:"targetId"`
	State             store.State `json:"state"`
	HasUnsavedChanges bool        `json:"hasUnsavedChanges"`
	Selection         []string    `json:"selection"`
}

func stateOf(s *store.Store) StateResponse {
	st := s.State()
	selection := s.Selection()
	if selection == nil {
		selection = []string{}
	}
	return StateResponse{
		TargetID:          s.TargetID(),
		State:             st,
		HasUnsavedChanges: st.HasUnsavedChanges(),
		Selection:         selection,
	}
}
