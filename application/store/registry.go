package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"sitemap-sync/application/ports"
	"sitemap-sync/domain/config"
	"sitemap-sync/pkg/observability"
)

// SessionRegistry holds one Store per target. Stores are created on first
// use and closed when removed.
type SessionRegistry struct {
	client  ports.SitemapClient
	logger  *zap.Logger
	metrics *observability.Collector

	mu       sync.Mutex
	cfg      *config.DomainConfig
	sessions map[string]*Store
}

// NewSessionRegistry creates an empty registry
func NewSessionRegistry(client ports.SitemapClient, cfg *config.DomainConfig, logger *zap.Logger, metrics *observability.Collector) *SessionRegistry {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &SessionRegistry{
		client:   client,
		logger:   logger.Named("sessions"),
		metrics:  metrics,
		cfg:      cfg.Clone(),
		sessions: make(map[string]*Store),
	}
}

// Get returns the open session for targetID
func (r *SessionRegistry) Get(targetID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[targetID]
	return s, ok
}

// Open returns the session for targetID, creating it when needed. The
// boolean reports whether a new session was created.
func (r *SessionRegistry) Open(targetID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[targetID]; ok {
		return s, false
	}
	s := New(targetID, r.client, r.cfg, r.logger, r.metrics)
	r.sessions[targetID] = s
	r.logger.Info("session opened", zap.String("target_id", targetID))
	return s, true
}

// Close closes and forgets the session for targetID
func (r *SessionRegistry) Close(targetID string) bool {
	r.mu.Lock()
	s, ok := r.sessions[targetID]
	delete(r.sessions, targetID)
	r.mu.Unlock()

	if !ok {
		return false
	}
	if s.HasUnsavedChanges() {
		r.logger.Warn("closing session with unsaved changes",
			zap.String("target_id", targetID),
			zap.Int("pending", len(s.PendingOperations())),
		)
	}
	s.Close()
	return true
}

// Configure applies new tunables to every open session and to sessions
// opened later
func (r *SessionRegistry) Configure(cfg *config.DomainConfig) {
	r.mu.Lock()
	r.cfg = cfg.Clone()
	open := make([]*Store, 0, len(r.sessions))
	for _, s := range r.sessions {
		open = append(open, s)
	}
	r.mu.Unlock()

	for _, s := range open {
		s.Configure(cfg)
	}
	r.logger.Info("sessions reconfigured", zap.Int("sessions", len(open)))
}

// Targets lists the targets with an open session
func (r *SessionRegistry) Targets() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Flush sends the pending operations of every session and waits until none
// is left or ctx is done
func (r *SessionRegistry) Flush(ctx context.Context) error {
	r.mu.Lock()
	open := make([]*Store, 0, len(r.sessions))
	for _, s := range r.sessions {
		open = append(open, s)
	}
	r.mu.Unlock()

	for _, s := range open {
		if s.HasUnsavedChanges() {
			s.SaveNow()
		}
	}

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		pending := 0
		for _, s := range open {
			pending += len(s.PendingOperations())
		}
		if pending == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			r.logger.Warn("flush interrupted", zap.Int("pending", pending))
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// CloseAll closes every session
func (r *SessionRegistry) CloseAll() {
	for _, id := range r.Targets() {
		r.Close(id)
	}
}
