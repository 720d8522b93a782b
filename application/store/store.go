// Package store owns the live sitemap graph of one target. Every edit runs the
// same protocol: apply to a working copy, diff against the last saved
// baseline, move the baseline, snapshot history, enqueue the operations.
package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"sitemap-sync/application/history"
	"sitemap-sync/application/persistence"
	"sitemap-sync/application/ports"
	"sitemap-sync/domain/config"
	"sitemap-sync/domain/core/entities"
	"sitemap-sync/domain/core/validators"
	"sitemap-sync/domain/transform"
	"sitemap-sync/pkg/errors"
	"sitemap-sync/pkg/observability"
)

// ErrClosed is returned by mutations after Close
var ErrClosed = errors.NewInternalError("store is closed")

// Store is the coordinator for one target. Safe for concurrent use;
// subscribers may be called from any goroutine.
type Store struct {
	targetID    string
	client      ports.SitemapClient
	logger      *zap.Logger
	metrics     *observability.Collector
	persistence *persistence.Manager

	mu         sync.Mutex
	cfg        *config.DomainConfig
	validator  *validators.ForestValidator
	history    *history.Manager
	graph      entities.Graph
	selection  []string
	baseline   *entities.Graph
	saveStatus persistence.Status
	errState   *ErrorState
	closed     bool

	subMu       sync.Mutex
	subscribers map[int]func(State)
	nextSub     int
}

// New creates a store with its own persistence manager
func New(targetID string, client ports.SitemapClient, cfg *config.DomainConfig, logger *zap.Logger, metrics *observability.Collector) *Store {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("target_id", targetID))

	s := &Store{
		targetID:    targetID,
		client:      client,
		logger:      logger,
		metrics:     metrics,
		cfg:         cfg.Clone(),
		validator:   validators.NewForestValidator(cfg.MaxSlugLength),
		history:     history.NewManager(cfg.MaxHistorySize),
		graph:       entities.Graph{Nodes: []entities.GraphNode{}, Edges: []entities.GraphEdge{}},
		saveStatus:  persistence.StatusIdle,
		subscribers: make(map[int]func(State)),
	}
	s.history.Initialize(s.graph.Nodes, s.graph.Edges)

	s.persistence = persistence.New(client, persistence.SettingsFromConfig(cfg), logger, metrics)
	s.persistence.Initialize(targetID, persistence.Callbacks{
		OnStatusChange: s.onStatusChange,
		OnError:        s.onSaveError,
		OnSaveComplete: func([]entities.Operation) { s.notify() },
		OnRetry:        s.onRetry,
	})
	return s
}

// TargetID returns the target this store edits
func (s *Store) TargetID() string {
	return s.targetID
}

// Load fetches the persisted sitemap and seeds the store with it
func (s *Store) Load(ctx context.Context) error {
	res, err := s.client.Load(ctx, s.targetID)
	if err != nil {
		s.logger.Error("failed to load sitemap", zap.Error(err))
		return err
	}
	for _, d := range res.Diagnostics {
		s.logger.Warn("skipped malformed node",
			zap.String("node_id", d.NodeID),
			zap.String("parent_path", d.ParentPath),
			zap.String("reason", d.Reason),
			zap.Int("skipped_descendants", d.SkippedDescendants),
		)
	}
	return s.Seed(res.Graph)
}

// Seed replaces the whole state with a graph known to match the server: it
// becomes the diff baseline and the only history entry. Nothing is enqueued.
func (s *Store) Seed(g entities.Graph) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if err := s.validator.ValidateForest(g); err != nil {
		s.mu.Unlock()
		return err
	}
	s.graph = transform.RecomputeDerived(g)
	s.selection = nil
	s.syncSelectionLocked()
	baseline := s.graph.Clone()
	s.baseline = &baseline
	s.history.Initialize(s.graph.Nodes, s.graph.Edges)
	s.errState = nil
	n := len(s.graph.Nodes)
	s.mu.Unlock()

	s.logger.Info("sitemap seeded", zap.Int("nodes", n))
	s.notify()
	return nil
}

// Graph returns a copy of the current graph
func (s *Store) Graph() entities.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Clone()
}

// Tree returns the current graph nested back into trees
func (s *Store) Tree() []entities.TreeNode {
	return transform.ToTree(s.Graph())
}

// Selection returns the selected node ids
func (s *Store) Selection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.selection...)
}

// State returns the observable state
func (s *Store) State() State {
	s.mu.Lock()
	st := State{
		SaveStatus: s.saveStatus,
		CanUndo:    s.history.CanUndo(),
		CanRedo:    s.history.CanRedo(),
	}
	if s.errState != nil {
		e := *s.errState
		st.Error = &e
	}
	s.mu.Unlock()

	st.PendingCount = len(s.persistence.PendingOperations())
	return st
}

// PendingOperations returns the operations not yet acknowledged by the backend
func (s *Store) PendingOperations() []entities.Operation {
	return s.persistence.PendingOperations()
}

// HasUnsavedChanges reports whether anything still waits to be saved
func (s *Store) HasUnsavedChanges() bool {
	return s.persistence.HasPendingChanges()
}

// Subscribe registers fn for state changes and returns its unsubscribe func
func (s *Store) Subscribe(fn func(State)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}

// SaveNow flushes pending operations without waiting for the debounce
func (s *Store) SaveNow() {
	s.persistence.SaveNow()
}

// Retry resumes saving after an error
func (s *Store) Retry() {
	s.persistence.Retry()
}

// Configure applies new tunables. A new history capacity restarts history
// from the current graph.
func (s *Store) Configure(cfg *config.DomainConfig) {
	s.mu.Lock()
	s.cfg = cfg.Clone()
	s.validator = validators.NewForestValidator(cfg.MaxSlugLength)
	if s.history.MaxSize() != cfg.MaxHistorySize && cfg.MaxHistorySize > 0 {
		s.history = history.NewManager(cfg.MaxHistorySize)
		s.history.Initialize(s.graph.Nodes, s.graph.Edges)
	}
	s.mu.Unlock()

	s.persistence.Configure(persistence.SettingsFromConfig(cfg))
	s.notify()
}

// Close disposes the persistence manager. Unsaved operations are dropped;
// callers check HasUnsavedChanges or call SaveNow first.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.persistence.Dispose()
	s.subMu.Lock()
	s.subscribers = make(map[int]func(State))
	s.subMu.Unlock()
}

// Undo restores the previous snapshot
func (s *Store) Undo() bool {
	return s.step("undo", (*history.Manager).Undo)
}

// Redo restores the next snapshot
func (s *Store) Redo() bool {
	return s.step("redo", (*history.Manager).Redo)
}

// step moves through history without ever pushing to it. The restored graph
// is diffed and queued only when PersistHistoryRestores is on; otherwise the
// baseline stays put and the next edit carries the difference.
func (s *Store) step(direction string, move func(*history.Manager) (history.Snapshot, bool)) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	snap, ok := move(s.history)
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.graph = transform.RecomputeDerived(snap.Graph())
	s.syncSelectionLocked()
	if s.cfg.PersistHistoryRestores {
		s.enqueueDiffLocked()
	}
	s.mu.Unlock()

	s.metrics.RecordHistoryMove(direction)
	s.logger.Debug("history step", zap.String("direction", direction))
	s.notify()
	return true
}

// mutate runs fn on a working copy and commits it through the protocol.
// Nothing is visible until fn succeeds.
func (s *Store) mutate(action string, fn func(tx *txn) error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	tx := &txn{
		graph:     s.graph.Clone(),
		selection: append([]string(nil), s.selection...),
		history:   historyOnChange,
	}
	if err := fn(tx); err != nil {
		s.mu.Unlock()
		s.logger.Debug("mutation rejected", zap.String("action", action), zap.Error(err))
		return err
	}

	before := s.graph
	s.graph = transform.RecomputeDerived(tx.graph)
	s.selection = tx.selection
	s.syncSelectionLocked()
	s.enqueueDiffLocked()
	// History follows the visible graph, not the baseline: after a restore
	// that was not persisted the two differ.
	switch {
	case tx.history == historyAlways,
		tx.history == historyOnChange && len(transform.FromGraph(s.graph, &before)) > 0:
		s.history.PushState(s.graph.Nodes, s.graph.Edges)
	}
	s.mu.Unlock()

	s.metrics.RecordMutation(action)
	s.notify()
	return nil
}

// enqueueDiffLocked diffs the graph against the baseline, moves the baseline
// and hands the operations to persistence
func (s *Store) enqueueDiffLocked() []entities.Operation {
	ops := transform.FromGraph(s.graph, s.baseline)
	baseline := s.graph.Clone()
	s.baseline = &baseline
	if len(ops) > 0 {
		s.persistence.AddOperations(transform.DeferDependentMoves(ops))
	}
	return ops
}

// syncSelectionLocked drops selected ids that no longer exist and mirrors
// the selection onto the node flags
func (s *Store) syncSelectionLocked() {
	idx := s.graph.NodeIndex()
	selected := make(map[string]bool, len(s.selection))
	kept := s.selection[:0:0]
	for _, id := range s.selection {
		if _, ok := idx[id]; ok && !selected[id] {
			selected[id] = true
			kept = append(kept, id)
		}
	}
	s.selection = kept
	for i := range s.graph.Nodes {
		s.graph.Nodes[i].Selected = selected[s.graph.Nodes[i].ID]
	}
}

func (s *Store) onStatusChange(status persistence.Status) {
	s.mu.Lock()
	s.saveStatus = status
	if status != persistence.StatusError {
		s.errState = nil
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Store) onSaveError(err *errors.DomainError) {
	s.mu.Lock()
	s.errState = &ErrorState{
		Code:      err.Code,
		Message:   err.Message,
		Retryable: err.Retryable,
		Retry:     s.Retry,
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Store) onRetry(attempt int, delay time.Duration, cause *errors.DomainError) {
	s.logger.Info("save retry scheduled",
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay),
		zap.String("code", cause.Code),
	)
}

func (s *Store) notify() {
	s.subMu.Lock()
	subs := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()
	if len(subs) == 0 {
		return
	}

	st := s.State()
	for _, fn := range subs {
		fn(st)
	}
}
