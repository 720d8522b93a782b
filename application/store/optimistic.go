package store

import (
	"context"

	"go.uber.org/zap"

	"sitemap-sync/domain/transform"
)

// OptimisticUpdate shows an edit before the server confirms it. apply runs
// store mutations right away; action then does the remote work. When either
// fails the graph is put back to how it was before apply, the compensating
// operations are queued, history is cut back to the entry current before
// apply, and rollback is called.
func (s *Store) OptimisticUpdate(ctx context.Context, apply func(*Store) error, action func(context.Context) error, rollback func()) error {
	s.mu.Lock()
	before := s.graph.Clone()
	mark := s.history.Mark()
	s.mu.Unlock()

	err := apply(s)
	if err == nil {
		err = action(ctx)
	}
	if err == nil {
		return nil
	}

	s.logger.Warn("optimistic update failed, restoring", zap.Error(err))

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return err
	}
	s.graph = transform.RecomputeDerived(before)
	s.syncSelectionLocked()
	s.enqueueDiffLocked()
	if !s.history.Rewind(mark) {
		s.logger.Debug("history moved past the optimistic mark")
	}
	s.history.ReplaceCurrent(s.graph.Nodes, s.graph.Edges)
	s.mu.Unlock()

	s.metrics.RecordMutation("rollback")
	s.notify()
	if rollback != nil {
		rollback()
	}
	return err
}
