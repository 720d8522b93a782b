// Package persistence queues operations for one target and ships them to the
// backend in debounced batches, retrying transient failures.
package persistence

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"sitemap-sync/application/ports"
	"sitemap-sync/domain/core/entities"
	"sitemap-sync/pkg/errors"
	"sitemap-sync/pkg/observability"
)

// Callbacks observe a manager. They run on a single background goroutine in
// the order the events happened, never while the manager lock is held.
type Callbacks struct {
	OnStatusChange func(Status)
	OnError        func(*errors.DomainError)
	OnSaveComplete func(saved []entities.Operation)
	// OnRetry fires when an automatic retry is scheduled
	OnRetry func(attempt int, delay time.Duration, cause *errors.DomainError)
}

// Manager owns the pending queue of one target. At most one save request is
// in flight; starting a new one cancels the previous and re-sends its batch
// ahead of the newer operations, which relies on the backend applying a batch
// all or nothing.
type Manager struct {
	client  ports.SaveClient
	logger  *zap.Logger
	metrics *observability.Collector
	events  *dispatcher

	mu         sync.Mutex
	settings   Settings
	targetID   string
	callbacks  Callbacks
	queue      []entities.Operation
	inflight   []entities.Operation
	cancel     context.CancelFunc
	generation uint64
	status     Status
	lastErr    *errors.DomainError
	retryCount int
	disposed   bool

	debounce   *time.Timer
	retryTimer *time.Timer
	savedTimer *time.Timer
}

// New creates a manager. Call Initialize before adding operations.
func New(client ports.SaveClient, settings Settings, logger *zap.Logger, metrics *observability.Collector) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		client:   client,
		logger:   logger,
		metrics:  metrics,
		events:   newDispatcher(),
		settings: settings,
		status:   StatusIdle,
	}
}

// Initialize binds the manager to a target and registers its observers
func (m *Manager) Initialize(targetID string, callbacks Callbacks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targetID = targetID
	m.callbacks = callbacks
	m.logger = m.logger.With(zap.String("target_id", targetID))
}

// Configure replaces the timing settings. Running timers keep their deadline.
func (m *Manager) Configure(settings Settings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = settings
}

// AddOperation enqueues a single operation
func (m *Manager) AddOperation(op entities.Operation) {
	m.AddOperations([]entities.Operation{op})
}

// AddOperations appends ops to the queue and restarts the debounce timer.
// While the manager is in the error state operations only accumulate; Retry
// or SaveNow resumes sending.
func (m *Manager) AddOperations(ops []entities.Operation) {
	if len(ops) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		m.logger.Warn("operations added after dispose", zap.Int("count", len(ops)))
		return
	}

	m.queue = append(m.queue, ops...)
	m.metrics.SetPending(m.targetID, len(m.queue)+len(m.inflight))

	if m.status == StatusError {
		return
	}
	m.stopTimer(&m.debounce)
	var t *time.Timer
	t = time.AfterFunc(m.settings.DebounceDelay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.debounce != t {
			return
		}
		m.debounce = nil
		m.sendLocked()
	})
	m.debounce = t
}

// SaveNow skips the debounce and sends whatever is queued. From the error
// state it acts as a manual retry.
func (m *Manager) SaveNow() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return
	}
	if m.status == StatusError {
		m.retryCount = 0
		m.lastErr = nil
	}
	m.sendLocked()
}

// Retry resets the retry counter and resends the failed batch
func (m *Manager) Retry() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return
	}
	m.retryCount = 0
	m.lastErr = nil
	m.sendLocked()
}

// Dispose cancels timers and the in-flight request and drops the queue
func (m *Manager) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return
	}
	m.disposed = true
	m.generation++
	m.stopTimer(&m.debounce)
	m.stopTimer(&m.retryTimer)
	m.stopTimer(&m.savedTimer)
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	dropped := len(m.queue) + len(m.inflight)
	m.queue = nil
	m.inflight = nil
	m.events.close()
	m.metrics.SetPending(m.targetID, 0)
	if dropped > 0 {
		m.logger.Warn("disposed with unsaved operations", zap.Int("dropped", dropped))
	}
}

// PendingOperations returns a copy of every unacknowledged operation,
// in-flight batch first
func (m *Manager) PendingOperations() []entities.Operation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entities.Operation, 0, len(m.inflight)+len(m.queue))
	out = append(out, m.inflight...)
	out = append(out, m.queue...)
	return out
}

// HasPendingChanges reports whether anything is not yet acknowledged
func (m *Manager) HasPendingChanges() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)+len(m.inflight) > 0
}

// Status returns the current save status
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// LastError returns the error that put the manager in the error state
func (m *Manager) LastError() *errors.DomainError {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// sendLocked ships the queue, superseding any in-flight request.
// Caller holds m.mu.
func (m *Manager) sendLocked() {
	m.stopTimer(&m.debounce)
	m.stopTimer(&m.retryTimer)

	batch := make([]entities.Operation, 0, len(m.inflight)+len(m.queue))
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
		batch = append(batch, m.inflight...)
		m.metrics.RecordCancellation()
		m.logger.Debug("superseding in-flight save", zap.Int("resent", len(m.inflight)))
	}
	batch = append(batch, m.queue...)
	m.queue = nil
	m.inflight = nil

	if len(batch) == 0 {
		return
	}

	m.generation++
	gen := m.generation
	m.inflight = batch

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if m.settings.RequestTimeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), m.settings.RequestTimeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	m.cancel = cancel

	m.stopTimer(&m.savedTimer)
	m.setStatusLocked(StatusSaving)

	req := ports.SaveRequest{TargetID: m.targetID, Operations: append([]entities.Operation(nil), batch...)}
	go m.execute(ctx, gen, req)
}

func (m *Manager) execute(ctx context.Context, gen uint64, req ports.SaveRequest) {
	ctx, span := observability.StartSpan(ctx, "persistence.Save",
		attribute.String("target.id", req.TargetID),
		attribute.Int("operations", len(req.Operations)),
	)
	start := time.Now()
	resp, err := m.client.Save(ctx, req)
	failure := classify(ctx, resp, err)
	if failure != nil {
		observability.EndSpan(span, failure)
	} else {
		observability.EndSpan(span, nil)
	}

	m.complete(gen, req.Operations, failure, time.Since(start))
}

func (m *Manager) complete(gen uint64, batch []entities.Operation, failure *errors.DomainError, took time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation || m.disposed {
		// superseded or disposed; the newer request owns this batch now
		return
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.inflight = nil

	if failure == nil {
		m.onSuccessLocked(batch, took)
		return
	}
	m.onFailureLocked(batch, failure, took)
}

func (m *Manager) onSuccessLocked(batch []entities.Operation, took time.Duration) {
	m.retryCount = 0
	m.lastErr = nil
	m.metrics.RecordSave("success", took)
	for _, op := range batch {
		m.metrics.RecordOperationSaved(string(op.Type))
	}
	m.metrics.SetPending(m.targetID, len(m.queue))
	m.logger.Info("operations saved",
		zap.Int("count", len(batch)),
		zap.Duration("duration", took),
	)

	m.setStatusLocked(StatusSaved)
	if cb := m.callbacks.OnSaveComplete; cb != nil {
		m.events.post(func() { cb(batch) })
	}

	var t *time.Timer
	t = time.AfterFunc(m.settings.SavedDisplayDuration, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.savedTimer != t {
			return
		}
		m.savedTimer = nil
		if m.status == StatusSaved {
			m.setStatusLocked(StatusIdle)
		}
	})
	m.savedTimer = t
}

func (m *Manager) onFailureLocked(batch []entities.Operation, failure *errors.DomainError, took time.Duration) {
	// Failed batch goes back in front so later operations stay after it.
	m.queue = append(append(make([]entities.Operation, 0, len(batch)+len(m.queue)), batch...), m.queue...)
	m.metrics.RecordSave("failure", took)
	m.metrics.RecordSaveFailure(failure.Code)
	m.metrics.SetPending(m.targetID, len(m.queue))

	if errors.ShouldAutoRetry(failure) && m.retryCount < m.settings.MaxRetries {
		m.retryCount++
		attempt := m.retryCount
		delay := m.settings.RetryDelay(attempt)
		m.metrics.RecordRetry()
		m.logger.Warn("save failed, retrying",
			zap.String("code", failure.Code),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(failure),
		)
		if cb := m.callbacks.OnRetry; cb != nil {
			m.events.post(func() { cb(attempt, delay, failure) })
		}

		m.stopTimer(&m.debounce)
		var t *time.Timer
		t = time.AfterFunc(delay, func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.retryTimer != t {
				return
			}
			m.retryTimer = nil
			m.sendLocked()
		})
		m.retryTimer = t
		return
	}

	m.stopTimer(&m.debounce)
	m.lastErr = failure
	m.logger.Error("save failed",
		zap.String("code", failure.Code),
		zap.Int("retries", m.retryCount),
		zap.Int("pending", len(m.queue)),
		zap.Error(failure),
	)
	m.setStatusLocked(StatusError)
	if cb := m.callbacks.OnError; cb != nil {
		m.events.post(func() { cb(failure) })
	}
}

func (m *Manager) setStatusLocked(s Status) {
	if m.status == s {
		return
	}
	m.status = s
	if cb := m.callbacks.OnStatusChange; cb != nil {
		m.events.post(func() { cb(s) })
	}
}

func (m *Manager) stopTimer(t **time.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

// classify turns a save outcome into a domain error, nil on success
func classify(ctx context.Context, resp *ports.SaveResponse, err error) *errors.DomainError {
	if err != nil {
		if de, ok := errors.AsDomainError(err); ok {
			return de
		}
		if ctx.Err() == context.DeadlineExceeded {
			return errors.NewNetworkError(err).WithDetail("reason", "timeout")
		}
		return errors.NewSaveError("", err)
	}
	if resp == nil {
		return errors.NewSaveError("empty save response", nil)
	}
	failed, hasFailed := resp.FirstFailure()
	if resp.Success && !hasFailed {
		return nil
	}
	if resp.Error != nil {
		return errors.FromWire(resp.Error)
	}
	if hasFailed {
		if failed.Error != nil {
			return errors.FromWire(failed.Error).
				WithDetail("node_id", failed.NodeID).
				WithDetail("operation_type", string(failed.OperationType))
		}
		return errors.NewSaveError("operation failed", nil).
			WithDetail("node_id", failed.NodeID).
			WithDetail("operation_type", string(failed.OperationType))
	}
	return errors.NewSaveError("", nil)
}
