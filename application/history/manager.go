// Package history keeps a bounded undo/redo stack of graph snapshots.
//
// The stack knows nothing about persistence. Undo and Redo only move the
// pointer; the only writer of new entries is PushState, which the store calls
// for direct user edits and never while replaying a snapshot.
package history

import (
	"time"

	"sitemap-sync/domain/core/entities"
)

// DefaultMaxSize is the number of snapshots kept when no size is given
const DefaultMaxSize = 50

// Snapshot is an immutable copy of the graph at one point in time
type Snapshot struct {
	Nodes     []entities.GraphNode
	Edges     []entities.GraphEdge
	Timestamp time.Time
}

// Graph returns a deep copy of the snapshot as a graph
func (s Snapshot) Graph() entities.Graph {
	return entities.Graph{Nodes: s.Nodes, Edges: s.Edges}.Clone()
}

// Manager is a bounded, index-addressed snapshot stack. Not safe for
// concurrent use; the store serialises access.
type Manager struct {
	entries []Snapshot
	index   int
	maxSize int
	// dropped counts entries evicted or reset away, so marks survive eviction
	dropped int
	now     func() time.Time
}

// NewManager creates an empty history. maxSize < 1 uses DefaultMaxSize.
func NewManager(maxSize int) *Manager {
	if maxSize < 1 {
		maxSize = DefaultMaxSize
	}
	return &Manager{index: -1, maxSize: maxSize, now: time.Now}
}

// Initialize resets the history to a single entry
func (m *Manager) Initialize(nodes []entities.GraphNode, edges []entities.GraphEdge) {
	m.dropped += len(m.entries)
	m.entries = []Snapshot{m.snapshot(nodes, edges)}
	m.index = 0
}

// PushState records a new state, discarding any redo branch and evicting the
// oldest entry once the stack is full
func (m *Manager) PushState(nodes []entities.GraphNode, edges []entities.GraphEdge) {
	if m.index < len(m.entries)-1 {
		m.entries = m.entries[:m.index+1]
	}
	m.entries = append(m.entries, m.snapshot(nodes, edges))
	m.index = len(m.entries) - 1

	if overflow := len(m.entries) - m.maxSize; overflow > 0 {
		m.entries = append([]Snapshot(nil), m.entries[overflow:]...)
		m.index -= overflow
		m.dropped += overflow
	}
}

// Mark returns the position of the current entry for a later Rewind
func (m *Manager) Mark() int {
	return m.dropped + m.index
}

// Rewind discards every entry after mark and moves the pointer back to it.
// It reports false, changing nothing, when the marked entry is gone.
func (m *Manager) Rewind(mark int) bool {
	i := mark - m.dropped
	if i < 0 || i >= len(m.entries) {
		return false
	}
	m.entries = m.entries[:i+1]
	m.index = i
	return true
}

// ReplaceCurrent overwrites the entry under the pointer without touching the
// rest of the stack
func (m *Manager) ReplaceCurrent(nodes []entities.GraphNode, edges []entities.GraphEdge) {
	if m.index < 0 {
		m.Initialize(nodes, edges)
		return
	}
	m.entries[m.index] = m.snapshot(nodes, edges)
}

// CanUndo reports whether an older entry exists
func (m *Manager) CanUndo() bool {
	return m.index > 0
}

// CanRedo reports whether a newer entry exists
func (m *Manager) CanRedo() bool {
	return m.index >= 0 && m.index < len(m.entries)-1
}

// Undo steps back and returns a copy of the snapshot there
func (m *Manager) Undo() (Snapshot, bool) {
	if !m.CanUndo() {
		return Snapshot{}, false
	}
	m.index--
	return m.copyOf(m.entries[m.index]), true
}

// Redo steps forward and returns a copy of the snapshot there
func (m *Manager) Redo() (Snapshot, bool) {
	if !m.CanRedo() {
		return Snapshot{}, false
	}
	m.index++
	return m.copyOf(m.entries[m.index]), true
}

// Current returns a copy of the snapshot under the pointer
func (m *Manager) Current() (Snapshot, bool) {
	if m.index < 0 {
		return Snapshot{}, false
	}
	return m.copyOf(m.entries[m.index]), true
}

// Len returns the number of stored entries
func (m *Manager) Len() int {
	return len(m.entries)
}

// Index returns the pointer position, -1 when empty
func (m *Manager) Index() int {
	return m.index
}

// MaxSize returns the capacity
func (m *Manager) MaxSize() int {
	return m.maxSize
}

func (m *Manager) snapshot(nodes []entities.GraphNode, edges []entities.GraphEdge) Snapshot {
	g := entities.Graph{Nodes: nodes, Edges: edges}.Clone()
	return Snapshot{Nodes: g.Nodes, Edges: g.Edges, Timestamp: m.now()}
}

func (m *Manager) copyOf(s Snapshot) Snapshot {
	g := s.Graph()
	return Snapshot{Nodes: g.Nodes, Edges: g.Edges, Timestamp: s.Timestamp}
}
