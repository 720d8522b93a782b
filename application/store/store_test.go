package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sitemap-sync/application/persistence"
	"sitemap-sync/application/ports"
	"sitemap-sync/domain/config"
	"sitemap-sync/domain/core/entities"
	"sitemap-sync/domain/transform"
	"sitemap-sync/pkg/errors"
	"sitemap-sync/pkg/observability"
)

type fakeBackend struct {
	mu        sync.Mutex
	loadGraph entities.Graph
	loadErr   error
	saveErr   error
	saves     []ports.SaveRequest
}

func (f *fakeBackend) Load(_ context.Context, _ string) (*ports.LoadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return &ports.LoadResult{Graph: f.loadGraph.Clone()}, nil
}

func (f *fakeBackend) Save(_ context.Context, req ports.SaveRequest) (*ports.SaveResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, req)
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	return &ports.SaveResponse{Success: true}, nil
}

func (f *fakeBackend) setSaveErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveErr = err
}

func (f *fakeBackend) Saves() []ports.SaveRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ports.SaveRequest(nil), f.saves...)
}

// sampleGraph is home -> [about -> [team], contact]
func sampleGraph() entities.Graph {
	g, _ := transform.ToGraph(entities.TreeNode{
		ID: "home", Slug: "home", Title: "Home",
		Children: []entities.TreeNode{
			{ID: "about", Slug: "about", Title: "About", Children: []entities.TreeNode{
				{ID: "team", Slug: "team", Title: "Team", ContentTypeID: "page"},
			}},
			{ID: "contact", Slug: "contact", Title: "Contact", ContentTypeID: "page"},
		},
	})
	return g
}

func testConfig() *config.DomainConfig {
	cfg := config.DefaultDomainConfig()
	cfg.DebounceDelay = time.Hour
	cfg.RetryBaseDelay = time.Millisecond
	cfg.RetryMaxDelay = 2 * time.Millisecond
	cfg.SavedDisplayDuration = 10 * time.Millisecond
	return cfg
}

func newLoadedStore(t *testing.T, cfg *config.DomainConfig) (*Store, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{loadGraph: sampleGraph()}
	s := New("site-1", backend, cfg, zap.NewNop(), observability.NewCollector("test"))
	t.Cleanup(s.Close)
	require.NoError(t, s.Load(context.Background()))
	return s, backend
}

func opTypes(ops []entities.Operation) []entities.OperationType {
	out := make([]entities.OperationType, 0, len(ops))
	for _, op := range ops {
		out = append(out, op.Type)
	}
	return out
}

func label(t *testing.T, s *Store, id string) string {
	t.Helper()
	n, ok := s.Graph().FindNode(id)
	require.True(t, ok, "node %s missing", id)
	return n.Data.Label
}

func TestStore_LoadSeedsStateWithoutSaving(t *testing.T) {
	s, backend := newLoadedStore(t, testConfig())

	g := s.Graph()
	assert.Len(t, g.Nodes, 4)
	assert.Len(t, g.Edges, 3)
	team, _ := g.FindNode("team")
	assert.Equal(t, "home/about/team", team.Data.FullPath)

	st := s.State()
	assert.False(t, st.CanUndo)
	assert.False(t, st.CanRedo)
	assert.Zero(t, st.PendingCount)
	assert.False(t, s.HasUnsavedChanges())
	assert.Empty(t, backend.Saves())
}

func TestStore_LoadError(t *testing.T) {
	backend := &fakeBackend{loadErr: errors.NewNetworkError(nil)}
	s := New("site-1", backend, testConfig(), zap.NewNop(), nil)
	defer s.Close()

	err := s.Load(context.Background())
	assert.True(t, errors.IsCode(err, errors.CodeNetworkError))
}

func TestStore_AddNodeEnqueuesCreate(t *testing.T) {
	s, backend := newLoadedStore(t, testConfig())

	node, err := s.AddNode(NodeInput{ParentID: "about", Label: "My New Page!!"})
	require.NoError(t, err)
	assert.Equal(t, "my-new-page", node.Data.Slug)
	assert.Equal(t, "home/about/my-new-page", node.Data.FullPath)
	assert.Equal(t, entities.NodeTypePage, node.Type)

	ops := s.PendingOperations()
	require.Len(t, ops, 1)
	assert.Equal(t, entities.OperationCreate, ops[0].Type)
	assert.Equal(t, node.ID, ops[0].NodeID)
	assert.Equal(t, "about", entities.Deref(ops[0].Create.ParentID))
	assert.True(t, s.State().CanUndo)

	s.SaveNow()
	require.Eventually(t, func() bool { return len(backend.Saves()) == 1 && !s.HasUnsavedChanges() }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "site-1", backend.Saves()[0].TargetID)
}

func TestStore_AddNodeValidation(t *testing.T) {
	s, _ := newLoadedStore(t, testConfig())

	_, err := s.AddNode(NodeInput{ParentID: "home", Label: "About"})
	assert.True(t, errors.IsCode(err, errors.CodeDuplicateSlug))

	_, err = s.AddNode(NodeInput{ParentID: "nowhere", Label: "x"})
	assert.True(t, errors.IsCode(err, errors.CodeNodeNotFound))

	_, err = s.AddNode(NodeInput{ParentID: "home", Label: "x", Slug: "Bad Slug"})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidSlug))

	_, err = s.AddNode(NodeInput{ID: "home", Label: "again"})
	assert.Error(t, err)

	assert.Len(t, s.Graph().Nodes, 4)
	assert.Empty(t, s.PendingOperations())
	assert.False(t, s.State().CanUndo)
}

func TestStore_UpdateNodeSendsMinimalDiff(t *testing.T) {
	s, _ := newLoadedStore(t, testConfig())

	newLabel := "About us"
	require.NoError(t, s.UpdateNode("about", entities.UpdatePayload{Label: &newLabel}))

	ops := s.PendingOperations()
	require.Len(t, ops, 1)
	assert.Equal(t, entities.OperationUpdate, ops[0].Type)
	assert.Equal(t, []string{"label"}, ops[0].Update.ChangedFields())

	// same value again: nothing to save, no history entry
	require.NoError(t, s.UpdateNode("about", entities.UpdatePayload{Label: &newLabel}))
	assert.Len(t, s.PendingOperations(), 1)
	require.True(t, s.Undo())
	assert.False(t, s.State().CanUndo)

	taken := "contact"
	err := s.UpdateNode("about", entities.UpdatePayload{Slug: &taken})
	assert.True(t, errors.IsCode(err, errors.CodeDuplicateSlug))
	assert.True(t, errors.IsCode(s.UpdateNode("ghost", entities.UpdatePayload{Label: &newLabel}), errors.CodeNodeNotFound))
}

func TestStore_DeleteNodesRemovesEdgesAndSelection(t *testing.T) {
	s, _ := newLoadedStore(t, testConfig())
	require.NoError(t, s.SetSelection([]string{"about", "contact", "team"}))

	require.NoError(t, s.DeleteNodes([]string{"about"}))

	g := s.Graph()
	assert.False(t, g.HasNode("about"))
	assert.False(t, g.HasNode("team"))
	for _, e := range g.Edges {
		assert.NotContains(t, []string{"about", "team"}, e.Source)
		assert.NotContains(t, []string{"about", "team"}, e.Target)
	}
	assert.Equal(t, []string{"contact"}, s.Selection())
	contact, _ := g.FindNode("contact")
	assert.True(t, contact.Selected)
	home, _ := g.FindNode("home")
	assert.Equal(t, 1, home.Data.ChildCount)

	ops := s.PendingOperations()
	require.Len(t, ops, 2)
	assert.Equal(t, "team", ops[0].NodeID)
	assert.Equal(t, "about", ops[1].NodeID)
	assert.Equal(t, []entities.OperationType{entities.OperationDelete, entities.OperationDelete}, opTypes(ops))
}

func TestStore_DeleteWithoutCascadeRejectsOrphans(t *testing.T) {
	cfg := testConfig()
	cfg.CascadeDeletes = false
	s, _ := newLoadedStore(t, cfg)

	err := s.DeleteNodes([]string{"about"})
	assert.True(t, errors.IsCode(err, errors.CodeOrphanedNode))
	assert.Len(t, s.Graph().Nodes, 4)

	require.NoError(t, s.DeleteNodes([]string{"about", "team"}))
	assert.Len(t, s.Graph().Nodes, 2)
}

func TestStore_ConnectIsAMove(t *testing.T) {
	s, _ := newLoadedStore(t, testConfig())

	require.NoError(t, s.Connect("about", "contact"))

	g := s.Graph()
	parent, ok := g.ParentOf("contact")
	require.True(t, ok)
	assert.Equal(t, "about", parent)
	incoming := 0
	for _, e := range g.Edges {
		if e.Target == "contact" {
			incoming++
			assert.Equal(t, entities.EdgeID("about", "contact"), e.ID)
		}
	}
	assert.Equal(t, 1, incoming)

	ops := s.PendingOperations()
	require.Len(t, ops, 1)
	assert.Equal(t, entities.OperationMove, ops[0].Type)
	assert.Equal(t, "about", entities.Deref(ops[0].Move.NewParentID))

	err := s.Connect("team", "home")
	assert.True(t, errors.IsCode(err, errors.CodeCircularReference))
}

func TestStore_DisconnectMovesToRoot(t *testing.T) {
	s, _ := newLoadedStore(t, testConfig())

	require.NoError(t, s.Disconnect(entities.EdgeID("home", "contact")))
	_, hasParent := s.Graph().ParentOf("contact")
	assert.False(t, hasParent)

	ops := s.PendingOperations()
	require.Len(t, ops, 1)
	assert.Equal(t, entities.OperationMove, ops[0].Type)
	assert.Nil(t, ops[0].Move.NewParentID)

	assert.Error(t, s.Disconnect("e-missing"))
}

func TestStore_UndoRedoNeverPushHistory(t *testing.T) {
	s, _ := newLoadedStore(t, testConfig())

	first, second := "v1", "v2"
	require.NoError(t, s.UpdateNode("about", entities.UpdatePayload{Label: &first}))
	require.NoError(t, s.UpdateNode("about", entities.UpdatePayload{Label: &second}))

	require.True(t, s.Undo())
	assert.Equal(t, "v1", label(t, s, "about"))
	require.True(t, s.Undo())
	assert.Equal(t, "About", label(t, s, "about"))
	assert.False(t, s.Undo())

	require.True(t, s.Redo())
	require.True(t, s.Redo())
	assert.Equal(t, "v2", label(t, s, "about"))
	assert.False(t, s.Redo())

	// a walk back and forth leaves exactly the two edits above the seed
	require.True(t, s.Undo())
	require.True(t, s.Undo())
	assert.False(t, s.State().CanUndo)
}

func TestStore_UndoPersistsRestoredState(t *testing.T) {
	s, _ := newLoadedStore(t, testConfig())

	v := "changed"
	require.NoError(t, s.UpdateNode("about", entities.UpdatePayload{Label: &v}))
	require.True(t, s.Undo())

	ops := s.PendingOperations()
	require.Len(t, ops, 2)
	require.NotNil(t, ops[1].Update.Label)
	assert.Equal(t, "About", *ops[1].Update.Label)
}

func TestStore_UndoWithoutPersistingLeavesBaseline(t *testing.T) {
	cfg := testConfig()
	cfg.PersistHistoryRestores = false
	s, _ := newLoadedStore(t, cfg)

	v := "changed"
	require.NoError(t, s.UpdateNode("about", entities.UpdatePayload{Label: &v}))
	require.True(t, s.Undo())
	assert.Len(t, s.PendingOperations(), 1)
	assert.Equal(t, "About", label(t, s, "about"))

	// the next edit carries the reverted label along
	c := "Reach us"
	require.NoError(t, s.UpdateNode("contact", entities.UpdatePayload{Label: &c}))
	ops := s.PendingOperations()
	require.Len(t, ops, 3)
	nodes := []string{ops[1].NodeID, ops[2].NodeID}
	assert.ElementsMatch(t, []string{"about", "contact"}, nodes)
}

func TestStore_RedoingAnUnpersistedUndoIsRecorded(t *testing.T) {
	cfg := testConfig()
	cfg.PersistHistoryRestores = false
	s, _ := newLoadedStore(t, cfg)

	v := "About us"
	require.NoError(t, s.UpdateNode("about", entities.UpdatePayload{Label: &v}))
	require.True(t, s.Undo())

	// same edit again: matches the baseline but not the visible graph
	require.NoError(t, s.UpdateNode("about", entities.UpdatePayload{Label: &v}))
	assert.Equal(t, "About us", label(t, s, "about"))
	st := s.State()
	assert.True(t, st.CanUndo)
	assert.False(t, st.CanRedo)

	require.True(t, s.Undo())
	assert.Equal(t, "About", label(t, s, "about"))
	assert.False(t, s.State().CanUndo)
}

func TestStore_ApplyNodeChanges(t *testing.T) {
	s, _ := newLoadedStore(t, testConfig())

	require.NoError(t, s.ApplyNodeChanges([]NodeChange{
		{Type: NodeChangePosition, ID: "about", Position: &entities.Position{X: 10, Y: 20}, Dragging: true},
		{Type: NodeChangeSelect, ID: "about", Selected: true},
	}))
	assert.False(t, s.State().CanUndo)
	assert.Equal(t, []string{"about"}, s.Selection())
	assert.Empty(t, s.PendingOperations())

	require.NoError(t, s.ApplyNodeChanges([]NodeChange{
		{Type: NodeChangePosition, ID: "about", Position: &entities.Position{X: 30, Y: 40}},
	}))
	assert.True(t, s.State().CanUndo)
	assert.Empty(t, s.PendingOperations())
	about, _ := s.Graph().FindNode("about")
	assert.Equal(t, entities.Position{X: 30, Y: 40}, about.Position)

	require.NoError(t, s.ApplyNodeChanges([]NodeChange{{Type: NodeChangeRemove, ID: "contact"}}))
	assert.False(t, s.Graph().HasNode("contact"))
	assert.Equal(t, []entities.OperationType{entities.OperationDelete}, opTypes(s.PendingOperations()))

	err := s.ApplyNodeChanges([]NodeChange{{Type: NodeChangeSelect, ID: "ghost"}})
	assert.True(t, errors.IsCode(err, errors.CodeNodeNotFound))
}

func TestStore_OptimisticUpdateRollsBack(t *testing.T) {
	s, _ := newLoadedStore(t, testConfig())

	rolledBack := false
	v := "optimistic"
	err := s.OptimisticUpdate(context.Background(),
		func(st *Store) error { return st.UpdateNode("about", entities.UpdatePayload{Label: &v}) },
		func(context.Context) error { return errors.NewSaveError("upstream rejected", nil) },
		func() { rolledBack = true },
	)

	assert.True(t, errors.IsCode(err, errors.CodeSaveError))
	assert.True(t, rolledBack)
	assert.Equal(t, "About", label(t, s, "about"))
	st := s.State()
	assert.False(t, st.CanUndo)
	assert.False(t, st.CanRedo)
	assert.False(t, s.Undo())

	ops := s.PendingOperations()
	require.Len(t, ops, 2)
	assert.Equal(t, "optimistic", *ops[0].Update.Label)
	assert.Equal(t, "About", *ops[1].Update.Label)
}

func TestStore_OptimisticRollbackDropsEveryAppliedStep(t *testing.T) {
	s, _ := newLoadedStore(t, testConfig())

	first := "About us"
	require.NoError(t, s.UpdateNode("about", entities.UpdatePayload{Label: &first}))

	err := s.OptimisticUpdate(context.Background(),
		func(st *Store) error {
			a, c := "A", "C"
			if err := st.UpdateNode("about", entities.UpdatePayload{Label: &a}); err != nil {
				return err
			}
			return st.UpdateNode("contact", entities.UpdatePayload{Label: &c})
		},
		func(context.Context) error { return errors.NewNetworkError(nil) },
		nil,
	)
	require.Error(t, err)
	assert.Equal(t, "About us", label(t, s, "about"))
	assert.Equal(t, "Contact", label(t, s, "contact"))

	// only the edit made before the optimistic update is left to undo
	require.True(t, s.Undo())
	assert.Equal(t, "About", label(t, s, "about"))
	assert.False(t, s.State().CanUndo)
}

func TestStore_OptimisticUpdateKeepsSuccess(t *testing.T) {
	s, _ := newLoadedStore(t, testConfig())

	v := "kept"
	err := s.OptimisticUpdate(context.Background(),
		func(st *Store) error { return st.UpdateNode("about", entities.UpdatePayload{Label: &v}) },
		func(context.Context) error { return nil },
		func() { t.Fatal("rollback must not run") },
	)
	require.NoError(t, err)
	assert.Equal(t, "kept", label(t, s, "about"))
}

func TestStore_SubscribersSeeSaveErrorsAndRetry(t *testing.T) {
	s, backend := newLoadedStore(t, testConfig())
	backend.setSaveErr(errors.NewTransactionConflict(""))

	var mu sync.Mutex
	var last State
	unsubscribe := s.Subscribe(func(st State) {
		mu.Lock()
		defer mu.Unlock()
		last = st
	})
	defer unsubscribe()
	latest := func() State {
		mu.Lock()
		defer mu.Unlock()
		return last
	}

	v := "x"
	require.NoError(t, s.UpdateNode("about", entities.UpdatePayload{Label: &v}))
	s.SaveNow()

	require.Eventually(t, func() bool { return latest().Error != nil }, 2*time.Second, 5*time.Millisecond)
	st := latest()
	assert.Equal(t, persistence.StatusError, st.SaveStatus)
	assert.Equal(t, errors.CodeTransactionConflict, st.Error.Code)
	assert.True(t, st.HasUnsavedChanges())
	require.NotNil(t, st.Error.Retry)
	assert.Len(t, backend.Saves(), 1)

	backend.setSaveErr(nil)
	st.Error.Retry()
	require.Eventually(t, func() bool {
		cur := latest()
		return cur.Error == nil && cur.PendingCount == 0 && cur.SaveStatus != persistence.StatusError
	}, 2*time.Second, 5*time.Millisecond)
	assert.Len(t, backend.Saves(), 2)
}

func TestStore_ClosedRejectsMutations(t *testing.T) {
	s, _ := newLoadedStore(t, testConfig())
	s.Close()

	_, err := s.AddNode(NodeInput{Label: "late"})
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, s.Undo())
}
