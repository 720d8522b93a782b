package sitemapapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sitemap-sync/application/ports"
	"sitemap-sync/domain/core/entities"
	"sitemap-sync/pkg/errors"
	"sitemap-sync/pkg/observability"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, maxFailures int) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		BaseURL:     srv.URL + "/api/",
		MaxFailures: maxFailures,
		OpenTimeout: time.Minute,
	}, zap.NewNop(), observability.NewCollector("test"))
}

func sampleRequest() ports.SaveRequest {
	return ports.SaveRequest{
		TargetID:   "site-1",
		Operations: []entities.Operation{entities.NewDeleteOperation("n1")},
	}
}

func TestSave_Success(t *testing.T) {
	var got ports.SaveRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/save", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"results":[{"operationType":"DELETE","nodeId":"n1","success":true}]}`))
	}, 5)

	resp, err := client.Save(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.True(t, resp.Success)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "n1", resp.Results[0].NodeID)

	assert.Equal(t, "site-1", got.TargetID)
	require.Len(t, got.Operations, 1)
	assert.Equal(t, entities.OperationDelete, got.Operations[0].Type)
}

func TestSave_BodyLevelFailureIsReturned(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"DUPLICATE_SLUG","message":"taken"}}`))
	}, 5)

	resp, err := client.Save(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, errors.CodeDuplicateSlug, resp.Error.Code)
}

func TestSave_StatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
	}{
		{"conflict", http.StatusConflict, ``, errors.CodeTransactionConflict},
		{"conflict with message", http.StatusConflict, `{"error":"stale version"}`, errors.CodeTransactionConflict},
		{"server error", http.StatusInternalServerError, `oops`, errors.CodeSaveError},
		{"bad gateway", http.StatusBadGateway, ``, errors.CodeSaveError},
		{"code in body wins", http.StatusConflict, `{"error":{"code":"CIRCULAR_REFERENCE","message":"cycle"}}`, errors.CodeCircularReference},
		{"client error", http.StatusBadRequest, `{"error":{"message":"bad batch"}}`, errors.CodeSaveError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, 5)

			_, err := client.Save(context.Background(), sampleRequest())
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.CodeOf(err))
			de, ok := errors.AsDomainError(err)
			require.True(t, ok)
			assert.Equal(t, tt.status, de.Details["status"])
		})
	}
}

func TestSave_TransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(Options{BaseURL: url}, zap.NewNop(), nil)
	_, err := client.Save(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.Equal(t, errors.CodeNetworkError, errors.CodeOf(err))
	assert.True(t, errors.ShouldAutoRetry(err))
}

func TestSave_ContextCancelPropagates(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, 1)
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := client.Save(ctx, sampleRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	// a cancellation is not held against the backend
	assert.Equal(t, "closed", client.breaker.State().String())
}

func TestSave_CircuitOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, 2)

	for i := 0; i < 2; i++ {
		_, err := client.Save(context.Background(), sampleRequest())
		assert.Equal(t, errors.CodeSaveError, errors.CodeOf(err))
	}

	_, err := client.Save(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.Equal(t, errors.CodeNetworkError, errors.CodeOf(err))
	de, _ := errors.AsDomainError(err)
	assert.Equal(t, "circuit_open", de.Details["reason"])
	assert.Equal(t, int32(2), calls.Load())
}

func TestSave_ConflictsDoNotTripTheCircuit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}, 1)

	for i := 0; i < 3; i++ {
		_, err := client.Save(context.Background(), sampleRequest())
		assert.Equal(t, errors.CodeTransactionConflict, errors.CodeOf(err))
	}
	assert.Equal(t, "closed", client.breaker.State().String())
}

func TestLoad_Shapes(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantNodes int
		wantPath  string
		wantDiags int
	}{
		{
			name:      "single tree",
			body:      `{"id":"home","slug":"home","title":"Home","fullPath":"/stale","children":[{"id":"about","slug":"about","title":"About"}]}`,
			wantNodes: 2,
			wantPath:  "home/about",
		},
		{
			name:      "forest with a broken node",
			body:      `[{"id":"home","slug":"home","title":"Home","children":[{"id":"about","slug":"about","title":"About"},{"id":"","slug":"x","title":"X"}]}]`,
			wantNodes: 2,
			wantPath:  "home/about",
			wantDiags: 1,
		},
		{
			name:      "graph",
			body:      `{"nodes":[{"id":"home","type":"folder","data":{"label":"Home","slug":"home"}},{"id":"about","type":"page","data":{"label":"About","slug":"about","fullPath":"wrong"}}],"edges":[{"id":"e-home-about","source":"home","target":"about"}]}`,
			wantNodes: 2,
			wantPath:  "home/about",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/api/sitemap/site-1", r.URL.Path)
				_, _ = w.Write([]byte(tt.body))
			}, 5)

			res, err := client.Load(context.Background(), "site-1")
			require.NoError(t, err)
			assert.Len(t, res.Graph.Nodes, tt.wantNodes)
			assert.Len(t, res.Diagnostics, tt.wantDiags)

			about, ok := res.Graph.FindNode("about")
			require.True(t, ok)
			assert.Equal(t, tt.wantPath, about.Data.FullPath)
			home, _ := res.Graph.FindNode("home")
			assert.Equal(t, 1, home.Data.ChildCount)
		})
	}
}

func TestLoad_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}, 5)

	_, err := client.Load(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, errors.CodeSaveError, errors.CodeOf(err))
}
