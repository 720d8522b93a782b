package sitemapapi

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"sitemap-sync/application/ports"
	"sitemap-sync/domain/core/entities"
	"sitemap-sync/domain/transform"
	"sitemap-sync/pkg/errors"
	"sitemap-sync/pkg/observability"
)

const (
	endpointSave = "save"
	endpointLoad = "load"

	maxResponseBytes = 16 << 20
)

// Options configures the backend client
type Options struct {
	BaseURL string
	// Timeout bounds every request. Zero leaves it to the caller's context.
	Timeout time.Duration
	// MaxFailures is the number of consecutive backend failures that open
	// the circuit.
	MaxFailures int
	// OpenTimeout is how long the circuit stays open before a trial request.
	OpenTimeout time.Duration
	HTTPClient  *http.Client
}

// Client talks to the sitemap persistence backend over HTTP/JSON
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
	metrics    *observability.Collector
}

var _ ports.SitemapClient = (*Client)(nil)

// NewClient creates a client for the backend rooted at opts.BaseURL
func NewClient(opts Options, logger *zap.Logger, metrics *observability.Collector) *Client {
	logger = logger.Named("sitemapapi")

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	maxFailures := uint32(5)
	if opts.MaxFailures > 0 {
		maxFailures = uint32(opts.MaxFailures)
	}

	c := &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
		metrics:    metrics,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "sitemap-backend",
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.SetBreakerState(name, float64(to))
		},
		IsSuccessful: countsAsHealthy,
	})
	metrics.SetBreakerState("sitemap-backend", float64(gobreaker.StateClosed))
	return c
}

// countsAsHealthy decides which outcomes the breaker holds against the
// backend. Conflicts, client errors and caller cancellations do not.
func countsAsHealthy(err error) bool {
	if err == nil {
		return true
	}
	if isContextErr(err) {
		return true
	}
	switch errors.CodeOf(err) {
	case errors.CodeNetworkError, errors.CodeSaveError:
		var se *statusError
		return stderrors.As(err, &se) && se.status < 500
	default:
		return true
	}
}

// Save sends one operation batch. HTTP and transport failures come back as
// domain errors; a 2xx body is returned as-is for the caller to inspect.
func (c *Client) Save(ctx context.Context, req ports.SaveRequest) (*ports.SaveResponse, error) {
	ctx, span := observability.StartSpan(ctx, "sitemapapi.Save",
		attribute.String("target_id", req.TargetID),
		attribute.Int("operations", len(req.Operations)),
	)

	result, err := c.call(ctx, endpointSave, func(ctx context.Context) (any, error) {
		body, err := json.Marshal(req)
		if err != nil {
			return nil, errors.NewSaveError("failed to encode save request", err)
		}
		var resp ports.SaveResponse
		if err := c.do(ctx, http.MethodPost, "/save", body, &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	})
	if err != nil {
		observability.EndSpan(span, err)
		return nil, err
	}
	resp := result.(*ports.SaveResponse)
	span.SetAttributes(attribute.Bool("success", resp.Success))
	observability.EndSpan(span, nil)
	return resp, nil
}

// Load fetches the persisted sitemap of targetID and converts it to graph
// form. The backend may answer with a graph ({nodes, edges}), a single tree
// or an array of trees.
func (c *Client) Load(ctx context.Context, targetID string) (*ports.LoadResult, error) {
	ctx, span := observability.StartSpan(ctx, "sitemapapi.Load",
		attribute.String("target_id", targetID),
	)

	result, err := c.call(ctx, endpointLoad, func(ctx context.Context) (any, error) {
		var raw json.RawMessage
		if err := c.do(ctx, http.MethodGet, "/sitemap/"+url.PathEscape(targetID), nil, &raw); err != nil {
			return nil, err
		}
		return DecodeSitemap(raw)
	})
	if err != nil {
		observability.EndSpan(span, err)
		return nil, err
	}
	loaded := result.(*ports.LoadResult)
	span.SetAttributes(
		attribute.Int("nodes", len(loaded.Graph.Nodes)),
		attribute.Int("diagnostics", len(loaded.Diagnostics)),
	)
	observability.EndSpan(span, nil)
	return loaded, nil
}

func (c *Client) call(ctx context.Context, endpoint string, fn func(context.Context) (any, error)) (any, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		return fn(ctx)
	})
	switch {
	case err == nil:
		c.metrics.RecordBackendRequest(endpoint, "ok")
		return result, nil
	case stderrors.Is(err, gobreaker.ErrOpenState), stderrors.Is(err, gobreaker.ErrTooManyRequests):
		c.metrics.RecordBackendRequest(endpoint, "rejected")
		return nil, errors.NewNetworkError(err).
			WithDetail("reason", "circuit_open")
	case isContextErr(err):
		c.metrics.RecordBackendRequest(endpoint, "canceled")
		return nil, err
	default:
		c.metrics.RecordBackendRequest(endpoint, strings.ToLower(errors.CodeOf(err)))
		c.logger.Debug("Backend request failed",
			zap.String("endpoint", endpoint),
			zap.String("error_code", errors.CodeOf(err)),
			zap.Error(err),
		)
		return nil, err
	}
}

// do performs one request and decodes a 2xx JSON body into out
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return errors.NewSaveError("failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return errors.NewNetworkError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return errors.NewNetworkError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusFailure(resp.StatusCode, data)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return errors.NewSaveError("empty response body", nil).
			WithDetail("status", resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.NewSaveError("malformed response body", err).
			WithDetail("status", resp.StatusCode)
	}
	return nil
}

// statusError carries the HTTP status behind a domain error
type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return "HTTP " + strconv.Itoa(e.status)
}

// statusFailure maps a non-2xx answer to the error taxonomy. A code in the
// body wins; otherwise 409 is a conflict and everything else a save error.
func statusFailure(status int, body []byte) error {
	cause := &statusError{status: status}

	if wire, ok := bodyError(body); ok && wire.Code != "" {
		de := errors.FromWire(wire)
		if de.Cause == nil {
			de = de.WithCause(cause)
		}
		return de.WithDetail("status", status)
	}

	message := http.StatusText(status)
	if wire, ok := bodyError(body); ok && wire.Message != "" {
		message = wire.Message
	}
	if status == http.StatusConflict {
		return errors.NewTransactionConflict(message).
			WithCause(cause).
			WithDetail("status", status)
	}
	return errors.NewSaveError(fmt.Sprintf("backend returned %d: %s", status, message), cause).
		WithDetail("status", status)
}

// bodyError extracts {error: {code, message}} or {error: "message"} from an
// error body. The code is empty when the body did not name one.
func bodyError(body []byte) (*errors.WireError, bool) {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Error) == 0 {
		return nil, false
	}

	raw := bytes.TrimSpace(envelope.Error)
	switch {
	case len(raw) > 0 && raw[0] == '"':
		var msg string
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, false
		}
		return &errors.WireError{Message: msg}, true
	case len(raw) > 0 && raw[0] == '{':
		var named struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &named); err != nil {
			return nil, false
		}
		if named.Code == "" {
			return &errors.WireError{Message: named.Message}, true
		}
		var wire errors.WireError
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, false
		}
		return &wire, true
	default:
		return nil, false
	}
}

// DecodeSitemap converts a stored sitemap to graph form. It accepts a graph
// ({nodes, edges}), a single tree or an array of trees.
func DecodeSitemap(raw json.RawMessage) (*ports.LoadResult, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return &ports.LoadResult{}, nil
	}

	if raw[0] == '[' {
		var roots []entities.TreeNode
		if err := json.Unmarshal(raw, &roots); err != nil {
			return nil, errors.NewSaveError("malformed sitemap tree", err)
		}
		g, diags := transform.ToGraph(roots...)
		return &ports.LoadResult{Graph: g, Diagnostics: diags}, nil
	}

	var shape map[string]json.RawMessage
	if err := json.Unmarshal(raw, &shape); err != nil {
		return nil, errors.NewSaveError("malformed sitemap", err)
	}
	if _, ok := shape["nodes"]; ok {
		var g entities.Graph
		if err := json.Unmarshal(raw, &g); err != nil {
			return nil, errors.NewSaveError("malformed sitemap graph", err)
		}
		return &ports.LoadResult{Graph: transform.RecomputeDerived(g)}, nil
	}

	var root entities.TreeNode
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, errors.NewSaveError("malformed sitemap tree", err)
	}
	g, diags := transform.ToGraph(root)
	return &ports.LoadResult{Graph: g, Diagnostics: diags}, nil
}

func isContextErr(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}
