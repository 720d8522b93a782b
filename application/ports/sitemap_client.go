package ports

import (
	"context"

	"sitemap-sync/domain/core/entities"
	"sitemap-sync/domain/transform"
	"sitemap-sync/pkg/errors"
)

// SaveRequest is the body of POST /save
type SaveRequest struct {
	TargetID   string               `json:"targetId"`
	Operations []entities.Operation `json:"operations"`
}

// OperationResult reports the outcome of one operation in a batch
type OperationResult struct {
	OperationID   string                 `json:"operationId,omitempty"`
	OperationType entities.OperationType `json:"operationType"`
	NodeID        string                 `json:"nodeId"`
	Success       bool                   `json:"success"`
	Error         *errors.WireError      `json:"error,omitempty"`
}

// SaveResponse is the body returned by POST /save
type SaveResponse struct {
	Success bool              `json:"success"`
	Results []OperationResult `json:"results,omitempty"`
	Error   *errors.WireError `json:"error,omitempty"`
}

// FirstFailure returns the first failed per-operation result, if any
func (r *SaveResponse) FirstFailure() (OperationResult, bool) {
	for _, res := range r.Results {
		if !res.Success {
			return res, true
		}
	}
	return OperationResult{}, false
}

// LoadResult is a loaded sitemap already converted to graph form
type LoadResult struct {
	Graph       entities.Graph
	Diagnostics []transform.Diagnostic
}

// SaveClient persists operation batches. Implementations return domain errors
// for transport and HTTP failures and leave body-level failures to the caller.
type SaveClient interface {
	Save(ctx context.Context, req SaveRequest) (*SaveResponse, error)
}

// LoadClient fetches the persisted sitemap of a target
type LoadClient interface {
	Load(ctx context.Context, targetID string) (*LoadResult, error)
}

// SitemapClient is the full backend surface consumed by the store
type SitemapClient interface {
	SaveClient
	LoadClient
}
