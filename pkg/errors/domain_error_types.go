package errors

import (
	"fmt"
	"net/http"
	"strings"
)

// DomainErrorType represents the category of domain error
type DomainErrorType string

const (
	// DomainValidationError indicates input that violates the sitemap grammar
	DomainValidationError DomainErrorType = "VALIDATION_ERROR"

	// DomainBusinessRuleError indicates a structural rule violation (cycles, orphans)
	DomainBusinessRuleError DomainErrorType = "BUSINESS_RULE_ERROR"

	// DomainNotFoundError indicates a stale node reference
	DomainNotFoundError DomainErrorType = "NOT_FOUND"

	// DomainConflictError indicates a conflict with existing or concurrent state
	DomainConflictError DomainErrorType = "CONFLICT"

	// DomainInfrastructureError indicates a transport or persistence failure
	DomainInfrastructureError DomainErrorType = "INFRASTRUCTURE_ERROR"
)

// Stable error codes shared with the backend.
const (
	CodeDuplicateSlug       = "DUPLICATE_SLUG"
	CodeNodeNotFound        = "NODE_NOT_FOUND"
	CodeInvalidSlug         = "INVALID_SLUG"
	CodeOrphanedNode        = "ORPHANED_NODE"
	CodeCircularReference   = "CIRCULAR_REFERENCE"
	CodeNetworkError        = "NETWORK_ERROR"
	CodeSaveError           = "SAVE_ERROR"
	CodeTransactionConflict = "TRANSACTION_CONFLICT"

	// CodeDuplicateNodeID flags a loaded forest that reuses a node id
	CodeDuplicateNodeID = "DUPLICATE_NODE_ID"
)

// retryableCodes is the fixed allow-list of codes eligible for retry.
var retryableCodes = map[string]bool{
	CodeNetworkError:        true,
	CodeSaveError:           true,
	CodeTransactionConflict: true,
}

// codeTypes maps every known code to its category.
var codeTypes = map[string]DomainErrorType{
	CodeDuplicateSlug:       DomainConflictError,
	CodeNodeNotFound:        DomainNotFoundError,
	CodeInvalidSlug:         DomainValidationError,
	CodeOrphanedNode:        DomainBusinessRuleError,
	CodeCircularReference:   DomainBusinessRuleError,
	CodeNetworkError:        DomainInfrastructureError,
	CodeSaveError:           DomainInfrastructureError,
	CodeTransactionConflict: DomainConflictError,
	CodeDuplicateNodeID:     DomainValidationError,
}

// IsRetryableCode reports whether code is on the retry allow-list
func IsRetryableCode(code string) bool {
	return retryableCodes[code]
}

// TypeForCode returns the category of a code. Unknown codes are infrastructure errors.
func TypeForCode(code string) DomainErrorType {
	if t, ok := codeTypes[code]; ok {
		return t
	}
	return DomainInfrastructureError
}

// DomainError represents a domain-specific error with rich context
type DomainError struct {
	Type       DomainErrorType        `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
}

// NewDomainError creates a new domain error. Retryable is derived from the code.
func NewDomainError(code string, message string) *DomainError {
	errorType := TypeForCode(code)
	return &DomainError{
		Type:       errorType,
		Code:       code,
		Message:    message,
		Details:    make(map[string]interface{}),
		Retryable:  IsRetryableCode(code),
		StatusCode: domainErrorTypeToStatusCode(errorType),
	}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Type, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// WithCause adds a cause to the error
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *DomainError) WithDetails(details map[string]interface{}) *DomainError {
	for k, v := range details {
		e.WithDetail(k, v)
	}
	return e
}

// Is matches any domain error carrying the same code
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Unwrap returns the underlying cause
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// domainErrorTypeToStatusCode maps error types to HTTP status codes
func domainErrorTypeToStatusCode(errorType DomainErrorType) int {
	switch errorType {
	case DomainValidationError:
		return http.StatusBadRequest
	case DomainBusinessRuleError:
		return http.StatusUnprocessableEntity
	case DomainNotFoundError:
		return http.StatusNotFound
	case DomainConflictError:
		return http.StatusConflict
	case DomainInfrastructureError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Sentinels for errors.Is comparisons. Never mutate these; use the constructors.
var (
	ErrDuplicateSlug       = NewDomainError(CodeDuplicateSlug, "slug already used by a sibling")
	ErrNodeNotFound        = NewDomainError(CodeNodeNotFound, "node does not exist")
	ErrInvalidSlug         = NewDomainError(CodeInvalidSlug, "slug is invalid")
	ErrOrphanedNode        = NewDomainError(CodeOrphanedNode, "operation would orphan a subtree")
	ErrCircularReference   = NewDomainError(CodeCircularReference, "move would create a cycle")
	ErrNetwork             = NewDomainError(CodeNetworkError, "network unreachable")
	ErrSave                = NewDomainError(CodeSaveError, "save failed")
	ErrTransactionConflict = NewDomainError(CodeTransactionConflict, "concurrent modification detected")
)

// NewDuplicateSlug reports a sibling slug collision under parentID ("" for roots)
func NewDuplicateSlug(parentID, slug string) *DomainError {
	return NewDomainError(CodeDuplicateSlug, fmt.Sprintf("slug %q is already used by a sibling", slug)).
		WithDetail("parent_id", parentID).
		WithDetail("slug", slug)
}

// NewNodeNotFound reports a stale node reference
func NewNodeNotFound(nodeID string) *DomainError {
	return NewDomainError(CodeNodeNotFound, fmt.Sprintf("node %q not found", nodeID)).
		WithDetail("node_id", nodeID)
}

// NewInvalidSlug reports a slug grammar violation
func NewInvalidSlug(slug, reason string) *DomainError {
	return NewDomainError(CodeInvalidSlug, fmt.Sprintf("slug %q is invalid: %s", slug, reason)).
		WithDetail("slug", slug)
}

// NewDuplicateNodeID reports a node id used more than once in one graph
func NewDuplicateNodeID(nodeID string) *DomainError {
	return NewDomainError(CodeDuplicateNodeID, fmt.Sprintf("node id %q is used more than once", nodeID)).
		WithDetail("node_id", nodeID)
}

// NewOrphanedNode reports an operation that would disconnect the subtree under nodeID
func NewOrphanedNode(nodeID string, children []string) *DomainError {
	return NewDomainError(CodeOrphanedNode,
		fmt.Sprintf("removing %q would orphan %d child node(s)", nodeID, len(children))).
		WithDetail("node_id", nodeID).
		WithDetail("children", strings.Join(children, ","))
}

// NewCircularReference reports a move that would make nodeID its own ancestor
func NewCircularReference(nodeID, parentID string) *DomainError {
	return NewDomainError(CodeCircularReference,
		fmt.Sprintf("moving %q under %q would create a cycle", nodeID, parentID)).
		WithDetail("node_id", nodeID).
		WithDetail("parent_id", parentID)
}

// NewNetworkError wraps a transport failure
func NewNetworkError(cause error) *DomainError {
	return NewDomainError(CodeNetworkError, "backend is unreachable").WithCause(cause)
}

// NewSaveError reports a generic persistence failure
func NewSaveError(message string, cause error) *DomainError {
	if message == "" {
		message = "save failed"
	}
	return NewDomainError(CodeSaveError, message).WithCause(cause)
}

// NewTransactionConflict reports a concurrent mutation detected by the server
func NewTransactionConflict(message string) *DomainError {
	if message == "" {
		message = "the sitemap was modified concurrently"
	}
	return NewDomainError(CodeTransactionConflict, message)
}
