package errors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
)

// WireError is the serialized form of a domain error exchanged with the backend
type WireError struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Retryable bool                   `json:"retryable"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// UnmarshalJSON accepts the structured form or a bare message string.
// A bare string is treated as a generic save failure.
func (w *WireError) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var msg string
		if err := json.Unmarshal(data, &msg); err != nil {
			return err
		}
		*w = WireError{Code: CodeSaveError, Message: msg, Retryable: true}
		return nil
	}

	type plain WireError
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*w = WireError(p)
	if w.Code == "" {
		w.Code = CodeSaveError
	}
	// The allow-list is authoritative, whatever the sender claimed.
	w.Retryable = IsRetryableCode(w.Code)
	return nil
}

// Error implements the error interface
func (w *WireError) Error() string {
	return w.Code + ": " + w.Message
}

// ToWire serializes any error. Errors outside the taxonomy become SAVE_ERROR.
func ToWire(err error) *WireError {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) {
		return &WireError{
			Code:      de.Code,
			Message:   de.Message,
			Retryable: IsRetryableCode(de.Code),
			Details:   de.Details,
		}
	}
	return &WireError{
		Code:      CodeSaveError,
		Message:   err.Error(),
		Retryable: true,
	}
}

// FromWire rebuilds a domain error from its wire form
func FromWire(w *WireError) *DomainError {
	if w == nil {
		return nil
	}
	code := w.Code
	if code == "" {
		code = CodeSaveError
	}
	return NewDomainError(code, w.Message).WithDetails(w.Details)
}

// AsDomainError extracts a DomainError from an error chain
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// CodeOf returns the code of err, SAVE_ERROR for errors outside the taxonomy and "" for nil
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	if de, ok := AsDomainError(err); ok {
		return de.Code
	}
	return CodeSaveError
}

// IsCode checks whether err carries the given code
func IsCode(err error, code string) bool {
	de, ok := AsDomainError(err)
	return ok && de.Code == code
}

// IsRetryable reports whether err is eligible for a retry (manual or automatic)
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return IsRetryableCode(CodeOf(err))
}

// ShouldAutoRetry reports whether a failed save may be retried without the user.
// Conflicts stay surfaced so user intent is never silently overwritten.
func ShouldAutoRetry(err error) bool {
	if !IsRetryable(err) {
		return false
	}
	code := CodeOf(err)
	return code == CodeNetworkError || code == CodeSaveError
}
