package valueobjects

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// NewNodeID creates a new random identifier for a node added in the editor
func NewNodeID() string {
	return uuid.New().String()
}

// ValidateNodeID checks that an identifier can be used as a node key
func ValidateNodeID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("node ID cannot be empty")
	}
	return nil
}
