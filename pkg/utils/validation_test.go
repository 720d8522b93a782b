package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitemap-sync/pkg/errors"
)

type request struct {
	Label string `validate:"required,max=5"`
	Kind  string `validate:"omitempty,oneof=page folder"`
}

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct(request{Label: "ok"}))

	err := ValidateStruct(request{Kind: "blog"})
	require.Error(t, err)
	appErr := errors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrorTypeValidation, appErr.Type)
	assert.Contains(t, appErr.Message, "label is required")
	assert.Contains(t, appErr.Message, "kind must be one of: page folder")
	assert.Equal(t, "required", appErr.Details["label"])

	err = ValidateStruct(request{Label: "too long"})
	assert.Contains(t, err.Error(), "label must be at most 5 characters")
}

func TestValidateSlice(t *testing.T) {
	assert.NoError(t, ValidateSlice([]request{{Label: "a"}, {Label: "b"}}))

	err := ValidateSlice([]request{{Label: "a"}, {}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item 1: label is required")
}
