package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedBackend", ErrUnsupportedBackend},
		{"ErrNothingToSanitize", ErrNothingToSanitize},
		{"ErrReadOnly", ErrReadOnly},
		{"ErrStoreUnavailable", ErrStoreUnavailable},
		{"ErrOverridesDisabled", ErrOverridesDisabled},
		{"ErrLLMUnavailable", ErrLLMUnavailable},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrClassifierUnavailable", ErrClassifierUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrNothingToSanitize_Wrapped(t *testing.T) {
	err := fmt.Errorf("sanitize store: %w", ErrNothingToSanitize)

	assert.True(t, errors.Is(err, ErrNothingToSanitize))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestErrors_AreDistinct(t *testing.T) {
	all := []error{
		ErrNotFound, ErrInvalidInput, ErrUnsupportedBackend, ErrNothingToSanitize,
		ErrReadOnly, ErrStoreUnavailable, ErrOverridesDisabled, ErrLLMUnavailable, ErrEmbeddingUnavailable,
		ErrClassifierUnavailable,
	}
	for i, a := range all {
		for j, b := range all {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
			}
		}
	}
}
