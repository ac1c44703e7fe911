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
		{"ErrUnsupportedKind", ErrUnsupportedKind},
		{"ErrUnsupportedMode", ErrUnsupportedMode},
		{"ErrInvalidTransition", ErrInvalidTransition},
		{"ErrRateLimited", ErrRateLimited},
		{"ErrBlocked", ErrBlocked},
		{"ErrTransient", ErrTransient},
		{"ErrRetriesExhausted", ErrRetriesExhausted},
		{"ErrNormalise", ErrNormalise},
		{"ErrPersistence", ErrPersistence},
		{"ErrScanInProgress", ErrScanInProgress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

// TestErrors_Distinct tests that no two sentinel errors match each other
func TestErrors_Distinct(t *testing.T) {
	all := []error{
		ErrNotFound, ErrInvalidInput, ErrUnsupportedKind, ErrUnsupportedMode,
		ErrInvalidTransition, ErrRateLimited, ErrBlocked, ErrTransient,
		ErrRetriesExhausted, ErrNormalise, ErrPersistence, ErrScanInProgress,
	}
	for i, a := range all {
		for j, b := range all {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
		}
	}
}

// TestErrors_Wrapped tests that wrapped errors still match their sentinel
func TestErrors_Wrapped(t *testing.T) {
	err := fmt.Errorf("apply product:1: %w", ErrPersistence)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.NotErrorIs(t, err, ErrTransient)
}
