package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMatchesKindAndIdentity(t *testing.T) {
	errMissing := New(ErrNotFound, "widget not found")
	wrapped := fmt.Errorf("load widget: %w", errMissing)

	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.True(t, errors.Is(wrapped, errMissing))
	assert.False(t, errors.Is(wrapped, ErrValidation))
	assert.Equal(t, "widget not found", errMissing.Error())
}

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"validation", New(ErrValidation, "bad"), ErrValidation},
		{"wrapped store", fmt.Errorf("find: %w", ErrStoreUnavailable), ErrStoreUnavailable},
		{"unknown", errors.New("boom"), nil},
		{"nil", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}
