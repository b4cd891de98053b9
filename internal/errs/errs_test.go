package errs_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/kohaku-io/agora/internal/errs"

	"github.com/stretchr/testify/assert"
)

func TestConstructorsWrapSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{name: "not found", err: errs.NotFound("discussion x"), sentinel: errs.ErrNotFound},
		{name: "invalid input", err: errs.InvalidInput("bad topic"), sentinel: errs.ErrInvalidInput},
		{name: "conflict", err: errs.Conflict("already exists"), sentinel: errs.ErrConflict},
		{name: "transient", err: errs.Transient("lock timeout"), sentinel: errs.ErrTransient},
		{name: "internal", err: errs.Internal("broken"), sentinel: errs.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Contains(t, tt.err.Error(), tt.sentinel.Error())
		})
	}
}

func TestWrap(t *testing.T) {
	assert.Nil(t, errs.Wrap(nil, "context"))

	wrapped := errs.Wrap(errs.ErrNotFound, "reading log")
	assert.ErrorIs(t, wrapped, errs.ErrNotFound)
	assert.Equal(t, "reading log: not found", wrapped.Error())
}

func TestIsFlowControl(t *testing.T) {
	assert.True(t, errs.IsFlowControl(errs.ErrAlreadyResponding))
	assert.True(t, errs.IsFlowControl(errs.ErrAlreadyAttempted))
	assert.True(t, errs.IsFlowControl(errs.ErrQueued))
	assert.True(t, errs.IsFlowControl(errs.ErrCircuitOpen))
	assert.True(t, errs.IsFlowControl(fmt.Errorf("wrapped: %w", errs.ErrQueued)))

	assert.False(t, errs.IsFlowControl(nil))
	assert.False(t, errs.IsFlowControl(errs.ErrNotFound))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, errs.IsRetryable(errs.Transient("flaky")))
	assert.True(t, errs.IsRetryable(errs.Conflict("lost the race")))

	assert.False(t, errs.IsRetryable(nil))
	assert.False(t, errs.IsRetryable(context.Canceled))
	assert.False(t, errs.IsRetryable(errs.InvalidInput("nope")))
}
