package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewErrorWrapsTrailingError(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewStorageError("failed to index block %d", 42, cause)

	var e *Error
	require.True(t, As(err, &e))

	assert.Equal(t, ERRStorage, e.Code())
	assert.Equal(t, "failed to index block 42", e.Message())
	assert.Equal(t, cause, Unwrap(err))
	assert.Contains(t, err.Error(), "disk full")
}

func TestIsMatchesOnCode(t *testing.T) {
	err := NewBlockInvalidError("bad pow at height %d", 7)

	assert.True(t, Is(err, ErrBlockInvalid))
	assert.False(t, Is(err, ErrStorage))
}

func TestIsMatchesWrappedCode(t *testing.T) {
	inner := NewStorageError("sqlite busy")
	outer := NewProcessingError("index update failed", inner)

	assert.True(t, Is(outer, ErrProcessing))
	assert.True(t, Is(outer, ErrStorage))
	assert.False(t, Is(outer, ErrReorgFailed))
}

func TestNilErrorIsSafe(t *testing.T) {
	var e *Error

	assert.Equal(t, "<nil>", e.Error())
	assert.Equal(t, ERRUnknown, e.Code())
	assert.False(t, e.Is(ErrStorage))
}
