package dErrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches direct code", func(t *testing.T) {
		err := New(CodeConflict, "already checked in")
		assert.True(t, HasCode(err, CodeConflict))
		assert.False(t, HasCode(err, CodeNotFound))
	})

	t.Run("matches through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("register: %w", New(CodeForbidden, "not within any assigned zone"))
		assert.True(t, HasCode(err, CodeForbidden))
	})

	t.Run("nil and plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(nil, CodeInternal))
		assert.False(t, HasCode(errors.New("plain"), CodeInternal))
	})
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("pq: deadlock detected")
	err := Wrap(cause, CodeInternal, "failed to record attendance")

	require.True(t, errors.Is(err, cause))
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.Equal(t, "failed to record attendance", MessageOf(err))
	assert.Contains(t, err.Error(), "deadlock")
}

func TestCodeOfDefaultsToInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("unclassified")))
	assert.Equal(t, "internal error", MessageOf(errors.New("unclassified")))
}
