package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "geoasistencia/pkg/domain-errors"
)

func TestTransition(t *testing.T) {
	t.Run("ENTRADA from OUT moves to IN", func(t *testing.T) {
		next, err := Transition(Out, Entrada)
		require.NoError(t, err)
		assert.Equal(t, In, next)
	})

	t.Run("SALIDA from IN moves to OUT", func(t *testing.T) {
		next, err := Transition(In, Salida)
		require.NoError(t, err)
		assert.Equal(t, Out, next)
	})

	t.Run("ENTRADA from IN conflicts and keeps state", func(t *testing.T) {
		next, err := Transition(In, Entrada)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
		assert.Equal(t, In, next)
	})

	t.Run("SALIDA from OUT conflicts and keeps state", func(t *testing.T) {
		next, err := Transition(Out, Salida)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
		assert.Equal(t, Out, next)
	})

	t.Run("machine cycles indefinitely", func(t *testing.T) {
		state := Out
		for i := 0; i < 3; i++ {
			var err error
			state, err = Transition(state, Entrada)
			require.NoError(t, err)
			state, err = Transition(state, Salida)
			require.NoError(t, err)
		}
		assert.Equal(t, Out, state)
	})
}

func TestParseEventType(t *testing.T) {
	t.Run("accepts ENTRADA and SALIDA", func(t *testing.T) {
		for _, raw := range []string{"ENTRADA", "SALIDA"} {
			parsed, err := ParseEventType(raw)
			require.NoError(t, err)
			assert.Equal(t, EventType(raw), parsed)
		}
	})

	t.Run("rejects anything else", func(t *testing.T) {
		for _, raw := range []string{"", "entrada", "CHECKIN", "ENTRADA "} {
			_, err := ParseEventType(raw)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})
}
