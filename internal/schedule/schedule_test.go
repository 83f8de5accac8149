package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geoasistencia/internal/presence"
	dErrors "geoasistencia/pkg/domain-errors"
)

func TestParse(t *testing.T) {
	t.Run("accepts a valid window", func(t *testing.T) {
		s, err := Parse("08:00", "17:00")
		require.NoError(t, err)
		assert.Equal(t, Schedule{Entry: "08:00", Exit: "17:00"}, s)
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		s, err := Parse(" 08:00 ", "17:00\n")
		require.NoError(t, err)
		assert.Equal(t, "08:00", s.Entry)
	})

	t.Run("rejects entry at or after exit", func(t *testing.T) {
		for _, pair := range [][2]string{{"09:00", "08:00"}, {"08:00", "08:00"}} {
			_, err := Parse(pair[0], pair[1])
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})

	t.Run("rejects malformed times", func(t *testing.T) {
		bad := []string{"8:00", "24:00", "08:60", "0800", "08:00:00", "ocho"}
		for _, raw := range bad {
			_, err := Parse(raw, "17:00")
			require.Error(t, err, raw)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), raw)
		}
	})

	t.Run("rejects empty times", func(t *testing.T) {
		_, err := Parse("", "17:00")
		require.Error(t, err)
		_, err = Parse("08:00", "")
		require.Error(t, err)
	})
}

func TestClassify(t *testing.T) {
	s := Schedule{Entry: "08:00", Exit: "17:00"}

	t.Run("entrada at the boundary is on time", func(t *testing.T) {
		assert.Equal(t, OnTime, s.Classify(presence.Entrada, "08:00"))
	})

	t.Run("entrada one minute past is late", func(t *testing.T) {
		assert.Equal(t, Late, s.Classify(presence.Entrada, "08:01"))
	})

	t.Run("entrada before the window is on time", func(t *testing.T) {
		assert.Equal(t, OnTime, s.Classify(presence.Entrada, "06:45"))
	})

	t.Run("salida at the boundary is on time", func(t *testing.T) {
		assert.Equal(t, OnTime, s.Classify(presence.Salida, "17:00"))
	})

	t.Run("salida past the exit is overtime", func(t *testing.T) {
		assert.Equal(t, Overtime, s.Classify(presence.Salida, "17:01"))
	})
}

func TestWallClock(t *testing.T) {
	loc, err := time.LoadLocation("America/Santiago")
	require.NoError(t, err)

	// Santiago runs UTC-3 in January (summer time).
	ts := time.Date(2025, time.January, 15, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, "09:30", WallClock(ts, loc))
	assert.Equal(t, "12:30", WallClock(ts, time.UTC))
}
