package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pianova-hub/piano-progression-hub/internal/domain/shared"
)

func validThresholds() []LevelThreshold {
	return []LevelThreshold{
		{Level: 1, MinXP: 0, MaxXP: BoundedXP(99), Label: "Beginner"},
		{Level: 2, MinXP: 100, MaxXP: BoundedXP(299), Label: "Student"},
		{Level: 3, MinXP: 300, MaxXP: BoundedXP(599), Label: "Performer"},
		{Level: 4, MinXP: 600, MaxXP: nil, Label: "Virtuoso"},
	}
}

func TestNewLevelTable_Valid(t *testing.T) {
	table, err := NewLevelTable(validThresholds())
	require.NoError(t, err)
	assert.Equal(t, 4, table.Len())
}

func TestNewLevelTable_SortsInput(t *testing.T) {
	shuffled := []LevelThreshold{
		{Level: 4, MinXP: 600, MaxXP: nil, Label: "Virtuoso"},
		{Level: 1, MinXP: 0, MaxXP: BoundedXP(99), Label: "Beginner"},
		{Level: 3, MinXP: 300, MaxXP: BoundedXP(599), Label: "Performer"},
		{Level: 2, MinXP: 100, MaxXP: BoundedXP(299), Label: "Student"},
	}

	table, err := NewLevelTable(shuffled)
	require.NoError(t, err)

	ordered := table.Thresholds()
	assert.Equal(t, Level(1), ordered[0].Level)
	assert.Equal(t, Level(4), ordered[3].Level)
}

func TestNewLevelTable_Empty(t *testing.T) {
	_, err := NewLevelTable(nil)
	assert.ErrorIs(t, err, shared.ErrConfiguration)
}

func TestNewLevelTable_FirstMustStartAtZero(t *testing.T) {
	_, err := NewLevelTable([]LevelThreshold{
		{Level: 1, MinXP: 10, MaxXP: nil},
	})
	assert.ErrorIs(t, err, shared.ErrConfiguration)
}

func TestNewLevelTable_Gap(t *testing.T) {
	_, err := NewLevelTable([]LevelThreshold{
		{Level: 1, MinXP: 0, MaxXP: BoundedXP(99)},
		{Level: 2, MinXP: 101, MaxXP: nil},
	})
	assert.ErrorIs(t, err, shared.ErrConfiguration)
}

func TestNewLevelTable_Overlap(t *testing.T) {
	_, err := NewLevelTable([]LevelThreshold{
		{Level: 1, MinXP: 0, MaxXP: BoundedXP(99)},
		{Level: 2, MinXP: 99, MaxXP: nil},
	})
	assert.ErrorIs(t, err, shared.ErrConfiguration)
}

func TestNewLevelTable_TopMustBeUnbounded(t *testing.T) {
	_, err := NewLevelTable([]LevelThreshold{
		{Level: 1, MinXP: 0, MaxXP: BoundedXP(99)},
		{Level: 2, MinXP: 100, MaxXP: BoundedXP(199)},
	})
	assert.ErrorIs(t, err, shared.ErrConfiguration)
}

func TestNewLevelTable_UnboundedOnlyAtTop(t *testing.T) {
	_, err := NewLevelTable([]LevelThreshold{
		{Level: 1, MinXP: 0, MaxXP: nil},
		{Level: 2, MinXP: 100, MaxXP: nil},
	})
	assert.ErrorIs(t, err, shared.ErrConfiguration)
}

func TestNewLevelTable_MaxBelowMin(t *testing.T) {
	_, err := NewLevelTable([]LevelThreshold{
		{Level: 1, MinXP: 0, MaxXP: BoundedXP(-1)},
		{Level: 2, MinXP: 0, MaxXP: nil},
	})
	assert.ErrorIs(t, err, shared.ErrConfiguration)
}

func TestLevelFor_BoundaryValues(t *testing.T) {
	table, err := NewLevelTable(validThresholds())
	require.NoError(t, err)

	cases := []struct {
		xp    XP
		level Level
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{299, 2},
		{300, 3},
		{600, 4},
		{1_000_000, 4},
	}
	for _, tc := range cases {
		th, err := table.LevelFor(tc.xp)
		require.NoError(t, err)
		assert.Equal(t, tc.level, th.Level, "xp=%d", tc.xp)
	}
}

func TestLevelFor_NegativeXP(t *testing.T) {
	table, err := NewLevelTable(validThresholds())
	require.NoError(t, err)

	_, err = table.LevelFor(-1)
	assert.ErrorIs(t, err, shared.ErrNegativeValue)
}

func TestLevelFor_Monotonic(t *testing.T) {
	table, err := NewLevelTable(validThresholds())
	require.NoError(t, err)

	prev := Level(0)
	for xp := XP(0); xp <= 700; xp++ {
		th, err := table.LevelFor(xp)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, th.Level, prev, "level dropped at xp=%d", xp)
		prev = th.Level
	}
}

func TestThresholds_ReturnsCopy(t *testing.T) {
	table, err := NewLevelTable(validThresholds())
	require.NoError(t, err)

	out := table.Thresholds()
	out[0].Level = 99

	again := table.Thresholds()
	assert.Equal(t, Level(1), again[0].Level)
}
