package tabu

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedcu/surgopt/internal/entity"
)

func move(id entity.SurgeryID) entity.TabuMove {
	return entity.TabuMove{Kind: entity.MoveKindShiftTime, SurgeryID: id, DeltaMinutes: 15}
}

func TestAddMakesMoveTabu(t *testing.T) {
	l := New(10, 0, 0, rand.New(rand.NewSource(1)))
	l.Add(move(1), 5)

	assert.True(t, l.IsTabu(move(1)))
	assert.Equal(t, 5, l.Tenure(move(1)))
}

func TestDecrementAllExpiresEntries(t *testing.T) {
	l := New(10, 0, 0, rand.New(rand.NewSource(1)))
	l.Add(move(1), 1)

	l.DecrementAll()
	assert.False(t, l.IsTabu(move(1)))
}

func TestDecrementAllReducesWithoutExpiring(t *testing.T) {
	l := New(10, 0, 0, rand.New(rand.NewSource(1)))
	l.Add(move(1), 3)

	l.DecrementAll()
	assert.True(t, l.IsTabu(move(1)))
	assert.Equal(t, 2, l.Tenure(move(1)))
}

func TestClearRemovesAllEntries(t *testing.T) {
	l := New(10, 0, 0, rand.New(rand.NewSource(1)))
	l.Add(move(1), 5)
	l.Add(move(2), 5)

	l.Clear()
	assert.Equal(t, 0, l.Len())
}

func TestBoostMultipliesTenuresAndRange(t *testing.T) {
	l := New(10, 4, 10, rand.New(rand.NewSource(1)))
	l.Add(move(1), 4)

	l.Boost(2.0, 3)
	assert.Equal(t, 8, l.Tenure(move(1)))
	assert.Equal(t, 8, l.MinTenure())
	assert.Equal(t, 20, l.MaxTenure())
}

func TestBoostAutoRevertsAfterDuration(t *testing.T) {
	l := New(10, 4, 10, rand.New(rand.NewSource(1)))
	l.Boost(2.0, 2)

	require.Equal(t, 8, l.MinTenure())
	require.Equal(t, 20, l.MaxTenure())

	l.DecrementAll()
	assert.Equal(t, 8, l.MinTenure(), "range must stay boosted until duration elapses")

	l.DecrementAll()
	assert.Equal(t, 4, l.MinTenure(), "range must revert once duration elapses")
	assert.Equal(t, 10, l.MaxTenure())
}

func TestAddSamplesWithinConfiguredRange(t *testing.T) {
	l := New(10, 3, 5, rand.New(rand.NewSource(7)))
	for i := 0; i < 20; i++ {
		l.Add(move(entity.SurgeryID(i)), 0)
		tenure := l.Tenure(move(entity.SurgeryID(i)))
		assert.GreaterOrEqual(t, tenure, 3)
		assert.LessOrEqual(t, tenure, 5)
	}
}
