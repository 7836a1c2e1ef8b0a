package optimizer

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedcu/surgopt/internal/entity"
	"github.com/schedcu/surgopt/internal/feasibility"
)

func ts(hour, minute int) time.Time {
	return time.Date(2025, 1, 15, hour, minute, 0, 0, time.UTC)
}

func buildOptimizerRef() *entity.ReferenceData {
	surgeries := []entity.Surgery{
		{ID: 1, TypeID: 1, Duration: time.Hour, Urgency: entity.UrgencyHigh},
		{ID: 2, TypeID: 2, Duration: 90 * time.Minute, Urgency: entity.UrgencyMedium},
		{ID: 3, TypeID: 1, Duration: 45 * time.Minute, Urgency: entity.UrgencyLow},
		{ID: 4, TypeID: 2, Duration: time.Hour, Urgency: entity.UrgencyMedium},
	}
	types := []entity.SurgeryType{{ID: 1, Name: "Hip"}, {ID: 2, Name: "Knee"}}
	rooms := []entity.OperatingRoom{
		{ID: 1, OperationalStart: 8 * 60, DailySpan: 10 * time.Hour},
		{ID: 2, OperationalStart: 8 * 60, DailySpan: 10 * time.Hour},
	}
	return entity.NewReferenceData(ts(0, 0), surgeries, types, nil, rooms, nil, nil, nil, nil)
}

func newTestDriver(ref *entity.ReferenceData) *Driver {
	oracle := feasibility.New(ref, feasibility.Config{}, nil)
	return New(ref, oracle, rand.New(rand.NewSource(7)))
}

func TestOptimizeBasicTabuImprovesOrTerminatesCleanly(t *testing.T) {
	ref := buildOptimizerRef()
	d := newTestDriver(ref)

	params := DefaultParams()
	params.MaxIterations = 25
	params.MaxNoImprovement = 25
	params.Algorithm = BasicTabu

	result, err := d.Optimize(context.Background(), params, nil)
	require.NoError(t, err)

	require.NotEmpty(t, result.Best)
	assert.Len(t, result.Best, len(ref.Surgeries()))
	assert.NotEmpty(t, result.Convergence)

	oracle := feasibility.New(ref, feasibility.Config{}, nil)
	assert.True(t, oracle.ScheduleFeasible(result.Best))
}

func TestOptimizeRespectsContextCancellation(t *testing.T) {
	ref := buildOptimizerRef()
	d := newTestDriver(ref)

	params := DefaultParams()
	params.MaxIterations = 1000
	params.MaxNoImprovement = 1000

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := d.Optimize(ctx, params, nil)
	require.NoError(t, err)
	assert.Equal(t, TerminatedCancelled, result.Reason)
}

func TestOptimizeAdaptiveTabuRunsWithoutError(t *testing.T) {
	ref := buildOptimizerRef()
	d := newTestDriver(ref)

	params := DefaultParams()
	params.Algorithm = AdaptiveTabu
	params.MinTabuTenure = 3
	params.MaxTabuTenure = 20
	params.MaxIterations = 30
	params.MaxNoImprovement = 30

	result, err := d.Optimize(context.Background(), params, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Convergence)
}

func TestOptimizeReactiveTabuRunsWithoutError(t *testing.T) {
	ref := buildOptimizerRef()
	d := newTestDriver(ref)

	params := DefaultParams()
	params.Algorithm = ReactiveTabu
	params.MaxIterations = 30
	params.MaxNoImprovement = 30

	result, err := d.Optimize(context.Background(), params, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Convergence)
}

func TestOptimizeHybridTabuRunsWithoutError(t *testing.T) {
	ref := buildOptimizerRef()
	d := newTestDriver(ref)

	params := DefaultParams()
	params.Algorithm = HybridTabu
	params.MinTabuTenure = 3
	params.MaxTabuTenure = 20
	params.MaxIterations = 30
	params.MaxNoImprovement = 30

	result, err := d.Optimize(context.Background(), params, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Convergence)
}

func TestOptimizeInvokesProgressCallbackAtInterval(t *testing.T) {
	ref := buildOptimizerRef()
	d := newTestDriver(ref)

	params := DefaultParams()
	params.MaxIterations = 20
	params.MaxNoImprovement = 20
	params.ProgressUpdateInterval = 5

	var updates []Update
	_, err := d.Optimize(context.Background(), params, func(u Update) {
		updates = append(updates, u)
	})
	require.NoError(t, err)
	require.NotEmpty(t, updates)
	for _, u := range updates {
		assert.Equal(t, 0, u.Iteration%5)
	}
}

func TestOptimizeTerminatesOnNoImprovement(t *testing.T) {
	ref := buildOptimizerRef()
	d := newTestDriver(ref)

	params := DefaultParams()
	params.MaxIterations = 10000
	params.MaxNoImprovement = 3
	params.DiversificationThreshold = 0

	result, err := d.Optimize(context.Background(), params, nil)
	require.NoError(t, err)
	assert.Equal(t, TerminatedNoImprovement, result.Reason)
}

func TestHashSolutionStructureStableAcrossTimeOnlyChanges(t *testing.T) {
	a := entity.Schedule{
		{SurgeryID: 1, RoomID: 1, Start: ts(9, 0), End: ts(10, 0)},
		{SurgeryID: 2, RoomID: 2, Start: ts(9, 0), End: ts(10, 30)},
	}
	b := entity.Schedule{
		{SurgeryID: 1, RoomID: 1, Start: ts(11, 0), End: ts(12, 0)},
		{SurgeryID: 2, RoomID: 2, Start: ts(13, 0), End: ts(14, 30)},
	}
	assert.Equal(t, hashSolutionStructure(a), hashSolutionStructure(b))
}

func TestHashSolutionStructureDiffersOnRoomChange(t *testing.T) {
	a := entity.Schedule{{SurgeryID: 1, RoomID: 1, Start: ts(9, 0), End: ts(10, 0)}}
	b := entity.Schedule{{SurgeryID: 1, RoomID: 2, Start: ts(9, 0), End: ts(10, 0)}}
	assert.NotEqual(t, hashSolutionStructure(a), hashSolutionStructure(b))
}
