package neighborhood

import (
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

func buildNeighborhoodRef() *entity.ReferenceData {
	surgeonID := entity.SurgeonID(1)
	surgeries := []entity.Surgery{
		{ID: 1, TypeID: 1, Duration: time.Hour, RequiredSurgeonID: &surgeonID},
		{ID: 2, TypeID: 2, Duration: time.Hour, RequiredSurgeonID: &surgeonID},
		{ID: 3, TypeID: 1, Duration: 30 * time.Minute},
	}
	types := []entity.SurgeryType{{ID: 1, Name: "Hip"}, {ID: 2, Name: "Knee"}}
	surgeons := []entity.Surgeon{{ID: 1, GeneralAvailable: true}}
	rooms := []entity.OperatingRoom{
		{ID: 1, OperationalStart: 8 * 60, DailySpan: 10 * time.Hour},
		{ID: 2, OperationalStart: 8 * 60, DailySpan: 10 * time.Hour},
	}
	return entity.NewReferenceData(ts(0, 0), surgeries, types, surgeons, rooms, nil, nil, nil, nil)
}

func newTestGenerator(ref *entity.ReferenceData) *Generator {
	oracle := feasibility.New(ref, feasibility.Config{}, nil)
	return New(ref, oracle, DefaultConfig(), rand.New(rand.NewSource(42)))
}

type noopTabu struct{}

func (noopTabu) IsTabu(entity.TabuMove) bool { return false }

func TestGenerateProducesFeasibleCandidates(t *testing.T) {
	ref := buildNeighborhoodRef()
	g := newTestGenerator(ref)

	incumbent := entity.Schedule{
		{SurgeryID: 1, RoomID: 1, Start: ts(9, 0), End: ts(10, 0)},
		{SurgeryID: 2, RoomID: 1, Start: ts(10, 15), End: ts(11, 15)},
		{SurgeryID: 3, RoomID: 2, Start: ts(9, 0), End: ts(9, 30)},
	}

	candidates := g.Generate(incumbent, noopTabu{}, nil)
	require.NotEmpty(t, candidates)

	oracle := feasibility.New(ref, feasibility.Config{}, nil)
	for _, c := range candidates {
		assert.True(t, oracle.ScheduleFeasible(c.Schedule), "candidate from move %v must be feasible", c.Move)
	}
}

func TestGenerateEmptyIncumbentReturnsNoCandidates(t *testing.T) {
	ref := buildNeighborhoodRef()
	g := newTestGenerator(ref)

	assert.Empty(t, g.Generate(nil, noopTabu{}, nil))
}

type allTabu struct{}

func (allTabu) IsTabu(entity.TabuMove) bool { return true }

func TestGenerateRespectsTabuWithoutAspiration(t *testing.T) {
	ref := buildNeighborhoodRef()
	g := newTestGenerator(ref)

	incumbent := entity.Schedule{
		{SurgeryID: 1, RoomID: 1, Start: ts(9, 0), End: ts(10, 0)},
		{SurgeryID: 3, RoomID: 2, Start: ts(9, 0), End: ts(9, 30)},
	}

	candidates := g.Generate(incumbent, allTabu{}, nil)
	assert.Empty(t, candidates)
}

func TestGenerateAspirationOverridesTabu(t *testing.T) {
	ref := buildNeighborhoodRef()
	g := newTestGenerator(ref)

	incumbent := entity.Schedule{
		{SurgeryID: 1, RoomID: 1, Start: ts(9, 0), End: ts(10, 0)},
		{SurgeryID: 3, RoomID: 2, Start: ts(9, 0), End: ts(9, 30)},
	}

	alwaysAspire := func(entity.TabuMove, entity.Schedule) bool { return true }
	candidates := g.Generate(incumbent, allTabu{}, alwaysAspire)
	assert.NotEmpty(t, candidates)
}

func TestBuildInitialSolutionCoversAllSurgeries(t *testing.T) {
	ref := buildNeighborhoodRef()
	g := newTestGenerator(ref)

	sched := g.BuildInitialSolution(ts(0, 0))
	assert.Len(t, sched, len(ref.Surgeries()))

	oracle := feasibility.New(ref, feasibility.Config{}, nil)
	assert.True(t, oracle.ScheduleFeasible(sched))
}
