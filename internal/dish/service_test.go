package dish

import (
	"context"
	"errors"
	"testing"

	"dotted/internal/core"
	"dotted/internal/cycle"
	"dotted/internal/llm"
	"dotted/internal/realtime"
	"dotted/internal/storage"
	"dotted/internal/zone"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testSchedule = map[string]string{
	"SUGGESTING": "00:00",
	"VOTING":     "08:00",
	"BIDDING":    "11:00",
	"SOURCING":   "13:00",
	"ORDERING":   "14:00",
	"COMPLETED":  "21:00",
}

type failingLLM struct{}

func (failingLLM) SuggestDishes(context.Context, llm.SuggestRequest) ([]llm.DishIdea, error) {
	return nil, errors.New("quota exceeded")
}

type fixture struct {
	svc    *Service
	cycles *cycle.Service
	zones  *zone.Service
	zone   *zone.Zone
	cycle  *cycle.Cycle
	rec    *realtime.Recorder
	store  *storage.MemoryStore
}

func newFixture(t *testing.T, client llm.Client) *fixture {
	t.Helper()
	ctx := context.Background()

	zones := zone.NewService(zone.NewMemoryRepository())
	z, err := zones.Create(ctx, zone.CreateInput{Slug: "hsr", Name: "HSR Layout", City: "Bengaluru"})
	require.NoError(t, err)

	schedule, err := cycle.NewSchedule(testSchedule)
	require.NoError(t, err)
	cycles := cycle.NewService(cycle.NewMemoryRepository(), zones, schedule, nil, zap.NewNop())
	c, err := cycles.Open(ctx, z.ID, "2026-03-10")
	require.NoError(t, err)

	f := &fixture{
		cycles: cycles,
		zones:  zones,
		zone:   z,
		cycle:  c,
		rec:    &realtime.Recorder{},
		store:  storage.NewMemoryStore(),
	}
	f.svc = NewService(NewMemoryRepository(), cycles, zones, zones, client, f.store, f.rec,
		Options{MinSuggestions: 3, MaxSuggestions: 5}, zap.NewNop())
	return f
}

func (f *fixture) advance(t *testing.T) {
	t.Helper()
	c, err := f.cycles.ForceAdvance(context.Background(), f.cycle.ID)
	require.NoError(t, err)
	f.cycle = c
}

func TestEnsureSuggestionsTopsUpToMinimum(t *testing.T) {
	f := newFixture(t, llm.NewStatic())
	ctx := context.Background()

	_, err := f.svc.AddDish(ctx, f.cycle.ID, AddInput{
		Name:        "Ragi Mudde",
		Ingredients: []Ingredient{{Name: "ragi flour", Quantity: 120, Unit: "g"}},
	})
	require.NoError(t, err)

	n, err := f.svc.EnsureSuggestions(ctx, f.cycle)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	dishes, err := f.svc.List(ctx, f.cycle.ID)
	require.NoError(t, err)
	require.Len(t, dishes, 3)
	assert.Equal(t, SourceAdmin, dishes[0].Source)
	assert.Equal(t, SourceAI, dishes[1].Source)
	assert.InDelta(t, 0.12, dishes[0].Ingredients[0].Quantity, 1e-9)
	assert.Equal(t, core.UnitKg, dishes[0].Ingredients[0].Unit)

	// Already at the minimum.
	n, err = f.svc.EnsureSuggestions(ctx, f.cycle)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	more, err := f.svc.Suggest(ctx, f.cycle.ID)
	require.NoError(t, err)
	assert.Len(t, more, 2, "suggest fills up to the maximum")
}

func TestSuggestFallsBackWhenModelFails(t *testing.T) {
	f := newFixture(t, failingLLM{})

	n, err := f.svc.EnsureSuggestions(context.Background(), f.cycle)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSuggestOnlyWhileSuggesting(t *testing.T) {
	f := newFixture(t, llm.NewStatic())
	f.advance(t)

	_, err := f.svc.Suggest(context.Background(), f.cycle.ID)
	assert.ErrorIs(t, err, core.ErrPhaseClosed)

	_, err = f.svc.AddDish(context.Background(), f.cycle.ID, AddInput{
		Name:        "Late Dish",
		Ingredients: []Ingredient{{Name: "rice", Quantity: 1, Unit: "kg"}},
	})
	assert.ErrorIs(t, err, core.ErrPhaseClosed)
}

func TestAddDishValidates(t *testing.T) {
	f := newFixture(t, llm.NewStatic())
	ctx := context.Background()

	_, err := f.svc.AddDish(ctx, f.cycle.ID, AddInput{
		Name:        "Mystery",
		Ingredients: []Ingredient{{Name: "stuff", Quantity: 1, Unit: "handful"}},
	})
	assert.ErrorIs(t, err, core.ErrInvalid)

	_, err = f.svc.AddDish(ctx, f.cycle.ID, AddInput{Name: "Nothing"})
	assert.ErrorIs(t, err, core.ErrInvalid)

	in := AddInput{Name: "Idli", Ingredients: []Ingredient{{Name: "rice", Quantity: 1, Unit: "kg"}}}
	_, err = f.svc.AddDish(ctx, f.cycle.ID, in)
	require.NoError(t, err)
	in.Name = "IDLI"
	_, err = f.svc.AddDish(ctx, f.cycle.ID, in)
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestVoting(t *testing.T) {
	f := newFixture(t, llm.NewStatic())
	ctx := context.Background()

	_, err := f.svc.EnsureSuggestions(ctx, f.cycle)
	require.NoError(t, err)
	dishes, err := f.svc.List(ctx, f.cycle.ID)
	require.NoError(t, err)

	_, err = f.zones.Join(ctx, "alice", f.zone.ID)
	require.NoError(t, err)
	_, err = f.zones.Join(ctx, "bob", f.zone.ID)
	require.NoError(t, err)

	_, _, err = f.svc.Vote(ctx, f.cycle.ID, "alice", dishes[0].ID)
	assert.ErrorIs(t, err, core.ErrPhaseClosed, "voting has not opened")

	f.advance(t)

	_, _, err = f.svc.Vote(ctx, f.cycle.ID, "mallory", dishes[0].ID)
	assert.ErrorIs(t, err, ErrNotMember)

	_, _, err = f.svc.Vote(ctx, f.cycle.ID, "alice", "not-a-dish")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, _, err = f.svc.Vote(ctx, f.cycle.ID, "alice", dishes[0].ID)
	require.NoError(t, err)
	_, tally, err := f.svc.Vote(ctx, f.cycle.ID, "alice", dishes[2].ID)
	require.NoError(t, err)

	assert.Equal(t, dishes[2].ID, tally[0].DishID, "re-vote moves the vote")
	assert.Equal(t, 1, tally[0].Votes)
	assert.Equal(t, 0, tally[1].Votes)
	assert.Equal(t, dishes[0].ID, tally[1].DishID, "zero-vote dishes keep suggestion order")

	mine, err := f.svc.MyVote(ctx, f.cycle.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, dishes[2].ID, mine.DishID)

	events := f.rec.Of(realtime.EventVoteUpdated)
	require.Len(t, events, 2)
	assert.Equal(t, realtime.CycleRoom(f.cycle.ID), events[1].Room)
	assert.Contains(t, string(events[1].Payload), `"total":1`)
}

func TestPickWinner(t *testing.T) {
	f := newFixture(t, llm.NewStatic())
	ctx := context.Background()

	_, err := f.svc.EnsureSuggestions(ctx, f.cycle)
	require.NoError(t, err)
	dishes, err := f.svc.List(ctx, f.cycle.ID)
	require.NoError(t, err)
	f.advance(t)

	_, err = f.svc.PickWinner(ctx, f.cycle)
	assert.ErrorIs(t, err, cycle.ErrCancelCycle)

	for _, u := range []string{"a", "b"} {
		_, err := f.zones.Join(ctx, u, f.zone.ID)
		require.NoError(t, err)
	}
	// One vote each for the second and third dish: the earlier one wins.
	_, _, err = f.svc.Vote(ctx, f.cycle.ID, "a", dishes[2].ID)
	require.NoError(t, err)
	_, _, err = f.svc.Vote(ctx, f.cycle.ID, "b", dishes[1].ID)
	require.NoError(t, err)

	winner, err := f.svc.PickWinner(ctx, f.cycle)
	require.NoError(t, err)
	assert.Equal(t, dishes[1].ID, winner)
}
