package bid

import (
	"context"
	"sync"
	"testing"
	"time"

	"dotted/internal/config"
	"dotted/internal/core"
	"dotted/internal/cycle"
	"dotted/internal/realtime"
	"dotted/internal/zone"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRestaurants map[string]*core.RestaurantInfo

func (f fakeRestaurants) RestaurantInfo(_ context.Context, id string) (*core.RestaurantInfo, error) {
	r, ok := f[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return r, nil
}

type fakeQuality map[string]float64

func (f fakeQuality) OverallAverage(_ context.Context, id string) (float64, int, error) {
	avg, ok := f[id]
	if !ok {
		return 0, 0, nil
	}
	return avg, 4, nil
}

type fixture struct {
	svc    *Service
	cycles *cycle.Service
	cycle  *cycle.Cycle
	rec    *realtime.Recorder
	rest   fakeRestaurants
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	zones := zone.NewService(zone.NewMemoryRepository())
	z, err := zones.Create(ctx, zone.CreateInput{Slug: "btm", Name: "BTM Layout", City: "Bengaluru"})
	require.NoError(t, err)
	other, err := zones.Create(ctx, zone.CreateInput{Slug: "whitefield", Name: "Whitefield", City: "Bengaluru"})
	require.NoError(t, err)

	schedule, err := cycle.NewSchedule(config.Default().Cycle.Schedule)
	require.NoError(t, err)
	cycles := cycle.NewService(cycle.NewMemoryRepository(), zones, schedule, nil, zap.NewNop())
	c, err := cycles.Open(ctx, z.ID, "2026-03-10")
	require.NoError(t, err)

	f := &fixture{
		cycles: cycles,
		cycle:  c,
		rec:    &realtime.Recorder{},
		rest: fakeRestaurants{
			"r-good":  {ID: "r-good", OwnerID: "chef-a", ZoneID: z.ID, Name: "Good Food"},
			"r-new":   {ID: "r-new", OwnerID: "chef-b", ZoneID: z.ID, Name: "New Kid"},
			"r-other": {ID: "r-other", OwnerID: "chef-c", ZoneID: other.ID, Name: "Far Away"},
		},
	}
	f.svc = NewService(NewMemoryRepository(), cycles, f.rest, fakeQuality{"r-good": 4.5},
		f.rec, config.Default().Optimization, zap.NewNop())
	return f
}

func (f *fixture) toBidding(t *testing.T) {
	t.Helper()
	for f.cycle.Phase != cycle.PhaseBidding {
		c, err := f.cycles.ForceAdvance(context.Background(), f.cycle.ID)
		require.NoError(t, err)
		f.cycle = c
	}
}

func TestPlaceRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := PlaceInput{RestaurantID: "r-good", PricePerServing: 150, PrepMinutes: 45, Capacity: 80}

	_, err := f.svc.Place(ctx, f.cycle.ID, "chef-a", in)
	assert.ErrorIs(t, err, core.ErrPhaseClosed)

	f.toBidding(t)

	_, err = f.svc.Place(ctx, f.cycle.ID, "chef-b", in)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = f.svc.Place(ctx, f.cycle.ID, "chef-c", PlaceInput{RestaurantID: "r-other", PricePerServing: 100, PrepMinutes: 30, Capacity: 50})
	assert.ErrorIs(t, err, ErrWrongZone)

	for _, bad := range []PlaceInput{
		{RestaurantID: "r-good", PricePerServing: 0, PrepMinutes: 45, Capacity: 80},
		{RestaurantID: "r-good", PricePerServing: 10, PrepMinutes: 241, Capacity: 80},
		{RestaurantID: "r-good", PricePerServing: 10, PrepMinutes: 45, Capacity: 1001},
	} {
		_, err = f.svc.Place(ctx, f.cycle.ID, "chef-a", bad)
		assert.ErrorIs(t, err, core.ErrInvalid)
	}

	first, err := f.svc.Place(ctx, f.cycle.ID, "chef-a", in)
	require.NoError(t, err)
	in.PricePerServing = 140
	second, err := f.svc.Place(ctx, f.cycle.ID, "chef-a", in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "re-bidding replaces")

	bids, err := f.svc.List(ctx, f.cycle.ID)
	require.NoError(t, err)
	require.Len(t, bids, 1)
	assert.Equal(t, 140.0, bids[0].PricePerServing)

	assert.Len(t, f.rec.Of(realtime.EventBidPlaced), 2)
}

func TestSelectWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.toBidding(t)

	_, err := f.svc.SelectWinner(ctx, f.cycle)
	assert.ErrorIs(t, err, cycle.ErrCancelCycle)

	// The newcomer is cheaper, but the rated restaurant wins on quality
	// and capacity.
	_, err = f.svc.Place(ctx, f.cycle.ID, "chef-a", PlaceInput{RestaurantID: "r-good", PricePerServing: 110, PrepMinutes: 40, Capacity: 100})
	require.NoError(t, err)
	_, err = f.svc.Place(ctx, f.cycle.ID, "chef-b", PlaceInput{RestaurantID: "r-new", PricePerServing: 100, PrepMinutes: 40, Capacity: 30})
	require.NoError(t, err)

	winnerID, err := f.svc.SelectWinner(ctx, f.cycle)
	require.NoError(t, err)

	winner, err := f.svc.Get(ctx, winnerID)
	require.NoError(t, err)
	assert.Equal(t, "r-good", winner.RestaurantID)
	assert.Equal(t, StatusWon, winner.Status)
	require.NotNil(t, winner.Score)

	bids, err := f.svc.List(ctx, f.cycle.ID)
	require.NoError(t, err)
	for _, b := range bids {
		if b.ID != winnerID {
			assert.Equal(t, StatusLost, b.Status)
			assert.Less(t, *b.Score, *winner.Score)
		}
	}

	selected := f.rec.Of(realtime.EventBidSelected)
	require.Len(t, selected, 2)
	assert.Equal(t, realtime.CycleRoom(f.cycle.ID), selected[0].Room)
	assert.Equal(t, realtime.UserRoom("chef-a"), selected[1].Room)

	prices, err := f.svc.WinningPrices(ctx, f.cycle.ZoneID, 10)
	require.NoError(t, err)
	assert.Equal(t, []float64{110}, prices)
}

func TestHotReloadedWeightsChangeTheWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.toBidding(t)

	_, err := f.svc.Place(ctx, f.cycle.ID, "chef-a", PlaceInput{RestaurantID: "r-good", PricePerServing: 110, PrepMinutes: 40, Capacity: 100})
	require.NoError(t, err)
	cheap, err := f.svc.Place(ctx, f.cycle.ID, "chef-b", PlaceInput{RestaurantID: "r-new", PricePerServing: 100, PrepMinutes: 40, Capacity: 30})
	require.NoError(t, err)

	opt := config.Default().Optimization
	opt.Bid = config.BidWeights{Price: 1}
	f.svc.SetOptimization(opt)

	ranking, err := f.svc.Rank(ctx, f.cycle.ID)
	require.NoError(t, err)
	assert.Equal(t, cheap.ID, ranking[0].BidID)
}

func TestReserveNeverExceedsCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.toBidding(t)

	b, err := f.svc.Place(ctx, f.cycle.ID, "chef-a", PlaceInput{RestaurantID: "r-good", PricePerServing: 110, PrepMinutes: 40, Capacity: 25})
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Reserve(ctx, b.ID, 2); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ErrCapacityExceeded)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 12, accepted)
	got, err := f.svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 24, got.Reserved)
	assert.Equal(t, 1, got.Remaining())

	require.NoError(t, f.svc.Release(ctx, b.ID, 4))
	got, err = f.svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, got.Reserved)

	_, err = f.svc.Reserve(ctx, b.ID, 0)
	assert.ErrorIs(t, err, core.ErrInvalid)
}

type staleCycles struct {
	Cycles
	snapshot *cycle.Cycle
	served   bool
}

func (s *staleCycles) Get(ctx context.Context, id string) (*cycle.Cycle, error) {
	if !s.served {
		s.served = true
		cp := *s.snapshot
		return &cp, nil
	}
	return s.Cycles.Get(ctx, id)
}

func TestBidsAfterSelectionAreRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.toBidding(t)

	in := PlaceInput{RestaurantID: "r-good", PricePerServing: 150, PrepMinutes: 45, Capacity: 80}
	won, err := f.svc.Place(ctx, f.cycle.ID, "chef-a", in)
	require.NoError(t, err)
	snapshot := *f.cycle
	_, err = f.svc.SelectWinner(ctx, f.cycle)
	require.NoError(t, err)
	c, err := f.cycles.ForceAdvance(ctx, f.cycle.ID)
	require.NoError(t, err)
	require.Equal(t, cycle.PhaseSourcing, c.Phase)

	// A re-bid that read the cycle before selection cannot reprice the winner.
	repo := f.svc.repo
	stale := NewService(repo, &staleCycles{Cycles: f.cycles, snapshot: &snapshot}, f.rest, fakeQuality{},
		f.rec, config.Default().Optimization, zap.NewNop())
	in.PricePerServing = 99
	_, err = stale.Place(ctx, f.cycle.ID, "chef-a", in)
	assert.ErrorIs(t, err, ErrBiddingClosed)
	got, err := f.svc.Get(ctx, won.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusWon, got.Status)
	assert.Equal(t, 150.0, got.PricePerServing)

	// A first bid that lands after selection is stored as lost.
	stale = NewService(repo, &staleCycles{Cycles: f.cycles, snapshot: &snapshot}, f.rest, fakeQuality{},
		f.rec, config.Default().Optimization, zap.NewNop())
	_, err = stale.Place(ctx, f.cycle.ID, "chef-b", PlaceInput{RestaurantID: "r-new", PricePerServing: 90, PrepMinutes: 30, Capacity: 40})
	require.ErrorIs(t, err, ErrBiddingClosed)
	assert.ErrorIs(t, err, core.ErrPhaseClosed)

	bids, err := f.svc.List(ctx, f.cycle.ID)
	require.NoError(t, err)
	require.Len(t, bids, 2)
	for _, b := range bids {
		assert.NotEqual(t, StatusPending, b.Status)
	}
}

func TestSettleClosesUnscoredBids(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.toBidding(t)

	_, err := f.svc.Place(ctx, f.cycle.ID, "chef-a", PlaceInput{RestaurantID: "r-good", PricePerServing: 150, PrepMinutes: 45, Capacity: 80})
	require.NoError(t, err)
	winnerID, err := f.svc.SelectWinner(ctx, f.cycle)
	require.NoError(t, err)

	late := &Bid{CycleID: f.cycle.ID, ZoneID: f.cycle.ZoneID, RestaurantID: "r-new", PricePerServing: 80, PrepMinutes: 20, Capacity: 30}
	require.NoError(t, f.svc.repo.Upsert(ctx, late))
	require.NoError(t, f.svc.Settle(ctx, f.cycle))

	got, err := f.svc.Get(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusLost, got.Status)
	winner, err := f.svc.Get(ctx, winnerID)
	require.NoError(t, err)
	assert.Equal(t, StatusWon, winner.Status)
}

func TestWinningPricesFollowSelectionOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	clock := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return clock }

	older := &Bid{CycleID: "c-mon", ZoneID: "z", RestaurantID: "r1", PricePerServing: 120, PrepMinutes: 30, Capacity: 20}
	newer := &Bid{CycleID: "c-tue", ZoneID: "z", RestaurantID: "r2", PricePerServing: 95, PrepMinutes: 30, Capacity: 20}
	require.NoError(t, repo.Upsert(ctx, older))
	require.NoError(t, repo.SaveResults(ctx, []Result{{BidID: older.ID, Score: 1, Status: StatusWon}}))

	clock = clock.Add(24 * time.Hour)
	require.NoError(t, repo.Upsert(ctx, newer))
	require.NoError(t, repo.SaveResults(ctx, []Result{{BidID: newer.ID, Score: 1, Status: StatusWon}}))

	// A late order against the older winner touches its row.
	clock = clock.Add(time.Hour)
	_, err := repo.Reserve(ctx, older.ID, 2)
	require.NoError(t, err)

	prices, err := repo.WinningPrices(ctx, "z", 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{95}, prices)

	prices, err = repo.WinningPrices(ctx, "z", 5)
	require.NoError(t, err)
	assert.Equal(t, []float64{95, 120}, prices)
}
