package supplier

import (
	"context"
	"testing"
	"time"

	"dotted/internal/bid"
	"dotted/internal/config"
	"dotted/internal/core"
	"dotted/internal/cycle"
	"dotted/internal/dish"
	"dotted/internal/llm"
	"dotted/internal/realtime"
	"dotted/internal/restaurant"
	"dotted/internal/storage"
	"dotted/internal/zone"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type noQuality struct{}

func (noQuality) OverallAverage(context.Context, string) (float64, int, error) { return 0, 0, nil }

type fixture struct {
	svc         *Service
	cycles      *cycle.Service
	dishes      *dish.Service
	bids        *bid.Service
	restaurants *restaurant.Service
	zones       *zone.Service
	zone        *zone.Zone
	cycle       *cycle.Cycle
	rec         *realtime.Recorder
	now         time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()
	cfg := config.Default()

	zones := zone.NewService(zone.NewMemoryRepository())
	z, err := zones.Create(ctx, zone.CreateInput{Slug: "koramangala", Name: "Koramangala", City: "Bengaluru", Lat: 12.9352, Lng: 77.6245})
	require.NoError(t, err)

	schedule, err := cycle.NewSchedule(cfg.Cycle.Schedule)
	require.NoError(t, err)
	rec := &realtime.Recorder{}
	cycles := cycle.NewService(cycle.NewMemoryRepository(), zones, schedule, rec, logger)

	restaurants := restaurant.NewService(restaurant.NewMemoryRepository(), zones, storage.NewMemoryStore(), zap.NewNop())
	dishes := dish.NewService(dish.NewMemoryRepository(), cycles, zones, zones, llm.NewStatic(),
		storage.NewMemoryStore(), rec, dish.Options{MinSuggestions: 1, MaxSuggestions: 3}, logger)
	bids := bid.NewService(bid.NewMemoryRepository(), cycles, restaurants, noQuality{}, rec, cfg.Optimization, logger)

	f := &fixture{
		cycles:      cycles,
		dishes:      dishes,
		bids:        bids,
		restaurants: restaurants,
		zones:       zones,
		zone:        z,
		rec:         rec,
		now:         time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(NewMemoryRepository(), zones, cycles, dishes, bids, restaurants, rec, cfg.Optimization, logger)
	f.svc.now = func() time.Time { return f.now }

	cycles.SetHooks(cycle.Hooks{
		Suggester:  dishes,
		DishPicker: dishes,
		BidPicker:  bids,
		Sourcer:    f.svc,
	})

	f.cycle, err = cycles.Open(ctx, z.ID, "2026-03-10")
	require.NoError(t, err)
	return f
}

func (f *fixture) advance(t *testing.T) {
	t.Helper()
	c, err := f.cycles.ForceAdvance(context.Background(), f.cycle.ID)
	require.NoError(t, err)
	f.cycle = c
}

// toSourcing runs a cycle where "Tomato Bath" wins and a restaurant bids for
// the given number of servings.
func (f *fixture) toSourcing(t *testing.T, servings int) *restaurant.Restaurant {
	t.Helper()
	ctx := context.Background()

	d, err := f.dishes.AddDish(ctx, f.cycle.ID, dish.AddInput{
		Name: "Tomato Bath",
		Ingredients: []dish.Ingredient{
			{Name: "Tomato", Quantity: 200, Unit: "g"},
			{Name: "Paneer", Quantity: 100, Unit: "g"},
			{Name: "Saffron", Quantity: 0.1, Unit: "g"},
		},
	})
	require.NoError(t, err)
	f.advance(t) // VOTING

	_, err = f.zones.Join(ctx, "eater", f.zone.ID)
	require.NoError(t, err)
	_, _, err = f.dishes.Vote(ctx, f.cycle.ID, "eater", d.ID)
	require.NoError(t, err)
	f.advance(t) // BIDDING

	r, err := f.restaurants.Create(ctx, "chef", restaurant.CreateInput{
		ZoneID: f.zone.ID, Name: "Bath House", Lat: 12.9716, Lng: 77.5946,
	})
	require.NoError(t, err)
	_, err = f.bids.Place(ctx, f.cycle.ID, "chef", bid.PlaceInput{
		RestaurantID: r.ID, PricePerServing: 90, PrepMinutes: 30, Capacity: servings,
	})
	require.NoError(t, err)
	f.advance(t) // SOURCING
	require.Equal(t, cycle.PhaseSourcing, f.cycle.Phase)
	return r
}

func (f *fixture) stock(t *testing.T, owner, name string, lat, lng float64, offerings ...OfferingInput) *Supplier {
	t.Helper()
	ctx := context.Background()
	sup, err := f.svc.Create(ctx, owner, CreateInput{ZoneID: f.zone.ID, Name: name, Lat: lat, Lng: lng})
	require.NoError(t, err)
	for _, in := range offerings {
		_, err := f.svc.UpsertOffering(ctx, sup.ID, owner, in)
		require.NoError(t, err)
	}
	return sup
}

func TestUpsertOfferingNormalizes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sup := f.stock(t, "farmer", "Green Farm", 12.97, 77.59)

	o, err := f.svc.UpsertOffering(ctx, sup.ID, "farmer", OfferingInput{
		Ingredient: "  Green  Chilli ", Unit: "g", UnitCost: 0.08, Available: 2500,
	})
	require.NoError(t, err)
	assert.Equal(t, "green chilli", o.Ingredient)
	assert.Equal(t, core.UnitKg, o.Unit)
	assert.InDelta(t, 80.0, o.UnitCost, 1e-9)
	assert.InDelta(t, 2.5, o.Available, 1e-9)
	assert.Equal(t, f.now, o.HarvestedAt)

	again, err := f.svc.UpsertOffering(ctx, sup.ID, "farmer", OfferingInput{
		Ingredient: "green chilli", Unit: "kg", UnitCost: 70, Available: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, o.ID, again.ID, "same ingredient and unit replaces")

	offerings, err := f.svc.ListOfferings(ctx, sup.ID)
	require.NoError(t, err)
	assert.Len(t, offerings, 1)

	_, err = f.svc.UpsertOffering(ctx, sup.ID, "someone", OfferingInput{Ingredient: "x", Unit: "kg", UnitCost: 1})
	assert.ErrorIs(t, err, ErrNotOwner)
	_, err = f.svc.UpsertOffering(ctx, sup.ID, "farmer", OfferingInput{Ingredient: "x", Unit: "sack", UnitCost: 1})
	assert.ErrorIs(t, err, core.ErrInvalid)
	_, err = f.svc.UpsertOffering(ctx, sup.ID, "farmer", OfferingInput{
		Ingredient: "x", Unit: "kg", UnitCost: 1, HarvestedAt: f.now.Add(time.Hour),
	})
	assert.ErrorIs(t, err, core.ErrInvalid)
}

func TestSourceCycleRaisesPurchaseOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.toSourcing(t, 10)

	near := f.stock(t, "farmer-a", "Near Farm", 12.9716, 77.5946,
		OfferingInput{Ingredient: "tomato", Unit: "kg", UnitCost: 40, Available: 1.5, HarvestedAt: f.now.Add(-6 * time.Hour)},
	)
	far := f.stock(t, "farmer-b", "Far Dairy", 13.0166, 77.5946,
		OfferingInput{Ingredient: "tomato", Unit: "kg", UnitCost: 30, Available: 5, HarvestedAt: f.now.Add(-36 * time.Hour)},
		OfferingInput{Ingredient: "paneer", Unit: "kg", UnitCost: 300, Available: 3, HarvestedAt: f.now.Add(-2 * time.Hour)},
	)

	f.advance(t) // ORDERING
	require.Equal(t, cycle.PhaseOrdering, f.cycle.Phase)
	assert.Equal(t, []string{"saffron"}, f.cycle.Unsourced)

	pos, err := f.svc.ListCycleOrders(ctx, f.cycle.ID)
	require.NoError(t, err)
	require.Len(t, pos, 2)

	bySupplier := map[string]*PurchaseOrder{}
	for _, po := range pos {
		assert.Equal(t, POPending, po.Status)
		assert.Equal(t, r.ID, po.RestaurantID)
		bySupplier[po.SupplierID] = po
	}
	require.Len(t, bySupplier[near.ID].Lines, 1)
	assert.InDelta(t, 1.5, bySupplier[near.ID].Lines[0].Quantity, 1e-9)
	assert.InDelta(t, 60.0, bySupplier[near.ID].Total, 1e-9)
	require.Len(t, bySupplier[far.ID].Lines, 2)
	assert.InDelta(t, 0.5*30+1*300, bySupplier[far.ID].Total, 1e-9)

	farStock, err := f.svc.ListOfferings(ctx, far.ID)
	require.NoError(t, err)
	left := map[string]float64{}
	for _, o := range farStock {
		left[o.Ingredient] = o.Available
	}
	assert.InDelta(t, 2.0, left["paneer"], 1e-9)
	assert.InDelta(t, 4.5, left["tomato"], 1e-9)

	events := f.rec.Of(realtime.EventPOStatus)
	assert.Len(t, events, 4, "each PO goes to the cycle room and the restaurant owner")

	// Running the hook again does not double-order.
	unsourced, err := f.svc.SourceCycle(ctx, f.cycle)
	require.NoError(t, err)
	assert.Equal(t, []string{"saffron"}, unsourced)
	pos, err = f.svc.ListCycleOrders(ctx, f.cycle.ID)
	require.NoError(t, err)
	assert.Len(t, pos, 2)
}

func TestSourceCycleRetryKeepsShortfall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.toSourcing(t, 10)
	f.stock(t, "farmer", "Mixed Farm", 12.9716, 77.5946,
		OfferingInput{Ingredient: "tomato", Unit: "kg", UnitCost: 40, Available: 5},
		OfferingInput{Ingredient: "paneer", Unit: "kg", UnitCost: 300, Available: 5},
	)

	// The transition failed after the orders were written, so the stored
	// cycle is still in SOURCING with no shortfall recorded.
	stored := *f.cycle
	require.Equal(t, cycle.PhaseSourcing, stored.Phase)
	require.Empty(t, stored.Unsourced)

	first, err := f.svc.SourceCycle(ctx, &stored)
	require.NoError(t, err)
	assert.Equal(t, []string{"saffron"}, first)

	second, err := f.svc.SourceCycle(ctx, &stored)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	pos, err := f.svc.ListCycleOrders(ctx, stored.ID)
	require.NoError(t, err)
	assert.Len(t, pos, 1)
}

func TestPurchaseOrderLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.toSourcing(t, 5)

	sup := f.stock(t, "farmer", "All Farm", 12.9716, 77.5946,
		OfferingInput{Ingredient: "tomato", Unit: "kg", UnitCost: 40, Available: 10},
		OfferingInput{Ingredient: "paneer", Unit: "kg", UnitCost: 250, Available: 10},
		OfferingInput{Ingredient: "saffron", Unit: "kg", UnitCost: 90000, Available: 1},
	)
	f.advance(t) // ORDERING
	assert.Empty(t, f.cycle.Unsourced)

	pos, err := f.svc.ListSupplierOrders(ctx, sup.ID, "farmer")
	require.NoError(t, err)
	require.Len(t, pos, 1)
	po := pos[0]

	_, err = f.svc.ListSupplierOrders(ctx, sup.ID, "chef")
	assert.ErrorIs(t, err, ErrNotOwner)
	_, err = f.svc.UpdateStatus(ctx, po.ID, "chef", POConfirmed)
	assert.ErrorIs(t, err, ErrNotOwner)
	_, err = f.svc.UpdateStatus(ctx, po.ID, "farmer", PODelivered)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	updated, err := f.svc.UpdateStatus(ctx, po.ID, "farmer", POConfirmed)
	require.NoError(t, err)
	assert.Equal(t, POConfirmed, updated.Status)

	_, err = f.svc.UpdateStatus(ctx, po.ID, "farmer", POCancelled)
	require.NoError(t, err)

	offerings, err := f.svc.ListOfferings(ctx, sup.ID)
	require.NoError(t, err)
	for _, o := range offerings {
		assert.InDelta(t, map[string]float64{"tomato": 10, "paneer": 10, "saffron": 1}[o.Ingredient], o.Available, 1e-9,
			"cancelling restores %s", o.Ingredient)
	}

	_, err = f.svc.UpdateStatus(ctx, po.ID, "farmer", POConfirmed)
	assert.ErrorIs(t, err, ErrInvalidTransition, "cancelled is terminal")
}

func TestPOStatusTransitions(t *testing.T) {
	allowed := map[POStatus][]POStatus{
		POPending:   {POConfirmed, POCancelled},
		POConfirmed: {POShipped, POCancelled},
		POShipped:   {PODelivered},
	}
	for _, from := range POStatuses {
		for _, to := range POStatuses {
			want := false
			for _, a := range allowed[POStatus(from)] {
				if a == POStatus(to) {
					want = true
				}
			}
			assert.Equal(t, want, POStatus(from).CanTransitionTo(POStatus(to)), "%s -> %s", from, to)
		}
	}
}
