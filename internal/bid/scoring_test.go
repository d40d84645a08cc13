package bid

import (
	"testing"
	"time"

	"dotted/internal/config"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var defaultWeights = config.BidWeights{Price: 0.4, Quality: 0.3, PrepTime: 0.15, Capacity: 0.15}

func TestScoreWeightsEachFactor(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)
	bids := []*Bid{
		{ID: "a", RestaurantID: "ra", PricePerServing: 100, PrepMinutes: 30, Capacity: 100, CreatedAt: t0},
		{ID: "b", RestaurantID: "rb", PricePerServing: 125, PrepMinutes: 20, Capacity: 200, CreatedAt: t0.Add(time.Minute)},
	}
	quality := map[string]float64{"ra": 0.8}

	got := Score(bids, quality, 0.6, defaultWeights)
	want := []Scored{
		{BidID: "a", RestaurantID: "ra", Score: 0.815, Components: Components{Price: 1, Quality: 0.8, PrepTime: 2.0 / 3, Capacity: 0.5}},
		{BidID: "b", RestaurantID: "rb", Score: 0.8, Components: Components{Price: 0.8, Quality: 0.6, PrepTime: 1, Capacity: 1}},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Score mismatch (-want +got):\n%s", diff)
	}
}

func TestScoreTieBreaks(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)
	qualityOnly := config.BidWeights{Quality: 1}
	bids := []*Bid{
		{ID: "late", PricePerServing: 90, PrepMinutes: 10, Capacity: 10, CreatedAt: t0.Add(2 * time.Minute)},
		{ID: "pricey", PricePerServing: 120, PrepMinutes: 10, Capacity: 10, CreatedAt: t0},
		{ID: "early", PricePerServing: 90, PrepMinutes: 10, Capacity: 10, CreatedAt: t0.Add(time.Minute)},
	}

	got := Score(bids, nil, 0.6, qualityOnly)
	ids := make([]string, 0, len(got))
	for _, s := range got {
		ids = append(ids, s.BidID)
	}
	if diff := cmp.Diff([]string{"early", "late", "pricey"}, ids); diff != "" {
		t.Errorf("tie order mismatch (-want +got):\n%s", diff)
	}
}

func TestScoreEdgeCases(t *testing.T) {
	if got := Score(nil, nil, 0.6, defaultWeights); got != nil {
		t.Fatalf("expected nil for no bids, got %v", got)
	}

	single := Score([]*Bid{{ID: "only", PricePerServing: 50, PrepMinutes: 15, Capacity: 40}}, nil, 0.6, defaultWeights)
	// price, prep and capacity are all relative to itself.
	want := 0.4 + 0.3*0.6 + 0.15 + 0.15
	if diff := cmp.Diff(want, single[0].Score, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("single bid score (-want +got):\n%s", diff)
	}

	zero := Score([]*Bid{{ID: "z", PricePerServing: 50, PrepMinutes: 15, Capacity: 40}}, nil, 0.6, config.BidWeights{})
	if zero[0].Score != 0 {
		t.Errorf("zero weights should score 0, got %v", zero[0].Score)
	}
}
