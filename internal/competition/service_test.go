package competition

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dotted/internal/core"
	"dotted/internal/httpx"
	"dotted/internal/zone"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePrices struct {
	won    map[string][]float64
	latest map[string]float64
}

func (f *fakePrices) WinningPrices(_ context.Context, zoneID string, limit int) ([]float64, error) {
	p := append([]float64(nil), f.won[zoneID]...)
	if len(p) > limit {
		p = p[:limit]
	}
	return p, nil
}

func (f *fakePrices) LatestPrice(_ context.Context, restaurantID string) (float64, bool, error) {
	p, ok := f.latest[restaurantID]
	return p, ok, nil
}

type fakeRestaurants map[string]*core.RestaurantInfo

func (f fakeRestaurants) RestaurantInfo(_ context.Context, id string) (*core.RestaurantInfo, error) {
	r, ok := f[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return r, nil
}

type fakeZones []*zone.Zone

func (f fakeZones) ListActive(context.Context) ([]*zone.Zone, error) { return f, nil }

func newTestService(prices *fakePrices) (*Service, *MemoryRepository) {
	repo := NewMemoryRepository()
	rest := fakeRestaurants{
		"r1": {ID: "r1", OwnerID: "owner-1", ZoneID: "z1"},
		"r2": {ID: "r2", OwnerID: "owner-2", ZoneID: "z1"},
	}
	zones := fakeZones{{ID: "z1", Slug: "indiranagar"}, {ID: "z2", Slug: "jayanagar"}}
	return NewService(repo, prices, rest, zones, zap.NewNop()), repo
}

func TestRecompute(t *testing.T) {
	prices := &fakePrices{won: map[string][]float64{
		"z1": {140, 100, 120, 180},
		"z2": {90, 95},
	}}
	svc, _ := newTestService(prices)
	ctx := context.Background()

	snap, err := svc.Recompute(ctx, "z1")
	require.NoError(t, err)
	assert.Equal(t, 4, snap.SampleSize)
	assert.InDelta(t, 135.0, snap.AvgPrice, 1e-9)
	assert.Equal(t, 140.0, snap.MedianPrice)

	_, err = svc.Recompute(ctx, "z2")
	assert.ErrorIs(t, err, ErrNotEnoughData)

	n, err := svc.RecomputeAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSnapshotRecomputesWhenStale(t *testing.T) {
	prices := &fakePrices{won: map[string][]float64{"z1": {100, 100, 100}}}
	svc, _ := newTestService(prices)
	ctx := context.Background()

	first, err := svc.Snapshot(ctx, "z1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, first.MedianPrice)

	prices.won["z1"] = []float64{200, 200, 200}
	cached, err := svc.Snapshot(ctx, "z1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, cached.MedianPrice, "fresh snapshot is served as is")

	svc.now = func() time.Time { return time.Now().Add(maxSnapshotAge + time.Minute) }
	stale, err := svc.Snapshot(ctx, "z1")
	require.NoError(t, err)
	assert.Equal(t, 200.0, stale.MedianPrice)

	prices.won["z1"] = nil
	svc.now = func() time.Time { return time.Now().Add(2 * maxSnapshotAge) }
	kept, err := svc.Snapshot(ctx, "z1")
	require.NoError(t, err)
	assert.Equal(t, 200.0, kept.MedianPrice, "old numbers survive a thin window")

	_, err = svc.Snapshot(ctx, "z2")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestInsightPositions(t *testing.T) {
	prices := &fakePrices{
		won:    map[string][]float64{"z1": {100, 100, 100, 100, 100}},
		latest: map[string]float64{"r1": 85},
	}
	svc, _ := newTestService(prices)
	ctx := context.Background()

	_, err := svc.Insight(ctx, "r1", "owner-2")
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = svc.Insight(ctx, "r2", "owner-2")
	assert.ErrorIs(t, err, ErrNoBids)

	cases := []struct {
		price  float64
		want   Position
		action string
	}{
		{85, PositionUnderMarket, "RAISE_CAPACITY"},
		{100, PositionAverage, "HOLD_PRICE"},
		{110, PositionAverage, "HOLD_PRICE"},
		{125, PositionPremium, "LOWER_PRICE"},
	}
	for _, tc := range cases {
		prices.latest["r1"] = tc.price
		in, err := svc.Insight(ctx, "r1", "owner-1")
		require.NoError(t, err)
		assert.Equal(t, tc.want, in.Positioning, "price %v", tc.price)
		assert.Equal(t, tc.action, in.Advice.Action)
		assert.Equal(t, 5, in.SampleSize)
	}
}

func TestHandlerInsight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	prices := &fakePrices{
		won:    map[string][]float64{"z1": {100, 110, 120}},
		latest: map[string]float64{"r1": 150},
	}
	svc, _ := newTestService(prices)
	h := NewHandler(svc)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(httpx.KeyUserID, "owner-1")
		c.Next()
	})
	r.GET("/restaurants/:id/insight", h.Insight)
	r.GET("/zones/:id/competition", h.Get)
	r.POST("/admin/zones/:id/competition/recompute", h.Recompute)

	for _, tc := range []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/restaurants/r1/insight", http.StatusOK},
		{http.MethodGet, "/restaurants/r2/insight", http.StatusForbidden},
		{http.MethodGet, "/zones/z1/competition", http.StatusOK},
		{http.MethodGet, "/zones/z2/competition", http.StatusNotFound},
		{http.MethodPost, "/admin/zones/z1/competition/recompute", http.StatusOK},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, tc.want, w.Code, tc.path)
	}
}
