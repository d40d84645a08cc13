package bid

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"dotted/internal/core"
	"dotted/internal/httpx"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handlerRestaurantID = "6f1c2d5e-8a41-4d8e-9a7c-1b2f3e4d5c6a"

func setupRouter(f *fixture, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(f.svc)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(httpx.KeyUserID, userID)
		c.Next()
	})
	r.POST("/cycles/:id/bids", h.Place)
	r.GET("/cycles/:id/bids", h.List)
	r.GET("/cycles/:id/bids/ranking", h.Ranking)
	return r
}

func placeBid(r *gin.Engine, cycleID string, payload any) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/cycles/"+cycleID+"/bids", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerPlaceAndRank(t *testing.T) {
	f := newFixture(t)
	f.rest[handlerRestaurantID] = &core.RestaurantInfo{
		ID: handlerRestaurantID, OwnerID: "chef-h", ZoneID: f.cycle.ZoneID, Name: "Handler Hotel",
	}
	r := setupRouter(f, "chef-h")
	valid := map[string]any{
		"restaurant_id":     handlerRestaurantID,
		"price_per_serving": 120,
		"prep_minutes":      30,
		"capacity":          60,
	}

	w := placeBid(r, f.cycle.ID, valid)
	assert.Equal(t, http.StatusConflict, w.Code, "bidding has not opened")

	f.toBidding(t)

	w = placeBid(r, f.cycle.ID, map[string]any{
		"restaurant_id":     handlerRestaurantID,
		"price_per_serving": 120,
		"prep_minutes":      500,
		"capacity":          60,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = placeBid(r, f.cycle.ID, valid)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var b Bid
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.Equal(t, StatusPending, b.Status)

	w = placeBid(setupRouter(f, "someone-else"), f.cycle.ID, valid)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/cycles/"+f.cycle.ID+"/bids/ranking", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var ranking []Scored
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ranking))
	require.Len(t, ranking, 1)
	assert.Equal(t, b.ID, ranking[0].BidID)

	req = httptest.NewRequest(http.MethodGet, "/cycles/missing/bids", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
