package supplier

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

func setupRouter(t *testing.T, f *fixture, userID string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, httpx.RegisterCheck("unit", core.KnownUnit))
	require.NoError(t, httpx.RegisterEnum("postatus", POStatuses...))

	h := NewHandler(f.svc)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(httpx.KeyUserID, userID)
		c.Next()
	})
	r.POST("/suppliers", h.Create)
	r.GET("/suppliers/me", h.ListMine)
	r.PUT("/suppliers/:id/offerings", h.UpsertOffering)
	r.GET("/suppliers/:id/offerings", h.ListOfferings)
	r.GET("/suppliers/:id/purchase-orders", h.ListSupplierOrders)
	r.PATCH("/purchase-orders/:id/status", h.UpdateStatus)
	r.GET("/cycles/:id/purchase-orders", h.ListCycleOrders)
	r.GET("/admin/cycles/:id/sourcing", h.Preview)
	return r
}

func send(r *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		_ = json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerSupplierFlow(t *testing.T) {
	f := newFixture(t)
	r := setupRouter(t, f, "farmer")

	w := send(r, http.MethodPost, "/suppliers", map[string]any{"zone_id": f.zone.ID, "name": "Hebbal Greens", "lat": 13.03, "lng": 77.59})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sup Supplier
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sup))

	w = send(r, http.MethodPut, "/suppliers/"+sup.ID+"/offerings", map[string]any{
		"ingredient": "coriander", "unit": "handful", "unit_cost": 5, "available": 10,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "unknown unit fails binding")

	w = send(r, http.MethodPut, "/suppliers/"+sup.ID+"/offerings", map[string]any{
		"ingredient": "Coriander", "unit": "bunch", "unit_cost": 5, "available": 40,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = send(r, http.MethodPut, "/suppliers/"+sup.ID+"/offerings", map[string]any{
		"ingredient": "Saffron", "unit": "g", "unit_cost": 0.9, "available": 500,
	})
	require.Equal(t, http.StatusOK, w.Code, "aliases bind and are normalized: %s", w.Body.String())

	w = send(r, http.MethodGet, "/suppliers/"+sup.ID+"/offerings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var offerings []Offering
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &offerings))
	require.Len(t, offerings, 2)
	byName := map[string]Offering{}
	for _, o := range offerings {
		byName[o.Ingredient] = o
	}
	assert.Equal(t, core.UnitBunch, byName["coriander"].Unit)
	assert.Equal(t, core.UnitKg, byName["saffron"].Unit)
	assert.InDelta(t, 0.5, byName["saffron"].Available, 1e-9)
	assert.InDelta(t, 900.0, byName["saffron"].UnitCost, 1e-9)

	w = send(setupRouter(t, f, "intruder"), http.MethodPut, "/suppliers/"+sup.ID+"/offerings", map[string]any{
		"ingredient": "mint", "unit": "bunch", "unit_cost": 5, "available": 40,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = send(r, http.MethodGet, "/suppliers/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []Supplier
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	assert.Len(t, mine, 1)

	w = send(r, http.MethodPatch, "/purchase-orders/whatever/status", map[string]string{"status": "LOST"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = send(r, http.MethodPatch, "/purchase-orders/whatever/status", map[string]string{"status": "CONFIRMED"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = send(r, http.MethodGet, "/admin/cycles/"+f.cycle.ID+"/sourcing", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "no winning dish yet")

	w = send(r, http.MethodGet, "/cycles/"+f.cycle.ID+"/purchase-orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}
