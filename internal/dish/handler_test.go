package dish

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"dotted/internal/httpx"
	"dotted/internal/llm"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(f *fixture, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(f.svc)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(httpx.KeyUserID, userID)
		c.Next()
	})
	r.GET("/cycles/:id/dishes", h.List)
	r.POST("/admin/cycles/:id/dishes", h.Add)
	r.POST("/admin/cycles/:id/suggest", h.Suggest)
	r.POST("/admin/dishes/:id/image", h.UploadImage)
	r.POST("/cycles/:id/votes", h.Vote)
	r.GET("/cycles/:id/tally", h.Tally)
	return r
}

func sendJSON(r *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, path, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerAddAndVote(t *testing.T) {
	f := newFixture(t, llm.NewStatic())
	r := setupRouter(f, "alice")

	w := sendJSON(r, http.MethodPost, "/admin/cycles/"+f.cycle.ID+"/dishes", map[string]any{
		"name": "Akki Roti",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "ingredients are required")

	w = sendJSON(r, http.MethodPost, "/admin/cycles/"+f.cycle.ID+"/dishes", map[string]any{
		"name":        "Akki Roti",
		"ingredients": []map[string]any{{"name": "rice flour", "quantity": 100, "unit": "g"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var d Dish
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))

	w = sendJSON(r, http.MethodPost, "/cycles/"+f.cycle.ID+"/votes", map[string]string{"dish_id": d.ID})
	assert.Equal(t, http.StatusConflict, w.Code)

	f.advance(t)
	_, err := f.zones.Join(context.Background(), "alice", f.zone.ID)
	require.NoError(t, err)

	w = sendJSON(r, http.MethodPost, "/cycles/"+f.cycle.ID+"/votes", map[string]string{"dish_id": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = sendJSON(r, http.MethodPost, "/cycles/"+f.cycle.ID+"/votes", map[string]string{"dish_id": d.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/cycles/"+f.cycle.ID+"/tally", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var tally []DishTally
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tally))
	require.Len(t, tally, 1)
	assert.Equal(t, 1, tally[0].Votes)
}

func TestHandlerUploadImage(t *testing.T) {
	f := newFixture(t, llm.NewStatic())
	r := setupRouter(f, "admin")

	d, err := f.svc.AddDish(context.Background(), f.cycle.ID, AddInput{
		Name:        "Neer Dosa",
		Ingredients: []Ingredient{{Name: "rice", Quantity: 0.1, Unit: "kg"}},
	})
	require.NoError(t, err)

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 1, 1))))

	upload := func() *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("image", "dosa.png")
		require.NoError(t, err)
		_, err = part.Write(img.Bytes())
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/admin/dishes/"+d.ID+"/image", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := upload()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "https://images.test/dishes/"+d.ID+"/")
	first := f.store.Keys()
	require.Len(t, first, 1)

	w = upload()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	second := f.store.Keys()
	require.Len(t, second, 1, "replacing a photo deletes the old object")
	assert.NotEqual(t, first[0], second[0])

	got, err := f.svc.Get(context.Background(), d.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ImageURL)
	assert.Equal(t, "https://images.test/"+second[0], *got.ImageURL)
}
