package bid

import (
	"net/http"

	"dotted/internal/httpx"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type placeRequest struct {
	RestaurantID    string  `json:"restaurant_id" binding:"required,uuid"`
	PricePerServing float64 `json:"price_per_serving" binding:"gt=0"`
	PrepMinutes     int     `json:"prep_minutes" binding:"min=1,max=240"`
	Capacity        int     `json:"capacity" binding:"min=1,max=1000"`
}

// POST /cycles/:id/bids
func (h *Handler) Place(c *gin.Context) {
	userID, ok := httpx.UserID(c)
	if !ok {
		return
	}
	var req placeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, err)
		return
	}

	b, err := h.service.Place(c.Request.Context(), c.Param("id"), userID, PlaceInput(req))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// GET /cycles/:id/bids
func (h *Handler) List(c *gin.Context) {
	bids, err := h.service.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	if bids == nil {
		bids = []*Bid{}
	}
	c.JSON(http.StatusOK, bids)
}

// GET /cycles/:id/bids/ranking
func (h *Handler) Ranking(c *gin.Context) {
	ranking, err := h.service.Rank(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	if ranking == nil {
		ranking = []Scored{}
	}
	c.JSON(http.StatusOK, ranking)
}
