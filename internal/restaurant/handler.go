package restaurant

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

type createRequest struct {
	ZoneID   string  `json:"zone_id" binding:"required,uuid"`
	Name     string  `json:"name" binding:"required,max=255"`
	Cuisine  string  `json:"cuisine" binding:"max=100"`
	Address  string  `json:"address" binding:"max=500"`
	Lat      float64 `json:"lat" binding:"latitude"`
	Lng      float64 `json:"lng" binding:"longitude"`
	Capacity int     `json:"capacity" binding:"gte=0,lte=5000"`
}

// --------------------------------------------------
// Create restaurant
// --------------------------------------------------
func (h *Handler) Create(c *gin.Context) {
	userID, ok := httpx.UserID(c)
	if !ok {
		return
	}

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, err)
		return
	}

	restaurant, err := h.service.Create(c.Request.Context(), userID, CreateInput(req))
	if err != nil {
		httpx.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, restaurant)
}

// --------------------------------------------------
// List restaurants owned by user
// --------------------------------------------------
func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := httpx.UserID(c)
	if !ok {
		return
	}

	restaurants, err := h.service.ListMine(c.Request.Context(), userID)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	if restaurants == nil {
		restaurants = []*Restaurant{}
	}

	c.JSON(http.StatusOK, restaurants)
}

// GET /restaurants/:id
func (h *Handler) Get(c *gin.Context) {
	restaurant, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, restaurant)
}

// POST /restaurants/:id/image
func (h *Handler) UploadImage(c *gin.Context) {
	userID, ok := httpx.UserID(c)
	if !ok {
		return
	}
	file, err := c.FormFile("image")
	if err != nil {
		httpx.BadRequest(c, err)
		return
	}

	restaurant, err := h.service.UploadImage(c.Request.Context(), c.Param("id"), userID, file)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, restaurant)
}
