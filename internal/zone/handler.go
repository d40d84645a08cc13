package zone

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
	Slug     string  `json:"slug" binding:"required,max=100"`
	Name     string  `json:"name" binding:"required,max=255"`
	City     string  `json:"city" binding:"required,max=255"`
	Timezone string  `json:"timezone" binding:"omitempty,timezone"`
	Lat      float64 `json:"lat" binding:"latitude"`
	Lng      float64 `json:"lng" binding:"longitude"`
	RadiusKm float64 `json:"radius_km" binding:"omitempty,gt=0,lte=50"`
}

// POST /admin/zones
func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, err)
		return
	}

	z, err := h.service.Create(c.Request.Context(), CreateInput(req))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, z)
}

// GET /zones
func (h *Handler) List(c *gin.Context) {
	zones, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		httpx.Error(c, err)
		return
	}
	if zones == nil {
		zones = []*Zone{}
	}
	c.JSON(http.StatusOK, zones)
}

// GET /zones/:id
func (h *Handler) Get(c *gin.Context) {
	z, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	members, err := h.service.MemberCount(c.Request.Context(), z.ID)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"zone":    z,
		"members": members,
	})
}

// POST /zones/:id/join
func (h *Handler) Join(c *gin.Context) {
	userID, ok := httpx.UserID(c)
	if !ok {
		return
	}
	m, err := h.service.Join(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// DELETE /zones/:id/membership
func (h *Handler) Leave(c *gin.Context) {
	userID, ok := httpx.UserID(c)
	if !ok {
		return
	}
	if err := h.service.Leave(c.Request.Context(), userID, c.Param("id")); err != nil {
		httpx.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
