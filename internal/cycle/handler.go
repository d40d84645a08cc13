package cycle

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

// GET /zones/:id/cycles/current
func (h *Handler) Current(c *gin.Context) {
	cy, err := h.service.Current(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, cy)
}

// GET /cycles/:id
func (h *Handler) Get(c *gin.Context) {
	cy, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, cy)
}

// GET /cycles/:id/timeline
func (h *Handler) Timeline(c *gin.Context) {
	entries, err := h.service.Timeline(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

type openRequest struct {
	// Date defaults to the zone's local today.
	Date string `json:"date" binding:"omitempty,datetime=2006-01-02"`
}

// POST /admin/zones/:id/cycles
func (h *Handler) Open(c *gin.Context) {
	var req openRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.BadRequest(c, err)
			return
		}
	}

	ctx := c.Request.Context()
	zoneID := c.Param("id")
	if req.Date == "" {
		z, err := h.service.zones.Get(ctx, zoneID)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		req.Date = Today(h.service.now(), z.Location())
	}

	cy, err := h.service.Open(ctx, zoneID, req.Date)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, cy)
}

// POST /admin/cycles/:id/advance
func (h *Handler) Advance(c *gin.Context) {
	cy, err := h.service.ForceAdvance(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, cy)
}

type cancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// POST /admin/cycles/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	var req cancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.BadRequest(c, err)
			return
		}
	}
	cy, err := h.service.Cancel(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, cy)
}
