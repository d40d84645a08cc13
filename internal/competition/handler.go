package competition

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

// POST /admin/zones/:id/competition/recompute
func (h *Handler) Recompute(c *gin.Context) {
	snap, err := h.service.Recompute(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GET /zones/:id/competition
func (h *Handler) Get(c *gin.Context) {
	snap, err := h.service.Snapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GET /restaurants/:id/insight
func (h *Handler) Insight(c *gin.Context) {
	userID, ok := httpx.UserID(c)
	if !ok {
		return
	}
	insight, err := h.service.Insight(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, insight)
}
