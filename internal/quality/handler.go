package quality

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

type submitRequest struct {
	Taste        int    `json:"taste" binding:"min=1,max=5"`
	Freshness    int    `json:"freshness" binding:"min=1,max=5"`
	Presentation int    `json:"presentation" binding:"min=1,max=5"`
	Portion      int    `json:"portion" binding:"min=1,max=5"`
	Comment      string `json:"comment" binding:"max=1000"`
}

// POST /orders/:id/quality
func (h *Handler) Submit(c *gin.Context) {
	userID, ok := httpx.UserID(c)
	if !ok {
		return
	}
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, err)
		return
	}

	score, err := h.service.Submit(c.Request.Context(), c.Param("id"), userID, SubmitInput(req))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, score)
}

// GET /restaurants/:id/quality
func (h *Handler) Summary(c *gin.Context) {
	sum, err := h.service.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}
