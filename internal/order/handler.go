package order

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
	Quantity int    `json:"quantity" binding:"min=1,max=10"`
	Notes    string `json:"notes" binding:"max=500"`
}

// POST /cycles/:id/orders
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

	o, err := h.service.Place(c.Request.Context(), c.Param("id"), userID, PlaceInput(req))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// GET /orders/me
func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := httpx.UserID(c)
	if !ok {
		return
	}
	orders, err := h.service.ListMine(c.Request.Context(), userID)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	if orders == nil {
		orders = []*Order{}
	}
	c.JSON(http.StatusOK, orders)
}

// GET /orders/:id
func (h *Handler) Get(c *gin.Context) {
	userID, ok := httpx.UserID(c)
	if !ok {
		return
	}
	o, err := h.service.Get(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type statusRequest struct {
	Status string `json:"status" binding:"required,orderstatus"`
}

// PATCH /orders/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	userID, ok := httpx.UserID(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, err)
		return
	}

	o, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), userID, Status(req.Status))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// GET /cycles/:id/orders
func (h *Handler) ListForCycle(c *gin.Context) {
	userID, ok := httpx.UserID(c)
	if !ok {
		return
	}
	orders, err := h.service.ListForCycle(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	if orders == nil {
		orders = []*Order{}
	}
	c.JSON(http.StatusOK, orders)
}
