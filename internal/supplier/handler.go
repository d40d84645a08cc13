package supplier

import (
	"net/http"
	"time"

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
	ZoneID string  `json:"zone_id" binding:"required,uuid"`
	Name   string  `json:"name" binding:"required,max=255"`
	Lat    float64 `json:"lat" binding:"gte=-90,lte=90"`
	Lng    float64 `json:"lng" binding:"gte=-180,lte=180"`
}

// POST /suppliers
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

	sup, err := h.service.Create(c.Request.Context(), userID, CreateInput(req))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, sup)
}

// GET /suppliers/me
func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := httpx.UserID(c)
	if !ok {
		return
	}
	sups, err := h.service.ListMine(c.Request.Context(), userID)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	if sups == nil {
		sups = []*Supplier{}
	}
	c.JSON(http.StatusOK, sups)
}

type offeringRequest struct {
	Ingredient  string     `json:"ingredient" binding:"required,max=255"`
	Unit        string     `json:"unit" binding:"required,unit"`
	UnitCost    float64    `json:"unit_cost" binding:"gt=0"`
	Available   float64    `json:"available" binding:"gte=0"`
	HarvestedAt *time.Time `json:"harvested_at"`
}

// PUT /suppliers/:id/offerings
func (h *Handler) UpsertOffering(c *gin.Context) {
	userID, ok := httpx.UserID(c)
	if !ok {
		return
	}
	var req offeringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, err)
		return
	}

	in := OfferingInput{
		Ingredient: req.Ingredient,
		Unit:       req.Unit,
		UnitCost:   req.UnitCost,
		Available:  req.Available,
	}
	if req.HarvestedAt != nil {
		in.HarvestedAt = *req.HarvestedAt
	}
	o, err := h.service.UpsertOffering(c.Request.Context(), c.Param("id"), userID, in)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// GET /suppliers/:id/offerings
func (h *Handler) ListOfferings(c *gin.Context) {
	offerings, err := h.service.ListOfferings(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	if offerings == nil {
		offerings = []*Offering{}
	}
	c.JSON(http.StatusOK, offerings)
}

// GET /suppliers/:id/purchase-orders
func (h *Handler) ListSupplierOrders(c *gin.Context) {
	userID, ok := httpx.UserID(c)
	if !ok {
		return
	}
	pos, err := h.service.ListSupplierOrders(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	if pos == nil {
		pos = []*PurchaseOrder{}
	}
	c.JSON(http.StatusOK, pos)
}

// GET /cycles/:id/purchase-orders
func (h *Handler) ListCycleOrders(c *gin.Context) {
	pos, err := h.service.ListCycleOrders(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	if pos == nil {
		pos = []*PurchaseOrder{}
	}
	c.JSON(http.StatusOK, pos)
}

// GET /admin/cycles/:id/sourcing
func (h *Handler) Preview(c *gin.Context) {
	res, err := h.service.Preview(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type statusRequest struct {
	Status string `json:"status" binding:"required,postatus"`
}

// PATCH /purchase-orders/:id/status
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

	po, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), userID, POStatus(req.Status))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, po)
}
