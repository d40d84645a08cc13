package dish

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

// GET /cycles/:id/dishes
func (h *Handler) List(c *gin.Context) {
	dishes, err := h.service.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	if dishes == nil {
		dishes = []*Dish{}
	}
	c.JSON(http.StatusOK, dishes)
}

type ingredientRequest struct {
	Name     string  `json:"name" binding:"required,max=255"`
	Quantity float64 `json:"quantity" binding:"gt=0"`
	Unit     string  `json:"unit" binding:"required"`
}

type addRequest struct {
	Name           string              `json:"name" binding:"required,max=255"`
	Description    string              `json:"description" binding:"max=2000"`
	Cuisine        string              `json:"cuisine" binding:"max=100"`
	EstimatedPrice float64             `json:"estimated_price" binding:"gte=0"`
	Ingredients    []ingredientRequest `json:"ingredients" binding:"required,min=1,dive"`
}

// POST /admin/cycles/:id/dishes
func (h *Handler) Add(c *gin.Context) {
	var req addRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, err)
		return
	}

	in := AddInput{
		Name:           req.Name,
		Description:    req.Description,
		Cuisine:        req.Cuisine,
		EstimatedPrice: req.EstimatedPrice,
	}
	for _, ing := range req.Ingredients {
		in.Ingredients = append(in.Ingredients, Ingredient(ing))
	}

	d, err := h.service.AddDish(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// POST /admin/cycles/:id/suggest
func (h *Handler) Suggest(c *gin.Context) {
	dishes, err := h.service.Suggest(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	if dishes == nil {
		dishes = []*Dish{}
	}
	c.JSON(http.StatusCreated, dishes)
}

// POST /admin/dishes/:id/image
func (h *Handler) UploadImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		httpx.BadRequest(c, err)
		return
	}
	d, err := h.service.UploadImage(c.Request.Context(), c.Param("id"), file)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

type voteRequest struct {
	DishID string `json:"dish_id" binding:"required,uuid"`
}

// POST /cycles/:id/votes
func (h *Handler) Vote(c *gin.Context) {
	userID, ok := httpx.UserID(c)
	if !ok {
		return
	}
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, err)
		return
	}

	v, tally, err := h.service.Vote(c.Request.Context(), c.Param("id"), userID, req.DishID)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"vote":  v,
		"tally": tally,
	})
}

// GET /cycles/:id/votes/me
func (h *Handler) MyVote(c *gin.Context) {
	userID, ok := httpx.UserID(c)
	if !ok {
		return
	}
	v, err := h.service.MyVote(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vote": v})
}

// GET /cycles/:id/tally
func (h *Handler) Tally(c *gin.Context) {
	tally, err := h.service.Tally(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, tally)
}
