// Package router assembles the HTTP surface of the API.
package router

import (
	"net/http"
	"time"

	"dotted/internal/auth"
	"dotted/internal/bid"
	"dotted/internal/competition"
	"dotted/internal/core"
	"dotted/internal/cycle"
	"dotted/internal/dish"
	"dotted/internal/httpx"
	"dotted/internal/metrics"
	"dotted/internal/middleware"
	"dotted/internal/order"
	"dotted/internal/quality"
	"dotted/internal/realtime"
	"dotted/internal/restaurant"
	"dotted/internal/supplier"
	"dotted/internal/zone"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers is everything the router mounts. A nil handler leaves its routes
// out, which keeps small test routers small.
type Handlers struct {
	Auth        *auth.Handler
	Zone        *zone.Handler
	Cycle       *cycle.Handler
	Dish        *dish.Handler
	Restaurant  *restaurant.Handler
	Bid         *bid.Handler
	Supplier    *supplier.Handler
	Order       *order.Handler
	Quality     *quality.Handler
	Competition *competition.Handler
	Realtime    *realtime.Handler
}

type Options struct {
	Tokens      *auth.TokenIssuer
	CORSOrigins []string
	Logger      *zap.Logger
}

// RegisterValidators installs the custom binding tags used by the handlers.
func RegisterValidators() error {
	if err := httpx.RegisterCheck("unit", core.KnownUnit); err != nil {
		return err
	}
	enums := map[string][]string{
		"role":        auth.Roles,
		"orderstatus": order.Statuses,
		"postatus":    supplier.POStatuses,
	}
	for tag, values := range enums {
		if err := httpx.RegisterEnum(tag, values...); err != nil {
			return err
		}
	}
	return nil
}

func NewRouter(h Handlers, opt Options) (*gin.Engine, error) {
	if err := RegisterValidators(); err != nil {
		return nil, err
	}
	logger := opt.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger.Named("http")))

	if len(opt.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opt.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if h.Realtime != nil {
		// Browsers cannot set headers on the upgrade, so /ws checks its own token.
		r.GET("/ws", h.Realtime.Connect)
	}

	if opt.Tokens == nil {
		return r, nil
	}

	authed := middleware.AuthMiddleware(opt.Tokens)
	consumer := middleware.RequireRole(auth.RoleConsumer)
	cook := middleware.RequireRole(auth.RoleRestaurant)
	grower := middleware.RequireRole(auth.RoleSupplier)

	// ───────────────────────── AUTH ─────────────────────────
	if h.Auth != nil {
		a := r.Group("/auth")
		a.POST("/register", h.Auth.Register)
		a.POST("/login", h.Auth.Login)
		a.GET("/me", authed, h.Auth.Me)
	}

	api := r.Group("", authed)

	// ───────────────────────── ZONES + CYCLES ─────────────────────────
	if h.Zone != nil {
		api.GET("/zones", h.Zone.List)
		api.GET("/zones/:id", h.Zone.Get)
		api.POST("/zones/:id/join", h.Zone.Join)
		api.DELETE("/zones/:id/membership", h.Zone.Leave)
	}
	if h.Cycle != nil {
		api.GET("/zones/:id/cycles/current", h.Cycle.Current)
		api.GET("/cycles/:id", h.Cycle.Get)
		api.GET("/cycles/:id/timeline", h.Cycle.Timeline)
	}
	if h.Competition != nil {
		api.GET("/zones/:id/competition", h.Competition.Get)
		api.GET("/restaurants/:id/insight", cook, h.Competition.Insight)
	}

	// ───────────────────────── DISHES + VOTES ─────────────────────────
	if h.Dish != nil {
		api.GET("/cycles/:id/dishes", h.Dish.List)
		api.GET("/cycles/:id/tally", h.Dish.Tally)
		api.POST("/cycles/:id/votes", consumer, h.Dish.Vote)
		api.GET("/cycles/:id/votes/me", consumer, h.Dish.MyVote)
	}

	// ───────────────────────── RESTAURANTS + BIDS ─────────────────────────
	if h.Restaurant != nil {
		api.POST("/restaurants", cook, h.Restaurant.Create)
		api.GET("/restaurants/me", cook, h.Restaurant.ListMine)
		api.GET("/restaurants/:id", h.Restaurant.Get)
		api.POST("/restaurants/:id/image", cook, h.Restaurant.UploadImage)
	}
	if h.Bid != nil {
		api.POST("/cycles/:id/bids", cook, h.Bid.Place)
		api.GET("/cycles/:id/bids", h.Bid.List)
		api.GET("/cycles/:id/bids/ranking", h.Bid.Ranking)
	}

	// ───────────────────────── SUPPLIERS ─────────────────────────
	if h.Supplier != nil {
		api.POST("/suppliers", grower, h.Supplier.Create)
		api.GET("/suppliers/me", grower, h.Supplier.ListMine)
		api.PUT("/suppliers/:id/offerings", grower, h.Supplier.UpsertOffering)
		api.GET("/suppliers/:id/offerings", h.Supplier.ListOfferings)
		api.GET("/suppliers/:id/purchase-orders", grower, h.Supplier.ListSupplierOrders)
		api.PATCH("/purchase-orders/:id/status", grower, h.Supplier.UpdateStatus)
		api.GET("/cycles/:id/purchase-orders", h.Supplier.ListCycleOrders)
	}

	// ───────────────────────── ORDERS + QUALITY ─────────────────────────
	if h.Order != nil {
		api.POST("/cycles/:id/orders", consumer, h.Order.Place)
		api.GET("/cycles/:id/orders", cook, h.Order.ListForCycle)
		api.GET("/orders/me", consumer, h.Order.ListMine)
		api.GET("/orders/:id", h.Order.Get)
		api.PATCH("/orders/:id/status",
			middleware.RequireRole(auth.RoleConsumer, auth.RoleRestaurant),
			h.Order.UpdateStatus,
		)
	}
	if h.Quality != nil {
		api.POST("/orders/:id/quality", consumer, h.Quality.Submit)
		api.GET("/restaurants/:id/quality", h.Quality.Summary)
	}

	// ───────────────────────── ADMIN ─────────────────────────
	admin := r.Group("/admin", authed, middleware.RequireRole(auth.RoleAdmin))
	if h.Zone != nil {
		admin.POST("/zones", h.Zone.Create)
	}
	if h.Cycle != nil {
		admin.POST("/zones/:id/cycles", h.Cycle.Open)
		admin.POST("/cycles/:id/advance", h.Cycle.Advance)
		admin.POST("/cycles/:id/cancel", h.Cycle.Cancel)
	}
	if h.Dish != nil {
		admin.POST("/cycles/:id/dishes", h.Dish.Add)
		admin.POST("/cycles/:id/suggest", h.Dish.Suggest)
		admin.POST("/dishes/:id/image", h.Dish.UploadImage)
	}
	if h.Supplier != nil {
		admin.GET("/cycles/:id/sourcing", h.Supplier.Preview)
	}
	if h.Competition != nil {
		admin.POST("/zones/:id/competition/recompute", h.Competition.Recompute)
	}

	return r, nil
}
