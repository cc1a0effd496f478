package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lumin-energy/energy-ledger/internal/api/handler"
	"github.com/lumin-energy/energy-ledger/internal/api/middleware"
	"github.com/lumin-energy/energy-ledger/internal/core/domain"
	"github.com/lumin-energy/energy-ledger/internal/core/ports"
)

// Ledger is everything the API reads from and writes to the ledger.
type Ledger interface {
	ports.IdentityService
	ports.DelegationService
	ports.AssetService
	ports.MarketService
	Seq() uint64
}

// Deps carries the collaborators the router wires into handlers.
// Mongo and Redis are optional and only feed the readiness probe. A nil
// Registerer means the default Prometheus registry.
type Deps struct {
	Ledger    Ledger
	Market    handler.MarketCommands
	Auth      ports.AuthService
	JWTSecret string
	Log       zerolog.Logger
	Mongo     *mongo.Database
	Redis     *redis.Client

	Registerer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "energy_ledger",
		Registerer: d.Registerer,
	}))

	// --- Handlers ---
	accounts := handler.NewAccountHandler(d.Ledger, d.Ledger, d.Ledger)
	managers := handler.NewManagerHandler(d.Ledger, d.Ledger)
	market := handler.NewMarketHandler(d.Ledger, d.Market)
	auth := handler.NewAuthHandler(d.Auth)
	authMiddleware := middleware.Auth(d.JWTSecret)

	// --- Public routes ---
	v1 := e.Group("/v1")
	v1.POST("/accounts", accounts.Register)
	v1.POST("/managers", managers.Register)
	v1.POST("/auth/login", auth.Login)

	// --- Authenticated routes ---
	acc := v1.Group("/accounts/:id", authMiddleware)
	acc.GET("", accounts.Get)
	acc.GET("/balance", accounts.Balance)
	acc.PUT("/credential", accounts.RotateCredential)
	acc.GET("/panels", accounts.Panels)
	acc.POST("/panels", accounts.AddPanel)
	acc.POST("/panels/:panel_id/allocations", accounts.Allocate)
	acc.GET("/trades", accounts.Trades)
	acc.GET("/listings", accounts.Listings)

	mgr := v1.Group("/managers/:id", authMiddleware)
	mgr.POST("/members", managers.AssignMember, middleware.RBAC(domain.RoleManager))
	mgr.GET("/members", managers.Members)
	mgr.GET("/members/:member_id", managers.IsManaged)
	mgr.GET("/panels", managers.Panels, middleware.RBAC(domain.RoleManager))
	mgr.GET("/trades", managers.Trades, middleware.RBAC(domain.RoleManager))

	listings := v1.Group("/listings", authMiddleware)
	listings.GET("", market.Open)
	listings.POST("", market.Post)
	listings.GET("/:id", market.Get)
	listings.POST("/:id/purchase", market.Purchase)
	listings.POST("/:id/cancel", market.Cancel)

	// --- Health probes, metrics and docs (no auth required) ---
	healthHandler := handler.NewHealthHandler(d.Ledger.Seq)
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Mongo, d.Redis)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
