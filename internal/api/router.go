package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/recorre/trae-indie-comments/internal/api/handler"
	"github.com/recorre/trae-indie-comments/internal/api/middleware"
	"github.com/recorre/trae-indie-comments/internal/core/ports"
)

// Deps carries the explicitly constructed dependencies the router wires into
// handlers. Nothing here is global; main builds everything once and injects.
type Deps struct {
	Store       ports.Store
	Sessions    ports.SessionService
	AuthService ports.AuthService
	Authorizer  ports.Authorizer
	Redis       *redis.Client // nil when the site cache is disabled
	Log         zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	// the widget runs on third-party origins by design
	e.Use(echomiddleware.CORS())
	e.Use(echoprometheus.NewMiddleware("indiecomments"))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(deps.AuthService)
	validateHandler := handler.NewValidateHandler(deps.Authorizer)
	proxyHandler := handler.NewProxyHandler(deps.Store, deps.Sessions, deps.Authorizer, deps.Log)
	healthHandler := handler.NewHealthHandler(deps.Redis)
	sessionAuth := middleware.Auth(deps.Sessions)

	// --- Panel auth routes ---
	e.POST("/api/signup", authHandler.Signup)
	e.POST("/api/login", authHandler.Login)
	e.GET("/api/me", authHandler.Me, sessionAuth)
	e.POST("/api/me/upgrade", authHandler.Upgrade, sessionAuth)

	// --- Widget bootstrap ---
	e.GET("/api/validate", validateHandler.Validate)

	// --- Proxy gateway ---
	e.Any("/api/proxy/:resource", proxyHandler.Proxy)
	e.Any("/api/proxy/:resource/:id", proxyHandler.Proxy)

	// --- Probes and metrics ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
