package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sumire/accounts/internal/service"
)

// RouterDeps bundles what the HTTP routes need.
type RouterDeps struct {
	Auth   AuthFlow
	Signer *service.SessionSigner
	Store  Pinger
	Config AuthHandlerConfig
}

// NewRouter builds the echo instance with middleware and all routes registered.
func NewRouter(deps RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = HTTPErrorHandler
	e.Validator = NewAppValidator()

	e.Use(middleware.RequestID())
	e.Use(RequestLogger())
	e.Use(middleware.Recover())
	e.Use(SessionAuth(deps.Auth, deps.Signer))

	auth := NewAuthHandler(deps.Auth, deps.Signer, deps.Config)
	health := NewHealthHandler(deps.Store)

	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)

	e.GET("/", auth.Index)
	e.GET("/login", auth.Login)
	e.GET("/callback", auth.Callback)
	e.POST("/initialize", auth.Initialize)

	api := e.Group("/api/v1", RequireAccount())
	api.GET("/me", auth.Me)

	return e
}
