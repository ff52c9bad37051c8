package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/seating-chart/internal/handler" // import the handlers that implement the endpoints
	"github.com/iliyamo/seating-chart/internal/store"   // the readiness probe reads the item store
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance: liveness and readiness probes.
func RegisterRoutes(e *echo.Echo, s store.Store) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(s))
}
