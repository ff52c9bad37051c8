package handler // handler defines http handlers

import (
    "errors"   // errors matches sentinel values returned by the service
    "net/http" // http defines status code constants

    "github.com/labstack/echo/v4" // echo defines request context types

    "github.com/iliyamo/seating-chart/internal/geometry"   // geometry reports invalid shapes and exhausted placement
    "github.com/iliyamo/seating-chart/internal/middleware" // middleware stores the owner id on the context
    "github.com/iliyamo/seating-chart/internal/registry"   // registry reports seating conflicts
    "github.com/iliyamo/seating-chart/internal/service"    // service implements chart operations
    "github.com/iliyamo/seating-chart/pkg/logger"          // logger records unexpected failures
)

// ChartHandler exposes the chart service over HTTP.  Every route it serves
// is owner scoped: the owner comes from the bearer token, never the body.
type ChartHandler struct {
    Svc *service.ChartService // Svc runs the chart, furniture, roster and seating operations
}

// NewChartHandler constructs a ChartHandler and panics if the service is nil
func NewChartHandler(svc *service.ChartService) *ChartHandler {
    if svc == nil {
        panic("nil service passed to NewChartHandler")
    }
    return &ChartHandler{Svc: svc}
}

// getOwnerID extracts the owner id placed on the context by JWTAuth
func getOwnerID(c echo.Context) (string, error) {
    if s, ok := c.Get(middleware.OwnerKey).(string); ok && s != "" { // only a non-empty string is valid
        return s, nil
    }
    return "", errors.New("invalid owner_id in context")
}

// errorStatus maps service errors to HTTP statuses.  Unknown errors are 500.
func errorStatus(err error) int {
    switch {
    case errors.Is(err, geometry.ErrInvalidGeometry), errors.Is(err, service.ErrInvalidInput):
        return http.StatusBadRequest
    case errors.Is(err, service.ErrChartNotFound),
        errors.Is(err, service.ErrFurnitureNotFound),
        errors.Is(err, service.ErrPersonNotFound),
        errors.Is(err, registry.ErrNotFound):
        return http.StatusNotFound
    case errors.Is(err, registry.ErrSlotOccupied),
        errors.Is(err, registry.ErrPersonAlreadySeated),
        errors.Is(err, registry.ErrBusy),
        errors.Is(err, geometry.ErrPlacementExhausted),
        errors.Is(err, service.ErrChartArchived),
        errors.Is(err, service.ErrLayoutBusy):
        return http.StatusConflict
    case errors.Is(err, service.ErrForeignReference):
        return http.StatusUnprocessableEntity
    }
    return http.StatusInternalServerError
}

// writeError responds with the mapped status.  Internal errors are logged
// and hidden from the client.
func writeError(c echo.Context, err error) error {
    status := errorStatus(err)
    if status == http.StatusInternalServerError {
        logger.Error().Err(err).Str("path", c.Path()).Msg("request failed") // keep the cause in the log only
        return c.JSON(status, echo.Map{"error": "internal error"})
    }
    return c.JSON(status, echo.Map{"error": err.Error()})
}

func unauthorized(c echo.Context) error {
    return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

func badBody(c echo.Context) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
}
