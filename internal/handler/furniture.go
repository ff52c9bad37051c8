package handler // handler package contains furniture handlers

import (
    "net/http" // http defines status code constants

    "github.com/labstack/echo/v4" // echo framework supplies request context

    "github.com/iliyamo/seating-chart/internal/geometry" // geometry.Position is the move target
    "github.com/iliyamo/seating-chart/internal/model"    // model defines furniture items
    "github.com/iliyamo/seating-chart/internal/service"  // service defines the input shapes
)

// CreateFurniture handles POST /v1/charts/:chart_id/furniture.  The item
// lands on the requested cell or, when that area is taken, on the first
// free cell in row-major order.
func (h *ChartHandler) CreateFurniture(c echo.Context) error {
    ownerID, err := getOwnerID(c)
    if err != nil {
        return unauthorized(c)
    }
    var in service.FurnitureInput
    if err := c.Bind(&in); err != nil {
        return badBody(c)
    }
    it, err := h.Svc.CreateFurniture(c.Request().Context(), ownerID, c.Param("chart_id"), in)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, it)
}

// ListFurniture handles GET /v1/charts/:chart_id/furniture
func (h *ChartHandler) ListFurniture(c echo.Context) error {
    ownerID, err := getOwnerID(c)
    if err != nil {
        return unauthorized(c)
    }
    items, err := h.Svc.ListFurniture(c.Request().Context(), ownerID, c.Param("chart_id"))
    if err != nil {
        return writeError(c, err)
    }
    if items == nil {
        items = []model.FurnitureItem{}
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetFurniture handles GET /v1/furniture/:id
func (h *ChartHandler) GetFurniture(c echo.Context) error {
    ownerID, err := getOwnerID(c)
    if err != nil {
        return unauthorized(c)
    }
    it, err := h.Svc.GetFurniture(c.Request().Context(), ownerID, c.Param("id"))
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, it)
}

// UpdateFurniture handles PATCH /v1/furniture/:id (kind and label only)
func (h *ChartHandler) UpdateFurniture(c echo.Context) error {
    ownerID, err := getOwnerID(c)
    if err != nil {
        return unauthorized(c)
    }
    var patch service.FurniturePatch
    if err := c.Bind(&patch); err != nil {
        return badBody(c)
    }
    it, err := h.Svc.UpdateFurniture(c.Request().Context(), ownerID, c.Param("id"), patch)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, it)
}

// MoveFurniture handles POST /v1/furniture/:id/move with {"x":..,"y":..}.
// A target that collides is resolved like a new placement; a target
// outside the chart is a 400.
func (h *ChartHandler) MoveFurniture(c echo.Context) error {
    ownerID, err := getOwnerID(c)
    if err != nil {
        return unauthorized(c)
    }
    var to geometry.Position
    if err := c.Bind(&to); err != nil {
        return badBody(c)
    }
    it, err := h.Svc.MoveFurniture(c.Request().Context(), ownerID, c.Param("id"), to)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, it)
}

// DeleteFurniture handles DELETE /v1/furniture/:id and frees its seat
func (h *ChartHandler) DeleteFurniture(c echo.Context) error {
    ownerID, err := getOwnerID(c)
    if err != nil {
        return unauthorized(c)
    }
    if err := h.Svc.DeleteFurniture(c.Request().Context(), ownerID, c.Param("id")); err != nil {
        return writeError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}
