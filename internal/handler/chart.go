package handler // handler package contains chart handlers

import (
    "net/http" // http defines status code constants
    "strings"  // strings trims user supplied names

    "github.com/labstack/echo/v4" // echo framework supplies request context

    "github.com/iliyamo/seating-chart/internal/model" // model defines the chart type
)

// CreateChart handles POST /v1/charts
func (h *ChartHandler) CreateChart(c echo.Context) error {
    ownerID, err := getOwnerID(c)
    if err != nil {
        return unauthorized(c)
    }
    var body struct {
        Name   string `json:"name"`   // required display name
        Width  int    `json:"width"`  // canvas width in cells
        Height int    `json:"height"` // canvas height in cells
    }
    if err := c.Bind(&body); err != nil {
        return badBody(c)
    }
    ch, err := h.Svc.CreateChart(c.Request().Context(), ownerID, strings.TrimSpace(body.Name), body.Width, body.Height)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, ch) // 201 with the stored chart
}

// ListCharts handles GET /v1/charts
func (h *ChartHandler) ListCharts(c echo.Context) error {
    ownerID, err := getOwnerID(c)
    if err != nil {
        return unauthorized(c)
    }
    charts, err := h.Svc.ListCharts(c.Request().Context(), ownerID)
    if err != nil {
        return writeError(c, err)
    }
    if charts == nil {
        charts = []*model.Chart{} // render [] rather than null
    }
    return c.JSON(http.StatusOK, echo.Map{"items": charts})
}

// GetChart handles GET /v1/charts/:chart_id
func (h *ChartHandler) GetChart(c echo.Context) error {
    ownerID, err := getOwnerID(c)
    if err != nil {
        return unauthorized(c)
    }
    ch, err := h.Svc.GetChart(c.Request().Context(), ownerID, c.Param("chart_id"))
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, ch)
}

// UpdateChart handles PATCH /v1/charts/:chart_id.  Name renames the chart;
// width and height must be sent together and resize it.
func (h *ChartHandler) UpdateChart(c echo.Context) error {
    ownerID, err := getOwnerID(c)
    if err != nil {
        return unauthorized(c)
    }
    var body struct {
        Name   *string `json:"name"`
        Width  *int    `json:"width"`
        Height *int    `json:"height"`
    }
    if err := c.Bind(&body); err != nil {
        return badBody(c)
    }
    if (body.Width == nil) != (body.Height == nil) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "width and height must be provided together"})
    }
    if body.Name == nil && body.Width == nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
    }

    ctx := c.Request().Context()
    chartID := c.Param("chart_id")
    var ch *model.Chart
    if body.Name != nil {
        if ch, err = h.Svc.RenameChart(ctx, ownerID, chartID, strings.TrimSpace(*body.Name)); err != nil {
            return writeError(c, err)
        }
    }
    if body.Width != nil {
        if ch, err = h.Svc.ResizeChart(ctx, ownerID, chartID, *body.Width, *body.Height); err != nil {
            return writeError(c, err)
        }
    }
    return c.JSON(http.StatusOK, ch)
}

// ArchiveChart handles POST /v1/charts/:chart_id/archive
func (h *ChartHandler) ArchiveChart(c echo.Context) error {
    ownerID, err := getOwnerID(c)
    if err != nil {
        return unauthorized(c)
    }
    ch, err := h.Svc.ArchiveChart(c.Request().Context(), ownerID, c.Param("chart_id"))
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, ch)
}

// DeleteChart handles DELETE /v1/charts/:chart_id.  Furniture and
// assignments of the chart go with it; the roster stays.
func (h *ChartHandler) DeleteChart(c echo.Context) error {
    ownerID, err := getOwnerID(c)
    if err != nil {
        return unauthorized(c)
    }
    if err := h.Svc.DeleteChart(c.Request().Context(), ownerID, c.Param("chart_id")); err != nil {
        return writeError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}
