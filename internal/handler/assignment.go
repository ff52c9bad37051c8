package handler // handler package contains seating handlers

import (
    "net/http" // http defines status code constants

    "github.com/labstack/echo/v4" // echo framework supplies request context

    "github.com/iliyamo/seating-chart/internal/model" // model defines assignments
)

// AssignPerson handles POST /v1/charts/:chart_id/assignments with
// {"furniture_id":..,"person_id":..}.  Repeating the same request is a no-op
// that returns the existing assignment.
func (h *ChartHandler) AssignPerson(c echo.Context) error {
    ownerID, err := getOwnerID(c)
    if err != nil {
        return unauthorized(c)
    }
    var body struct {
        FurnitureID string `json:"furniture_id"`
        PersonID    string `json:"person_id"`
    }
    if err := c.Bind(&body); err != nil {
        return badBody(c)
    }
    if body.FurnitureID == "" || body.PersonID == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "furniture_id and person_id are required"})
    }
    a, err := h.Svc.AssignPerson(c.Request().Context(), ownerID, c.Param("chart_id"), body.FurnitureID, body.PersonID)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, a)
}

// ListAssignments handles GET /v1/charts/:chart_id/assignments.  The list
// is in creation order.
func (h *ChartHandler) ListAssignments(c echo.Context) error {
    ownerID, err := getOwnerID(c)
    if err != nil {
        return unauthorized(c)
    }
    seq, err := h.Svc.ListAssignments(c.Request().Context(), ownerID, c.Param("chart_id"))
    if err != nil {
        return writeError(c, err)
    }
    items := []model.Assignment{}
    for a, err := range seq {
        if err != nil {
            return writeError(c, err)
        }
        items = append(items, a)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetAssignment handles GET /v1/assignments/:id
func (h *ChartHandler) GetAssignment(c echo.Context) error {
    ownerID, err := getOwnerID(c)
    if err != nil {
        return unauthorized(c)
    }
    a, err := h.Svc.GetAssignment(c.Request().Context(), ownerID, c.Param("id"))
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, a)
}

// ReassignPerson handles PATCH /v1/assignments/:id with {"furniture_id":..}.
// The assignment keeps its id.
func (h *ChartHandler) ReassignPerson(c echo.Context) error {
    ownerID, err := getOwnerID(c)
    if err != nil {
        return unauthorized(c)
    }
    var body struct {
        FurnitureID string `json:"furniture_id"`
    }
    if err := c.Bind(&body); err != nil {
        return badBody(c)
    }
    if body.FurnitureID == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "furniture_id is required"})
    }
    a, err := h.Svc.ReassignPerson(c.Request().Context(), ownerID, c.Param("id"), body.FurnitureID)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, a)
}

// UnassignPerson handles DELETE /v1/assignments/:id
func (h *ChartHandler) UnassignPerson(c echo.Context) error {
    ownerID, err := getOwnerID(c)
    if err != nil {
        return unauthorized(c)
    }
    if err := h.Svc.UnassignPerson(c.Request().Context(), ownerID, c.Param("id")); err != nil {
        return writeError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// WhoSitsAt handles GET /v1/charts/:chart_id/furniture/:furniture_id/occupant.
// A free seat is {"assignment": null}.
func (h *ChartHandler) WhoSitsAt(c echo.Context) error {
    ownerID, err := getOwnerID(c)
    if err != nil {
        return unauthorized(c)
    }
    a, err := h.Svc.WhoSitsAt(c.Request().Context(), ownerID, c.Param("chart_id"), c.Param("furniture_id"))
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"assignment": a})
}

// WhereSeated handles GET /v1/charts/:chart_id/people/:person_id/seat.
// A person without a seat in the chart is {"assignment": null}.
func (h *ChartHandler) WhereSeated(c echo.Context) error {
    ownerID, err := getOwnerID(c)
    if err != nil {
        return unauthorized(c)
    }
    a, err := h.Svc.WhereSeated(c.Request().Context(), ownerID, c.Param("chart_id"), c.Param("person_id"))
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"assignment": a})
}
