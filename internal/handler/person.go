package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/seating-chart/internal/model"
    "github.com/iliyamo/seating-chart/internal/service"
)

// CreatePerson handles POST /v1/people
func (h *ChartHandler) CreatePerson(c echo.Context) error {
    ownerID, err := getOwnerID(c)
    if err != nil {
        return unauthorized(c)
    }
    var in service.PersonInput
    if err := c.Bind(&in); err != nil {
        return badBody(c)
    }
    p, err := h.Svc.CreatePerson(c.Request().Context(), ownerID, in)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, p)
}

// ListPeople handles GET /v1/people
func (h *ChartHandler) ListPeople(c echo.Context) error {
    ownerID, err := getOwnerID(c)
    if err != nil {
        return unauthorized(c)
    }
    people, err := h.Svc.ListPeople(c.Request().Context(), ownerID)
    if err != nil {
        return writeError(c, err)
    }
    if people == nil {
        people = []*model.Person{}
    }
    return c.JSON(http.StatusOK, echo.Map{"items": people})
}

// GetPerson handles GET /v1/people/:id
func (h *ChartHandler) GetPerson(c echo.Context) error {
    ownerID, err := getOwnerID(c)
    if err != nil {
        return unauthorized(c)
    }
    p, err := h.Svc.GetPerson(c.Request().Context(), ownerID, c.Param("id"))
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, p)
}

// UpdatePerson handles PUT /v1/people/:id; the body replaces every field
func (h *ChartHandler) UpdatePerson(c echo.Context) error {
    ownerID, err := getOwnerID(c)
    if err != nil {
        return unauthorized(c)
    }
    var in service.PersonInput
    if err := c.Bind(&in); err != nil {
        return badBody(c)
    }
    p, err := h.Svc.UpdatePerson(c.Request().Context(), ownerID, c.Param("id"), in)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, p)
}

// DeletePerson handles DELETE /v1/people/:id; their seats in every chart are freed
func (h *ChartHandler) DeletePerson(c echo.Context) error {
    ownerID, err := getOwnerID(c)
    if err != nil {
        return unauthorized(c)
    }
    if err := h.Svc.DeletePerson(c.Request().Context(), ownerID, c.Param("id")); err != nil {
        return writeError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}
