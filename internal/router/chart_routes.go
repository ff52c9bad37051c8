package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seating-chart/internal/handler"    // chart handlers
	"github.com/iliyamo/seating-chart/internal/middleware" // JWT + rate limiting
)

// RegisterChart registers the owner scoped chart API under /v1.  Every
// route requires a valid JWT; the limiter runs after authentication so it
// can key buckets by owner.
func RegisterChart(e *echo.Echo, h *handler.ChartHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	mw := []echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret)}
	if limiter != nil {
		mw = append(mw, limiter)
	}
	g := e.Group("/v1", mw...)

	// ---- Charts ----
	g.POST("/charts", h.CreateChart)
	g.GET("/charts", h.ListCharts)
	g.GET("/charts/:chart_id", h.GetChart)
	g.PATCH("/charts/:chart_id", h.UpdateChart) // rename and/or resize
	g.POST("/charts/:chart_id/archive", h.ArchiveChart)
	g.DELETE("/charts/:chart_id", h.DeleteChart)

	// ---- Furniture ----
	g.POST("/charts/:chart_id/furniture", h.CreateFurniture)
	g.GET("/charts/:chart_id/furniture", h.ListFurniture)
	g.GET("/furniture/:id", h.GetFurniture)
	g.PATCH("/furniture/:id", h.UpdateFurniture)
	g.POST("/furniture/:id/move", h.MoveFurniture)
	g.DELETE("/furniture/:id", h.DeleteFurniture)

	// ---- Roster ----
	g.POST("/people", h.CreatePerson)
	g.GET("/people", h.ListPeople)
	g.GET("/people/:id", h.GetPerson)
	g.PUT("/people/:id", h.UpdatePerson)
	g.DELETE("/people/:id", h.DeletePerson)

	// ---- Seating ----
	g.POST("/charts/:chart_id/assignments", h.AssignPerson)
	g.GET("/charts/:chart_id/assignments", h.ListAssignments)
	g.GET("/charts/:chart_id/furniture/:furniture_id/occupant", h.WhoSitsAt)
	g.GET("/charts/:chart_id/people/:person_id/seat", h.WhereSeated)
	g.GET("/assignments/:id", h.GetAssignment)
	g.PATCH("/assignments/:id", h.ReassignPerson)
	g.DELETE("/assignments/:id", h.UnassignPerson)
}
