package handler // declare the package name; contains HTTP handlers

import (
    "context"  // context bounds the store probe
    "errors"   // errors matches the store's not-found sentinel
    "net/http" // net/http provides status codes and response helpers
    "time"     // time sets the probe timeout

    "github.com/labstack/echo/v4" // echo is the web framework used for this project

    "github.com/iliyamo/seating-chart/internal/store" // store is probed for readiness
)

// Health is a liveness endpoint used by load balancers.  It returns a plain
// text "ok" message with an HTTP 200 status code.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

// Ready returns a readiness handler that issues a point read against the
// item store.  A missing key is the expected answer; any other error means
// the backend is unreachable.
func Ready(s store.Store) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()
        _, err := s.Get(ctx, store.Key{Partition: "health", Sort: "probe"})
        if err != nil && !errors.Is(err, store.ErrNotFound) {
            return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "store unavailable"})
        }
        return c.String(http.StatusOK, "ready")
    }
}
