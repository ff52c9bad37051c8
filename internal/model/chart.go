package model

import "time"

// Chart status values.  Archived charts are kept for reference but reject
// new furniture and new assignments.
const (
    ChartActive   = "ACTIVE"
    ChartArchived = "ARCHIVED"
)

// Chart is a floor layout owned by a user.  Width and Height bound the
// canvas in grid cells; every furniture item of the chart must fit inside.
//
// Fields:
//  ID        – chart identifier (time sortable).
//  OwnerID   – user that owns the chart and everything on it.
//  Name      – display name.
//  Width     – canvas width in cells.
//  Height    – canvas height in cells.
//  Status    – ACTIVE or ARCHIVED.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Chart struct {
    ID        string    `json:"id"`
    OwnerID   string    `json:"owner_id"`
    Name      string    `json:"name"`
    Width     int       `json:"width"`
    Height    int       `json:"height"`
    Status    string    `json:"status"`
    CreatedAt time.Time `json:"created_at"`
    UpdatedAt time.Time `json:"updated_at"`
}

// IsActive reports whether the chart still accepts placements and seating.
func (c Chart) IsActive() bool { return c.Status == ChartActive }
