package model

import "time"

// Assignment seats one person on one furniture item of a chart.  Within a
// chart a person holds at most one active assignment and a furniture item
// seats at most one person.
type Assignment struct {
    ID          string    `json:"id"`
    ChartID     string    `json:"chart_id"`
    FurnitureID string    `json:"furniture_id"`
    PersonID    string    `json:"person_id"`
    OwnerID     string    `json:"owner_id"`
    CreatedAt   time.Time `json:"created_at"`
    UpdatedAt   time.Time `json:"updated_at"`
}
