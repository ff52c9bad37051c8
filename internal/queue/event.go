// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// SeatingQueueName is the durable queue every seating event is published to.
const SeatingQueueName = "seating.events"

// Event types carried in SeatingEvent.Type and in the AMQP type property.
const (
    EventAssigned   = "seating.assigned"
    EventReassigned = "seating.reassigned"
    EventUnassigned = "seating.unassigned"
)

// SeatingEvent is published after an assignment changed.  It carries the
// identifiers needed by downstream consumers to audit or notify without
// reading the store.
type SeatingEvent struct {
    Type                string    `json:"type"`
    AssignmentID        string    `json:"assignment_id"`
    OwnerID             string    `json:"owner_id"`
    ChartID             string    `json:"chart_id"`
    FurnitureID         string    `json:"furniture_id"`
    PreviousFurnitureID string    `json:"previous_furniture_id,omitempty"` // set for reassignments
    PersonID            string    `json:"person_id"`
    OccurredAt          time.Time `json:"occurred_at"`
}
