package model

import "time"

// Person is an entry in an owner's roster.  People live independently of
// charts and are bound to furniture through assignments.
type Person struct {
    ID        string    `json:"id"`
    OwnerID   string    `json:"owner_id"`
    FirstName string    `json:"first_name"`
    LastName  string    `json:"last_name"`
    Email     string    `json:"email,omitempty"`
    Phone     string    `json:"phone,omitempty"`
    CreatedAt time.Time `json:"created_at"`
    UpdatedAt time.Time `json:"updated_at"`
}
