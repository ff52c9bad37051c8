// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// chart service and the handlers to distinguish between different failure
// scenarios without inspecting storage errors.
package repository

import "errors"

var (
	// ErrChartNotFound is returned when a chart lookup fails for the owner.
	ErrChartNotFound = errors.New("chart not found")
	// ErrFurnitureNotFound is returned when a furniture lookup fails.
	ErrFurnitureNotFound = errors.New("furniture not found")
	// ErrPersonNotFound is returned when a roster lookup fails.
	ErrPersonNotFound = errors.New("person not found")
	// ErrConflict is returned when a record with the same id already exists.
	ErrConflict = errors.New("conflict")
)
