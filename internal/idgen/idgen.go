// Package idgen supplies unique identifiers that sort by creation time.
package idgen

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Generator returns a fresh identifier on every call.  Identifiers produced
// later compare greater than earlier ones as plain strings.
type Generator interface {
	NewID() string
}

// UUIDv7 generates RFC 9562 version 7 UUIDs.  The leading 48 bits are a
// millisecond timestamp and the library keeps ids monotonic within one
// millisecond, so the canonical string form sorts by creation.
type UUIDv7 struct{}

func (UUIDv7) NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Sequence yields prefix-000001, prefix-000002, ... and is meant for tests
// that need predictable ids.
type Sequence struct {
	Prefix string

	mu sync.Mutex
	n  int
}

func (s *Sequence) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s%06d", s.Prefix, s.n)
}
