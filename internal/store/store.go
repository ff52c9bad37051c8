// Package store defines the contract of the external keyed store the seating
// engine persists into.  Items are addressed by an owner scoped partition key
// and an entity scoped sort key.  Adapters must provide atomic single item
// conditional writes and ordered range queries over sort keys; the engine
// builds its secondary index paths on top of those two primitives.
package store

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when no item exists under the requested key.
	ErrNotFound = errors.New("store: item not found")
	// ErrConditionFailed is returned when a conditional write loses: the key
	// already exists for PutIfAbsent, or the current value differs from the
	// expected one for CompareAndSwap and DeleteIf.
	ErrConditionFailed = errors.New("store: condition failed")
)

// Key addresses a single item.
type Key struct {
	Partition string
	Sort      string
}

// Item is a stored value together with its key.
type Item struct {
	Key   Key
	Value []byte
}

// Query selects items of one partition whose sort key starts with Prefix,
// in ascending sort key order.  After is an exclusive cursor: only sort keys
// greater than it are returned.  Limit <= 0 means no limit.
type Query struct {
	Partition string
	Prefix    string
	After     string
	Limit     int
}

// Store is implemented by every storage adapter.
type Store interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key Key) ([]byte, error)
	// Put writes value unconditionally.
	Put(ctx context.Context, key Key, value []byte) error
	// PutIfAbsent writes value only when key does not exist yet.
	PutIfAbsent(ctx context.Context, key Key, value []byte) error
	// CompareAndSwap replaces the value only when it currently equals
	// expected.  It returns ErrNotFound when the key is missing.
	CompareAndSwap(ctx context.Context, key Key, expected, value []byte) error
	// Delete removes key.  Deleting a missing key is not an error.
	Delete(ctx context.Context, key Key) error
	// DeleteIf removes key only when its value equals expected.  It returns
	// ErrNotFound when the key is missing.
	DeleteIf(ctx context.Context, key Key, expected []byte) error
	// Query runs a range query over one partition.
	Query(ctx context.Context, q Query) ([]Item, error)
}

// Separator joins the segments of partition and sort keys.
const Separator = "#"

// Join builds a key segment path such as "chart#42#seat".
func Join(parts ...string) string { return strings.Join(parts, Separator) }

// OwnerPartition returns the partition that holds everything owned by ownerID.
func OwnerPartition(ownerID string) string { return Join("owner", ownerID) }

// Match reports whether sortKey belongs to the result set of q.
func (q Query) Match(sortKey string) bool {
	return strings.HasPrefix(sortKey, q.Prefix) && sortKey > q.After
}
