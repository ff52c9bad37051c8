// Package registry keeps people bound to furniture.  An assignment is stored
// once as a primary record and reached through three derived paths:
//
//	chart-slot#<chart>#<furniture>   claim, one person per slot
//	chart-person#<chart>#<person>    claim, one seat per person
//	chart-seating#<chart>#<id>       chart listing in creation order
//
// The claims are written with insert-if-absent so concurrent writers race on
// the store and exactly one wins.  The primary record is written last and is
// the commit point: every read resolves an index entry through it and drops
// entries it does not confirm, so a half written assignment is never visible.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/seating-chart/internal/idgen"
	"github.com/iliyamo/seating-chart/internal/model"
	"github.com/iliyamo/seating-chart/internal/store"
	"github.com/iliyamo/seating-chart/pkg/logger"
)

var (
	// ErrSlotOccupied is returned when the furniture item already seats someone.
	ErrSlotOccupied = errors.New("slot occupied")
	// ErrPersonAlreadySeated is returned when the person already holds a seat
	// in the chart.
	ErrPersonAlreadySeated = errors.New("person already seated")
	// ErrNotFound is returned when an assignment id does not exist.
	ErrNotFound = errors.New("assignment not found")
	// ErrBusy is returned when an assignment kept changing under a reassign.
	ErrBusy = errors.New("assignment changed concurrently")
	// ErrIndexInconsistent is returned when a partial write could not be
	// rolled back.  The operation did not succeed.
	ErrIndexInconsistent = errors.New("assignment index inconsistent")
)

// errClaimTaken is the internal outcome of losing a claim.
var errClaimTaken = errors.New("claim taken")

const (
	// DefaultGrace is how long an unconfirmed claim is presumed to belong to
	// a writer that is still running.
	DefaultGrace = 30 * time.Second

	maxAttempts = 5
	pageSize    = 100

	assignmentPrefix = "assignment" + store.Separator
	slotPrefix       = "chart-slot" + store.Separator
	personPrefix     = "chart-person" + store.Separator
	seatingPrefix    = "chart-seating" + store.Separator
)

// claim is the value stored under a slot or person path.
type claim struct {
	AssignmentID string    `json:"assignment_id"`
	ClaimedAt    time.Time `json:"claimed_at"`
}

// Registry maintains assignments and their index paths.  It holds no
// mutable state of its own; all coordination happens in the store.
type Registry struct {
	s     store.Store
	ids   idgen.Generator
	now   func() time.Time
	grace time.Duration
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithGrace sets how old an unconfirmed claim must be before it is removed.
func WithGrace(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.grace = d
		}
	}
}

// New returns a registry persisting into s and naming assignments with ids.
func New(s store.Store, ids idgen.Generator, opts ...Option) *Registry {
	r := &Registry{s: s, ids: ids, now: time.Now, grace: DefaultGrace}
	for _, o := range opts {
		o(r)
	}
	return r
}

func assignmentKey(ownerID, id string) store.Key {
	return store.Key{Partition: store.OwnerPartition(ownerID), Sort: assignmentPrefix + id}
}

func slotKey(ownerID, chartID, furnitureID string) store.Key {
	return store.Key{Partition: store.OwnerPartition(ownerID), Sort: slotPrefix + store.Join(chartID, furnitureID)}
}

func personKey(ownerID, chartID, personID string) store.Key {
	return store.Key{Partition: store.OwnerPartition(ownerID), Sort: personPrefix + store.Join(chartID, personID)}
}

func seatingKey(ownerID, chartID, id string) store.Key {
	return store.Key{Partition: store.OwnerPartition(ownerID), Sort: seatingPrefix + store.Join(chartID, id)}
}

// occupiesSlot and seatsPerson confirm that a primary record still backs a
// claim found on the corresponding path.
func occupiesSlot(chartID, furnitureID string) func(model.Assignment) bool {
	return func(a model.Assignment) bool { return a.ChartID == chartID && a.FurnitureID == furnitureID }
}

func seatsPerson(chartID, personID string) func(model.Assignment) bool {
	return func(a model.Assignment) bool { return a.ChartID == chartID && a.PersonID == personID }
}

// Get returns the assignment with the given id.
func (r *Registry) Get(ctx context.Context, ownerID, id string) (model.Assignment, error) {
	a, _, err := r.load(ctx, ownerID, id)
	if err != nil {
		return model.Assignment{}, err
	}
	return a, nil
}

// load returns the primary record together with its raw bytes, which serve
// as the expected value of later conditional writes.
func (r *Registry) load(ctx context.Context, ownerID, id string) (model.Assignment, []byte, error) {
	var a model.Assignment
	raw, err := r.s.Get(ctx, assignmentKey(ownerID, id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return a, nil, ErrNotFound
		}
		return a, nil, err
	}
	if err := json.Unmarshal(raw, &a); err != nil {
		return a, nil, fmt.Errorf("decode assignment %s: %w", id, err)
	}
	return a, raw, nil
}

// acquire claims key for c.AssignmentID.  When the key is held by a
// confirmed assignment it returns that assignment with errClaimTaken; when
// it is held by a writer that has not committed yet the assignment is nil.
// Claims that are unconfirmed and older than the grace window are left
// over from an interrupted writer and are removed before trying again.
func (r *Registry) acquire(ctx context.Context, ownerID string, key store.Key, c claim, confirms func(model.Assignment) bool) (*model.Assignment, error) {
	value, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := r.s.PutIfAbsent(ctx, key, value)
		if err == nil {
			return nil, nil
		}
		if !errors.Is(err, store.ErrConditionFailed) {
			return nil, err
		}

		raw, err := r.s.Get(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			continue // released in the meantime
		}
		if err != nil {
			return nil, err
		}
		var held claim
		if err := json.Unmarshal(raw, &held); err != nil {
			return nil, fmt.Errorf("decode claim %s: %w", key.Sort, err)
		}
		holder, _, err := r.load(ctx, ownerID, held.AssignmentID)
		switch {
		case err == nil && confirms(holder):
			return &holder, errClaimTaken
		case err != nil && !errors.Is(err, ErrNotFound):
			return nil, err
		}

		if r.now().Sub(held.ClaimedAt) < r.grace {
			return nil, errClaimTaken
		}
		if err := r.s.DeleteIf(ctx, key, raw); err != nil &&
			!errors.Is(err, store.ErrConditionFailed) && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		logger.Warn().
			Str("owner", ownerID).
			Str("key", key.Sort).
			Str("assignment", held.AssignmentID).
			Msg("registry: removed stale claim")
	}
	return nil, errClaimTaken
}

// release drops the claim under key if it still belongs to assignmentID.
func (r *Registry) release(ctx context.Context, key store.Key, assignmentID string) error {
	raw, err := r.s.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	var held claim
	if err := json.Unmarshal(raw, &held); err != nil || held.AssignmentID != assignmentID {
		return nil
	}
	err = r.s.DeleteIf(ctx, key, raw)
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrConditionFailed) {
		return nil
	}
	return err
}

// held reports whether w is still stored exactly as written.  A claim that
// stays unconfirmed past the grace window can be taken over, so a writer
// that stalled must look again after its commit.
func (r *Registry) held(ctx context.Context, w written) (bool, error) {
	cur, err := r.s.Get(ctx, w.key)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return bytes.Equal(cur, w.value), nil
}

// written is an entry put by the current operation, removed again with a
// conditional delete when the operation has to be undone.
type written struct {
	key   store.Key
	value []byte
}

// rollback removes entries in reverse order and returns cause.  An entry
// that is gone or now holds another value is no longer ours and is skipped.
// If an entry cannot be removed the store is left with an orphan that
// readers ignore but that still holds a claim, and ErrIndexInconsistent is
// returned.
func (r *Registry) rollback(ctx context.Context, cause error, entries ...written) error {
	// the request context may be what failed
	ctx = context.WithoutCancel(ctx)
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		err := r.s.DeleteIf(ctx, e.key, e.value)
		if err == nil || errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrConditionFailed) {
			continue
		}
		logger.Error().
			Err(err).
			Str("key", e.key.Sort).
			AnErr("cause", cause).
			Msg("registry: rollback failed")
		return fmt.Errorf("%w: undo %s after %v: %v", ErrIndexInconsistent, e.key.Sort, cause, err)
	}
	return cause
}
