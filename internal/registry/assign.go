package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iliyamo/seating-chart/internal/model"
	"github.com/iliyamo/seating-chart/internal/store"
	"github.com/iliyamo/seating-chart/pkg/logger"
)

// Assign seats personID on furnitureID.  Seating a person on the slot they
// already hold returns the existing assignment.
func (r *Registry) Assign(ctx context.Context, ownerID, chartID, furnitureID, personID string) (model.Assignment, error) {
	now := r.now().UTC()
	a := model.Assignment{
		ID:          r.ids.NewID(),
		ChartID:     chartID,
		FurnitureID: furnitureID,
		PersonID:    personID,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	c := claim{AssignmentID: a.ID, ClaimedAt: now}
	cv, err := json.Marshal(c)
	if err != nil {
		return model.Assignment{}, err
	}

	slot := slotKey(ownerID, chartID, furnitureID)
	holder, err := r.acquire(ctx, ownerID, slot, c, occupiesSlot(chartID, furnitureID))
	if errors.Is(err, errClaimTaken) {
		if holder != nil && holder.PersonID == personID {
			return *holder, nil
		}
		logger.Debug().Str("chart", chartID).Str("furniture", furnitureID).Msg("registry: slot occupied")
		return model.Assignment{}, ErrSlotOccupied
	}
	if err != nil {
		return model.Assignment{}, err
	}
	done := []written{{slot, cv}}

	person := personKey(ownerID, chartID, personID)
	if _, err := r.acquire(ctx, ownerID, person, c, seatsPerson(chartID, personID)); err != nil {
		if errors.Is(err, errClaimTaken) {
			logger.Debug().Str("chart", chartID).Str("person", personID).Msg("registry: person already seated")
			err = ErrPersonAlreadySeated
		}
		return model.Assignment{}, r.rollback(ctx, err, done...)
	}
	done = append(done, written{person, cv})

	seating := seatingKey(ownerID, chartID, a.ID)
	if err := r.s.PutIfAbsent(ctx, seating, []byte(a.ID)); err != nil {
		return model.Assignment{}, r.rollback(ctx, err, done...)
	}
	done = append(done, written{seating, []byte(a.ID)})

	raw, err := json.Marshal(a)
	if err != nil {
		return model.Assignment{}, r.rollback(ctx, err, done...)
	}
	primary := written{assignmentKey(ownerID, a.ID), raw}
	if err := r.s.PutIfAbsent(ctx, primary.key, raw); err != nil {
		return model.Assignment{}, r.rollback(ctx, err, done...)
	}

	// Stale repair only removes claims no record confirms, so claims that
	// still hold cv now stay ours.  A claim lost before the commit belongs
	// to the writer that took it over.
	for _, chk := range []struct {
		w    written
		lost error
	}{{done[0], ErrSlotOccupied}, {done[1], ErrPersonAlreadySeated}} {
		ok, err := r.held(ctx, chk.w)
		if err == nil && !ok {
			logger.Warn().Str("key", chk.w.key.Sort).Str("assignment", a.ID).Msg("registry: claim taken over before commit")
			err = chk.lost
		}
		if err != nil {
			return model.Assignment{}, r.rollback(ctx, err, append(done, primary)...)
		}
	}
	return a, nil
}

// Reassign moves an assignment to another furniture item of the same chart.
// The assignment keeps its id and the person claim, so the person holds
// exactly one seat at every point in time.
func (r *Registry) Reassign(ctx context.Context, ownerID, id, furnitureID string) (model.Assignment, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		cur, raw, err := r.load(ctx, ownerID, id)
		if err != nil {
			return model.Assignment{}, err
		}
		if cur.FurnitureID == furnitureID {
			return cur, nil
		}

		now := r.now().UTC()
		c := claim{AssignmentID: cur.ID, ClaimedAt: now}
		cv, err := json.Marshal(c)
		if err != nil {
			return model.Assignment{}, err
		}
		target := slotKey(ownerID, cur.ChartID, furnitureID)
		holder, err := r.acquire(ctx, ownerID, target, c, occupiesSlot(cur.ChartID, furnitureID))
		if errors.Is(err, errClaimTaken) {
			if holder != nil && holder.ID == cur.ID {
				return *holder, nil
			}
			return model.Assignment{}, ErrSlotOccupied
		}
		if err != nil {
			return model.Assignment{}, err
		}

		next := cur
		next.FurnitureID = furnitureID
		next.UpdatedAt = now
		nraw, err := json.Marshal(next)
		if err != nil {
			return model.Assignment{}, r.rollback(ctx, err, written{target, cv})
		}
		err = r.s.CompareAndSwap(ctx, assignmentKey(ownerID, id), raw, nraw)
		switch {
		case errors.Is(err, store.ErrConditionFailed):
			// changed since we read it; undo and look again
			if err := r.rollback(ctx, nil, written{target, cv}); err != nil {
				return model.Assignment{}, err
			}
			continue
		case errors.Is(err, store.ErrNotFound):
			return model.Assignment{}, r.rollback(ctx, ErrNotFound, written{target, cv})
		case err != nil:
			return model.Assignment{}, r.rollback(ctx, err, written{target, cv})
		}

		ok, err := r.held(ctx, written{target, cv})
		if err == nil && !ok {
			err = ErrSlotOccupied
		}
		if err != nil {
			return model.Assignment{}, r.undoReassign(ctx, cur, raw, nraw, written{target, cv}, err)
		}

		if err := r.release(ctx, slotKey(ownerID, cur.ChartID, cur.FurnitureID), cur.ID); err != nil {
			logger.Error().Err(err).Str("assignment", id).Msg("registry: release previous slot")
			return model.Assignment{}, fmt.Errorf("%w: release previous slot of %s: %v", ErrIndexInconsistent, id, err)
		}
		return next, nil
	}
	return model.Assignment{}, ErrBusy
}

// undoReassign puts the record back on its previous slot after the target
// claim was taken over.  While the record pointed at the target the old
// claim was unconfirmed; if it was taken over too the assignment is dropped
// rather than left sharing a slot.
func (r *Registry) undoReassign(ctx context.Context, prev model.Assignment, prevRaw, nextRaw []byte, target written, cause error) error {
	ctx = context.WithoutCancel(ctx)
	key := assignmentKey(prev.OwnerID, prev.ID)
	logger.Warn().Str("assignment", prev.ID).Str("key", target.key.Sort).Msg("registry: reassign target taken over")

	err := r.s.CompareAndSwap(ctx, key, nextRaw, prevRaw)
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrConditionFailed):
		// unassigned or changed concurrently; that writer owns the record now
		return r.rollback(ctx, cause, target)
	case err != nil:
		logger.Error().Err(err).Str("assignment", prev.ID).Msg("registry: restore record")
		return fmt.Errorf("%w: restore %s after %v: %v", ErrIndexInconsistent, prev.ID, cause, err)
	}

	raw, err := r.s.Get(ctx, slotKey(prev.OwnerID, prev.ChartID, prev.FurnitureID))
	var old claim
	if err == nil {
		err = json.Unmarshal(raw, &old)
	}
	if errors.Is(err, store.ErrNotFound) || (err == nil && old.AssignmentID != prev.ID) {
		logger.Error().Str("assignment", prev.ID).Msg("registry: previous slot lost, dropping assignment")
		if err := r.s.DeleteIf(ctx, key, prevRaw); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: drop %s: %v", ErrIndexInconsistent, prev.ID, err)
		}
		if err := r.cleanup(ctx, prev); err != nil {
			return fmt.Errorf("%w: cleanup of %s: %v", ErrIndexInconsistent, prev.ID, err)
		}
	} else if err != nil {
		return fmt.Errorf("%w: check previous slot of %s: %v", ErrIndexInconsistent, prev.ID, err)
	}
	return r.rollback(ctx, cause, target)
}

// Unassign deletes the assignment and its index entries.  An unknown id
// fails with ErrNotFound.
func (r *Registry) Unassign(ctx context.Context, ownerID, id string) (model.Assignment, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		a, raw, err := r.load(ctx, ownerID, id)
		if err != nil {
			return model.Assignment{}, err
		}
		err = r.s.DeleteIf(ctx, assignmentKey(ownerID, id), raw)
		if errors.Is(err, store.ErrConditionFailed) {
			continue
		}
		if errors.Is(err, store.ErrNotFound) {
			return model.Assignment{}, ErrNotFound
		}
		if err != nil {
			return model.Assignment{}, err
		}
		if err := r.cleanup(ctx, a); err != nil {
			logger.Error().Err(err).Str("assignment", id).Msg("registry: cleanup after unassign")
			return model.Assignment{}, fmt.Errorf("%w: cleanup of %s: %v", ErrIndexInconsistent, id, err)
		}
		return a, nil
	}
	return model.Assignment{}, ErrBusy
}

// cleanup removes the index entries of a deleted assignment.
func (r *Registry) cleanup(ctx context.Context, a model.Assignment) error {
	ctx = context.WithoutCancel(ctx)
	if err := r.release(ctx, slotKey(a.OwnerID, a.ChartID, a.FurnitureID), a.ID); err != nil {
		return err
	}
	if err := r.release(ctx, personKey(a.OwnerID, a.ChartID, a.PersonID), a.ID); err != nil {
		return err
	}
	err := r.s.DeleteIf(ctx, seatingKey(a.OwnerID, a.ChartID, a.ID), []byte(a.ID))
	if err != nil && !errors.Is(err, store.ErrNotFound) && !errors.Is(err, store.ErrConditionFailed) {
		return err
	}
	return nil
}
