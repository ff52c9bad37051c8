package service

import (
    "context"
    "errors"
    "iter"

    "github.com/iliyamo/seating-chart/internal/model"
    "github.com/iliyamo/seating-chart/internal/queue"
    "github.com/iliyamo/seating-chart/internal/registry"
    "github.com/iliyamo/seating-chart/internal/repository"
    "github.com/iliyamo/seating-chart/pkg/logger"
)

// checkSeat verifies that furnitureID is furniture of chartID and that
// personID is in the owner's roster.  Anything else is a foreign reference.
func (s *ChartService) checkSeat(ctx context.Context, ownerID, chartID, furnitureID, personID string) error {
    f, err := s.furniture.GetByIDAndOwner(ctx, furnitureID, ownerID)
    if errors.Is(err, repository.ErrFurnitureNotFound) {
        return ErrForeignReference
    }
    if err != nil {
        return err
    }
    if f.ChartID != chartID {
        return ErrForeignReference
    }
    _, err = s.people.GetByIDAndOwner(ctx, personID, ownerID)
    if errors.Is(err, repository.ErrPersonNotFound) {
        return ErrForeignReference
    }
    return err
}

// AssignPerson seats a person on a furniture item of the chart.
func (s *ChartService) AssignPerson(ctx context.Context, ownerID, chartID, furnitureID, personID string) (*model.Assignment, error) {
    if _, err := s.activeChart(ctx, ownerID, chartID); err != nil {
        return nil, err
    }
    if err := s.checkSeat(ctx, ownerID, chartID, furnitureID, personID); err != nil {
        return nil, err
    }
    a, err := s.seats.Assign(ctx, ownerID, chartID, furnitureID, personID)
    if err != nil {
        return nil, err
    }
    // the furniture or the person may have been deleted while we were
    // seating; their cascades may have missed this assignment
    if err := s.checkSeat(ctx, ownerID, chartID, furnitureID, personID); err != nil {
        if uerr := s.unassign(ctx, ownerID, a.ID); uerr != nil {
            return nil, uerr
        }
        return nil, err
    }
    s.publish(ctx, queue.EventAssigned, a, "")
    return &a, nil
}

// ReassignPerson moves an existing assignment to another furniture item of
// the same chart.
func (s *ChartService) ReassignPerson(ctx context.Context, ownerID, assignmentID, furnitureID string) (*model.Assignment, error) {
    cur, err := s.seats.Get(ctx, ownerID, assignmentID)
    if err != nil {
        return nil, err
    }
    if _, err := s.activeChart(ctx, ownerID, cur.ChartID); err != nil {
        return nil, err
    }
    if err := s.checkSeat(ctx, ownerID, cur.ChartID, furnitureID, cur.PersonID); err != nil {
        return nil, err
    }
    a, err := s.seats.Reassign(ctx, ownerID, assignmentID, furnitureID)
    if err != nil {
        return nil, err
    }
    // the target or the person may have been deleted while we moved; their
    // cascades looked for the assignment on its previous seat
    if err := s.checkSeat(ctx, ownerID, cur.ChartID, furnitureID, cur.PersonID); err != nil {
        if uerr := s.moveBack(ctx, cur); uerr != nil {
            return nil, uerr
        }
        return nil, err
    }
    if a.FurnitureID != cur.FurnitureID {
        s.publish(ctx, queue.EventReassigned, a, cur.FurnitureID)
    }
    return &a, nil
}

// moveBack returns a reassigned assignment to its previous seat, or drops it
// when that seat is no longer valid either.
func (s *ChartService) moveBack(ctx context.Context, prev model.Assignment) error {
    _, err := s.seats.Reassign(ctx, prev.OwnerID, prev.ID, prev.FurnitureID)
    if err == nil {
        err = s.checkSeat(ctx, prev.OwnerID, prev.ChartID, prev.FurnitureID, prev.PersonID)
    }
    if err == nil {
        return nil
    }
    logger.Warn().Err(err).Str("assignment", prev.ID).Msg("previous seat unavailable, unassigning")
    return s.unassign(ctx, prev.OwnerID, prev.ID)
}

// UnassignPerson removes an assignment.  An unknown id is registry.ErrNotFound.
func (s *ChartService) UnassignPerson(ctx context.Context, ownerID, assignmentID string) error {
    a, err := s.seats.Unassign(ctx, ownerID, assignmentID)
    if err != nil {
        return err
    }
    s.publish(ctx, queue.EventUnassigned, a, "")
    return nil
}

// unassign is the cascade variant: an assignment that is already gone is
// not an error.
func (s *ChartService) unassign(ctx context.Context, ownerID, assignmentID string) error {
    err := s.UnassignPerson(ctx, ownerID, assignmentID)
    if errors.Is(err, registry.ErrNotFound) {
        return nil
    }
    if err != nil {
        logger.Error().Err(err).Str("assignment", assignmentID).Msg("cascade unassign failed")
    }
    return err
}

// ListAssignments returns the chart's assignments in creation order as a
// lazy sequence.
func (s *ChartService) ListAssignments(ctx context.Context, ownerID, chartID string) (iter.Seq2[model.Assignment, error], error) {
    if _, err := s.charts.GetByIDAndOwner(ctx, chartID, ownerID); err != nil {
        return nil, err
    }
    return s.seats.ListByChart(ctx, ownerID, chartID), nil
}

// GetAssignment returns one assignment by id.
func (s *ChartService) GetAssignment(ctx context.Context, ownerID, assignmentID string) (*model.Assignment, error) {
    a, err := s.seats.Get(ctx, ownerID, assignmentID)
    if err != nil {
        return nil, err
    }
    return &a, nil
}

// WhoSitsAt returns the assignment on a furniture item, or nil when the
// item is free.
func (s *ChartService) WhoSitsAt(ctx context.Context, ownerID, chartID, furnitureID string) (*model.Assignment, error) {
    f, err := s.furniture.GetByIDAndOwner(ctx, furnitureID, ownerID)
    if err != nil {
        return nil, err
    }
    if f.ChartID != chartID {
        return nil, ErrForeignReference
    }
    return first(s.seats.ListByFurniture(ctx, ownerID, chartID, furnitureID))
}

// WhereSeated returns the person's assignment in the chart, or nil.
func (s *ChartService) WhereSeated(ctx context.Context, ownerID, chartID, personID string) (*model.Assignment, error) {
    if _, err := s.charts.GetByIDAndOwner(ctx, chartID, ownerID); err != nil {
        return nil, err
    }
    if _, err := s.people.GetByIDAndOwner(ctx, personID, ownerID); err != nil {
        return nil, err
    }
    return first(s.seats.ListByPerson(ctx, ownerID, chartID, personID))
}

func first(seq iter.Seq2[model.Assignment, error]) (*model.Assignment, error) {
    for a, err := range seq {
        if err != nil {
            return nil, err
        }
        return &a, nil
    }
    return nil, nil
}
