package service

import (
    "context"
    "time"

    "github.com/iliyamo/seating-chart/internal/model"
    "github.com/iliyamo/seating-chart/internal/queue"
    "github.com/iliyamo/seating-chart/pkg/logger"
)

// EventPublisher delivers seating events.  Delivery is best effort: the
// chart service logs failures and never fails a request because of them.
type EventPublisher interface {
    Publish(ctx context.Context, ev queue.SeatingEvent) error
}

// NopPublisher drops every event.  It is used when events are disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.SeatingEvent) error { return nil }

const publishTimeout = 2 * time.Second

func (s *ChartService) publish(ctx context.Context, typ string, a model.Assignment, previousFurnitureID string) {
    ev := queue.SeatingEvent{
        Type:                typ,
        AssignmentID:        a.ID,
        OwnerID:             a.OwnerID,
        ChartID:             a.ChartID,
        FurnitureID:         a.FurnitureID,
        PreviousFurnitureID: previousFurnitureID,
        PersonID:            a.PersonID,
        OccurredAt:          s.now().UTC(),
    }
    ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
    defer cancel()
    if err := s.events.Publish(ctx, ev); err != nil {
        logger.Warn().Err(err).Str("event", typ).Str("assignment", a.ID).Msg("publish seating event failed")
    }
}
