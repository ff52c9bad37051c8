// Package queue contains the background consumer that listens to the
// seating.events queue and appends one audit line per event.
package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/rs/zerolog"

    "github.com/iliyamo/seating-chart/pkg/logger"
)

// Auditor turns seating events into structured audit lines.
type Auditor struct {
    log zerolog.Logger
}

// NewAuditor writes audit lines to w.
func NewAuditor(w io.Writer) *Auditor {
    return &Auditor{log: zerolog.New(w).With().Str("stream", "seating-audit").Logger()}
}

// OpenAuditFile appends to path, creating the file and its directory.
func OpenAuditFile(path string) (*Auditor, io.Closer, error) {
    if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
        return nil, nil, fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
    }
    f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return nil, nil, fmt.Errorf("open audit file: %w", err)
    }
    return NewAuditor(f), f, nil
}

// Handle decodes one message body and records it.
func (a *Auditor) Handle(body []byte) error {
    var ev SeatingEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    switch ev.Type {
    case EventAssigned, EventReassigned, EventUnassigned:
    default:
        return fmt.Errorf("unknown event type %q", ev.Type)
    }
    e := a.log.Info().
        Str("event", ev.Type).
        Time("occurred_at", ev.OccurredAt).
        Str("owner_id", ev.OwnerID).
        Str("chart_id", ev.ChartID).
        Str("assignment_id", ev.AssignmentID).
        Str("furniture_id", ev.FurnitureID).
        Str("person_id", ev.PersonID)
    if ev.PreviousFurnitureID != "" {
        e = e.Str("previous_furniture_id", ev.PreviousFurnitureID)
    }
    e.Msg("seating changed")
    return nil
}

// StartSeatingConsumer connects to RabbitMQ, declares the seating queue
// (durable) and hands every delivery to the auditor.  It keeps
// reconnecting with exponential backoff until ctx is cancelled.
func StartSeatingConsumer(ctx context.Context, url string, a *Auditor) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(url)
        if err != nil {
            logger.Warn().Err(err).Dur("retry_in", backoff).Msg("seating-consumer: failed to dial broker")
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect
        logger.Info().Msg("seating-consumer: connected")

        err = consumeLoop(ctx, conn, a)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        logger.Warn().Err(err).Msg("seating-consumer: consume loop ended; reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, a *Auditor) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        logger.Warn().Err(err).Msg("seating-consumer: set QoS failed")
    }

    if _, err := ch.QueueDeclare(SeatingQueueName, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.Consume(SeatingQueueName, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := a.Handle(d.Body); err != nil {
                logger.Error().Err(err).Msg("seating-consumer: handle message failed")
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// sleep waits for d and reports false when ctx ends first.
func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
