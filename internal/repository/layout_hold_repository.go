package repository

import (
    "context"
    "crypto/rand"
    "encoding/hex"
    "encoding/json"
    "errors"
    "time"

    "github.com/iliyamo/seating-chart/internal/store"
)

// ErrHoldTaken is returned when another writer holds the chart layout.
var ErrHoldTaken = errors.New("layout hold taken")

// LayoutHold is a short lease on a chart's furniture layout.  Whoever holds
// it may place, move or resize; everybody else waits.  A hold that is not
// released expires at ExpiresAt so a crashed writer cannot block the chart.
type LayoutHold struct {
    OwnerID   string    `json:"owner_id"`
    ChartID   string    `json:"chart_id"`
    HoldToken string    `json:"hold_token"` // random, distinguishes two holds of the same chart
    ExpiresAt time.Time `json:"expires_at"`

    raw []byte // stored value, used for the conditional release
}

// LayoutHoldRepo stores layout holds next to the chart record.  All
// expiry comparisons use UTC.
type LayoutHoldRepo struct {
    s   store.Store
    ttl time.Duration
    now func() time.Time
}

// NewLayoutHoldRepo returns a repo whose holds last ttl.
func NewLayoutHoldRepo(s store.Store, ttl time.Duration) *LayoutHoldRepo {
    return &LayoutHoldRepo{s: s, ttl: ttl, now: time.Now}
}

func layoutHoldKey(ownerID, chartID string) store.Key {
    return store.Key{Partition: store.OwnerPartition(ownerID), Sort: "chart-layout" + store.Separator + chartID}
}

// TryAcquire takes the hold or returns ErrHoldTaken.  An expired hold is
// removed and the acquisition tried once more.
func (r *LayoutHoldRepo) TryAcquire(ctx context.Context, ownerID, chartID string) (*LayoutHold, error) {
    token, err := randomToken(16)
    if err != nil {
        return nil, err
    }
    h := &LayoutHold{OwnerID: ownerID, ChartID: chartID, HoldToken: token}
    key := layoutHoldKey(ownerID, chartID)

    for attempt := 0; attempt < 2; attempt++ {
        h.ExpiresAt = r.now().UTC().Add(r.ttl)
        raw, err := json.Marshal(h)
        if err != nil {
            return nil, err
        }
        err = r.s.PutIfAbsent(ctx, key, raw)
        if err == nil {
            h.raw = raw
            return h, nil
        }
        if !errors.Is(err, store.ErrConditionFailed) {
            return nil, err
        }

        cur, err := r.s.Get(ctx, key)
        if errors.Is(err, store.ErrNotFound) {
            continue
        }
        if err != nil {
            return nil, err
        }
        var held LayoutHold
        if err := json.Unmarshal(cur, &held); err == nil && r.now().UTC().Before(held.ExpiresAt) {
            return nil, ErrHoldTaken
        }
        // expired or unreadable: drop it unless somebody else was faster
        if err := r.s.DeleteIf(ctx, key, cur); err != nil &&
            !errors.Is(err, store.ErrNotFound) && !errors.Is(err, store.ErrConditionFailed) {
            return nil, err
        }
    }
    return nil, ErrHoldTaken
}

// Release gives the hold back.  A hold that already expired and was taken
// over by another writer is left alone.
func (r *LayoutHoldRepo) Release(ctx context.Context, h *LayoutHold) error {
    err := r.s.DeleteIf(ctx, layoutHoldKey(h.OwnerID, h.ChartID), h.raw)
    if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrConditionFailed) {
        return nil
    }
    return err
}

// randomToken generates a random hexadecimal string of length n*2 bytes.
func randomToken(n int) (string, error) {
    b := make([]byte, n)
    if _, err := rand.Read(b); err != nil {
        return "", err
    }
    return hex.EncodeToString(b), nil
}
