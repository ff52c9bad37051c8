package repository // repository holds data access logic for domain entities

import (
	"context" // context is used to manage deadlines and cancellation
	"encoding/json"

	"github.com/iliyamo/seating-chart/internal/model"
	"github.com/iliyamo/seating-chart/internal/store"
)

// ChartRepo stores chart records in the owner's partition.
type ChartRepo struct {
	s store.Store // s is the underlying keyed store
}

// NewChartRepo constructs a ChartRepo over the given store.
func NewChartRepo(s store.Store) *ChartRepo {
	return &ChartRepo{s: s}
}

// Create writes a new chart.  It fails with ErrConflict when a chart with
// the same id already exists for the owner.
func (r *ChartRepo) Create(ctx context.Context, c *model.Chart) error {
	return putJSON(ctx, r.s, chartKey(c.OwnerID, c.ID), c, true)
}

// GetByIDAndOwner retrieves a chart but only from the given owner's
// partition, so another owner's chart is reported as ErrChartNotFound.
func (r *ChartRepo) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*model.Chart, error) {
	var c model.Chart
	if err := getJSON(ctx, r.s, chartKey(ownerID, id), &c, ErrChartNotFound); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByOwner returns every chart of the owner ordered by id, which for
// time sortable ids is creation order.
func (r *ChartRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Chart, error) {
	var out []*model.Chart
	q := store.Query{Partition: store.OwnerPartition(ownerID), Prefix: chartPrefix}
	err := scan(ctx, r.s, q, func(it store.Item) error {
		c := new(model.Chart)
		if err := json.Unmarshal(it.Value, c); err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	return out, err
}

// Update overwrites the stored chart.  Callers load the chart first so a
// missing chart has already surfaced as ErrChartNotFound.
func (r *ChartRepo) Update(ctx context.Context, c *model.Chart) error {
	return putJSON(ctx, r.s, chartKey(c.OwnerID, c.ID), c, false)
}

// Delete removes the chart record.  Furniture and assignments must be gone
// already; the chart service takes care of the cascade.
func (r *ChartRepo) Delete(ctx context.Context, id, ownerID string) error {
	return r.s.Delete(ctx, chartKey(ownerID, id))
}
