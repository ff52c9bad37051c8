package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/iliyamo/seating-chart/internal/model"
	"github.com/iliyamo/seating-chart/internal/store"
	"github.com/iliyamo/seating-chart/pkg/logger"
)

// FurnitureRepo stores furniture records plus one index entry per item that
// lists the furniture of a chart without scanning the whole partition.
type FurnitureRepo struct {
	s store.Store
}

// NewFurnitureRepo constructs a FurnitureRepo over the given store.
func NewFurnitureRepo(s store.Store) *FurnitureRepo {
	return &FurnitureRepo{s: s}
}

// Create writes the chart index entry and then the record.  The record is
// written last: an index entry without a record is skipped by readers, so
// a crash between the two writes never exposes half an item.
func (r *FurnitureRepo) Create(ctx context.Context, f *model.FurnitureItem) error {
	idx := chartFurnitureKey(f.OwnerID, f.ChartID, f.ID)
	if err := r.s.PutIfAbsent(ctx, idx, []byte(f.ID)); err != nil {
		if errors.Is(err, store.ErrConditionFailed) {
			return ErrConflict
		}
		return err
	}
	if err := putJSON(ctx, r.s, furnitureKey(f.OwnerID, f.ID), f, true); err != nil {
		if derr := r.s.Delete(context.WithoutCancel(ctx), idx); derr != nil {
			logger.Error().
				Err(derr).
				AnErr("cause", err).
				Str("key", idx.Sort).
				Msg("furniture: index cleanup failed")
		}
		return err
	}
	return nil
}

// GetByIDAndOwner retrieves an item from the owner's partition or returns
// ErrFurnitureNotFound.
func (r *FurnitureRepo) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*model.FurnitureItem, error) {
	var f model.FurnitureItem
	if err := getJSON(ctx, r.s, furnitureKey(ownerID, id), &f, ErrFurnitureNotFound); err != nil {
		return nil, err
	}
	return &f, nil
}

// ListByChart returns the furniture of a chart in id order.  Index entries
// whose record is missing or belongs to another chart are ignored.
func (r *FurnitureRepo) ListByChart(ctx context.Context, chartID, ownerID string) ([]model.FurnitureItem, error) {
	var out []model.FurnitureItem
	q := store.Query{
		Partition: store.OwnerPartition(ownerID),
		Prefix:    chartFurniturePrefix + chartID + store.Separator,
	}
	err := scan(ctx, r.s, q, func(it store.Item) error {
		id := strings.TrimPrefix(it.Key.Sort, q.Prefix)
		f, err := r.GetByIDAndOwner(ctx, id, ownerID)
		if errors.Is(err, ErrFurnitureNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if f.ChartID == chartID {
			out = append(out, *f)
		}
		return nil
	})
	return out, err
}

// Update overwrites the stored record.  The chart of an item never changes
// so the index entry stays valid.
func (r *FurnitureRepo) Update(ctx context.Context, f *model.FurnitureItem) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return r.s.Put(ctx, furnitureKey(f.OwnerID, f.ID), raw)
}

// Delete removes the record first and then the index entry.
func (r *FurnitureRepo) Delete(ctx context.Context, f *model.FurnitureItem) error {
	if err := r.s.Delete(ctx, furnitureKey(f.OwnerID, f.ID)); err != nil {
		return err
	}
	return r.s.Delete(ctx, chartFurnitureKey(f.OwnerID, f.ChartID, f.ID))
}
