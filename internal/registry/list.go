package registry

import (
	"context"
	"encoding/json"
	"errors"
	"iter"

	"github.com/iliyamo/seating-chart/internal/model"
	"github.com/iliyamo/seating-chart/internal/store"
)

// ListByChart yields the assignments of a chart in creation order.  The
// sequence reads the store lazily page by page and can be ranged over again
// to restart from the beginning.
func (r *Registry) ListByChart(ctx context.Context, ownerID, chartID string) iter.Seq2[model.Assignment, error] {
	return func(yield func(model.Assignment, error) bool) {
		q := store.Query{
			Partition: store.OwnerPartition(ownerID),
			Prefix:    seatingPrefix + chartID + store.Separator,
			Limit:     pageSize,
		}
		for {
			page, err := r.s.Query(ctx, q)
			if err != nil {
				yield(model.Assignment{}, err)
				return
			}
			for _, it := range page {
				a, _, err := r.load(ctx, ownerID, string(it.Value))
				if errors.Is(err, ErrNotFound) {
					continue
				}
				if err == nil && a.ChartID != chartID {
					continue
				}
				if !yield(a, err) || err != nil {
					return
				}
			}
			if len(page) < q.Limit {
				return
			}
			q.After = page[len(page)-1].Key.Sort
		}
	}
}

// ListByPerson yields the seat of personID in the chart, if any.
func (r *Registry) ListByPerson(ctx context.Context, ownerID, chartID, personID string) iter.Seq2[model.Assignment, error] {
	return r.viaClaim(ctx, ownerID, personKey(ownerID, chartID, personID), seatsPerson(chartID, personID))
}

// ListByFurniture yields the person seated on furnitureID, if any.
func (r *Registry) ListByFurniture(ctx context.Context, ownerID, chartID, furnitureID string) iter.Seq2[model.Assignment, error] {
	return r.viaClaim(ctx, ownerID, slotKey(ownerID, chartID, furnitureID), occupiesSlot(chartID, furnitureID))
}

// viaClaim resolves a claim path to at most one confirmed assignment.
func (r *Registry) viaClaim(ctx context.Context, ownerID string, key store.Key, confirms func(model.Assignment) bool) iter.Seq2[model.Assignment, error] {
	return func(yield func(model.Assignment, error) bool) {
		raw, err := r.s.Get(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			return
		}
		if err != nil {
			yield(model.Assignment{}, err)
			return
		}
		var c claim
		if err := json.Unmarshal(raw, &c); err != nil {
			yield(model.Assignment{}, err)
			return
		}
		a, _, err := r.load(ctx, ownerID, c.AssignmentID)
		if errors.Is(err, ErrNotFound) {
			return
		}
		if err != nil {
			yield(model.Assignment{}, err)
			return
		}
		if confirms(a) {
			yield(a, nil)
		}
	}
}

// Collect drains seq into a slice, stopping at the first error.
func Collect(seq iter.Seq2[model.Assignment, error]) ([]model.Assignment, error) {
	var out []model.Assignment
	for a, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, a)
	}
	return out, nil
}
