package repository

import (
	"context"
	"encoding/json"

	"github.com/iliyamo/seating-chart/internal/model"
	"github.com/iliyamo/seating-chart/internal/store"
)

// PersonRepo stores the owner's roster.
type PersonRepo struct {
	s store.Store
}

// NewPersonRepo constructs a PersonRepo over the given store.
func NewPersonRepo(s store.Store) *PersonRepo {
	return &PersonRepo{s: s}
}

// Create adds a person to the roster.
func (r *PersonRepo) Create(ctx context.Context, p *model.Person) error {
	return putJSON(ctx, r.s, personKey(p.OwnerID, p.ID), p, true)
}

// GetByIDAndOwner returns ErrPersonNotFound when the person is not part of
// the owner's roster.
func (r *PersonRepo) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*model.Person, error) {
	var p model.Person
	if err := getJSON(ctx, r.s, personKey(ownerID, id), &p, ErrPersonNotFound); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByOwner returns the roster ordered by id.
func (r *PersonRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Person, error) {
	var out []*model.Person
	q := store.Query{Partition: store.OwnerPartition(ownerID), Prefix: personPrefix}
	err := scan(ctx, r.s, q, func(it store.Item) error {
		p := new(model.Person)
		if err := json.Unmarshal(it.Value, p); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	return out, err
}

func (r *PersonRepo) Update(ctx context.Context, p *model.Person) error {
	return putJSON(ctx, r.s, personKey(p.OwnerID, p.ID), p, false)
}

func (r *PersonRepo) Delete(ctx context.Context, id, ownerID string) error {
	return r.s.Delete(ctx, personKey(ownerID, id))
}
