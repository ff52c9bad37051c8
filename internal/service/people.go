package service

import (
    "context"
    "fmt"
    "strings"

    "github.com/iliyamo/seating-chart/internal/model"
    "github.com/iliyamo/seating-chart/internal/registry"
)

// PersonInput carries the editable roster fields.
type PersonInput struct {
    FirstName string `json:"first_name"`
    LastName  string `json:"last_name"`
    Email     string `json:"email"`
    Phone     string `json:"phone"`
}

func (in PersonInput) normalize() (PersonInput, error) {
    in.FirstName = strings.TrimSpace(in.FirstName)
    in.LastName = strings.TrimSpace(in.LastName)
    in.Email = strings.TrimSpace(in.Email)
    in.Phone = strings.TrimSpace(in.Phone)
    if in.FirstName == "" && in.LastName == "" {
        return in, fmt.Errorf("%w: first_name or last_name is required", ErrInvalidInput)
    }
    if in.Email != "" && !strings.Contains(in.Email, "@") {
        return in, fmt.Errorf("%w: malformed email", ErrInvalidInput)
    }
    return in, nil
}

// CreatePerson adds a person to the owner's roster.
func (s *ChartService) CreatePerson(ctx context.Context, ownerID string, in PersonInput) (*model.Person, error) {
    in, err := in.normalize()
    if err != nil {
        return nil, err
    }
    now := s.stamp()
    p := &model.Person{
        ID:        s.ids.NewID(),
        OwnerID:   ownerID,
        FirstName: in.FirstName,
        LastName:  in.LastName,
        Email:     in.Email,
        Phone:     in.Phone,
        CreatedAt: now,
        UpdatedAt: now,
    }
    if err := s.people.Create(ctx, p); err != nil {
        return nil, err
    }
    return p, nil
}

func (s *ChartService) GetPerson(ctx context.Context, ownerID, personID string) (*model.Person, error) {
    return s.people.GetByIDAndOwner(ctx, personID, ownerID)
}

func (s *ChartService) ListPeople(ctx context.Context, ownerID string) ([]*model.Person, error) {
    return s.people.ListByOwner(ctx, ownerID)
}

// UpdatePerson replaces the roster fields of a person.
func (s *ChartService) UpdatePerson(ctx context.Context, ownerID, personID string, in PersonInput) (*model.Person, error) {
    in, err := in.normalize()
    if err != nil {
        return nil, err
    }
    p, err := s.people.GetByIDAndOwner(ctx, personID, ownerID)
    if err != nil {
        return nil, err
    }
    p.FirstName, p.LastName, p.Email, p.Phone = in.FirstName, in.LastName, in.Email, in.Phone
    p.UpdatedAt = s.stamp()
    if err := s.people.Update(ctx, p); err != nil {
        return nil, err
    }
    return p, nil
}

// DeletePerson removes a person from the roster and from every seat the
// person holds in the owner's charts.
func (s *ChartService) DeletePerson(ctx context.Context, ownerID, personID string) error {
    if _, err := s.people.GetByIDAndOwner(ctx, personID, ownerID); err != nil {
        return err
    }
    if err := s.people.Delete(ctx, personID, ownerID); err != nil {
        return err
    }
    charts, err := s.charts.ListByOwner(ctx, ownerID)
    if err != nil {
        return err
    }
    for _, c := range charts {
        seats, err := registry.Collect(s.seats.ListByPerson(ctx, ownerID, c.ID, personID))
        if err != nil {
            return err
        }
        for _, a := range seats {
            if err := s.unassign(ctx, ownerID, a.ID); err != nil {
                return err
            }
        }
    }
    return nil
}
