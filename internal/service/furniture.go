package service

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/iliyamo/seating-chart/internal/geometry"
    "github.com/iliyamo/seating-chart/internal/model"
    "github.com/iliyamo/seating-chart/internal/registry"
    "github.com/iliyamo/seating-chart/internal/repository"
    "github.com/iliyamo/seating-chart/pkg/logger"
)

// ErrLayoutBusy is returned when the chart layout stayed held by another
// writer for longer than layoutWait.
var ErrLayoutBusy = errors.New("chart layout busy")

const (
    layoutHoldTTL  = 10 * time.Second
    layoutWait     = 3 * time.Second
    layoutPollStep = 20 * time.Millisecond
)

// FurnitureInput describes a new furniture item.  X and Y are the
// requested top-left cell; the item is moved to the first free cell when
// that area is taken.
type FurnitureInput struct {
    X        int    `json:"x"`
    Y        int    `json:"y"`
    Width    int    `json:"width"`
    Height   int    `json:"height"`
    Size     int    `json:"size"`
    Rotation int    `json:"rotation"`
    Kind     string `json:"kind"`
    Label    string `json:"label"`
}

// FurniturePatch changes descriptive fields only.  Nil fields stay as they are.
type FurniturePatch struct {
    Kind  *string `json:"kind"`
    Label *string `json:"label"`
}

// withLayout runs fn while holding the chart's layout, so the furniture set
// fn reads cannot change before fn writes.
func (s *ChartService) withLayout(ctx context.Context, ownerID, chartID string, fn func() error) error {
    ctx, cancel := context.WithTimeout(ctx, layoutWait)
    defer cancel()

    var hold *repository.LayoutHold
    for {
        h, err := s.holds.TryAcquire(ctx, ownerID, chartID)
        if err == nil {
            hold = h
            break
        }
        if !errors.Is(err, repository.ErrHoldTaken) {
            return err
        }
        select {
        case <-ctx.Done():
            return ErrLayoutBusy
        case <-time.After(layoutPollStep):
        }
    }
    defer func() {
        if err := s.holds.Release(context.WithoutCancel(ctx), hold); err != nil {
            logger.Warn().Err(err).Str("chart", chartID).Msg("release layout hold")
        }
    }()
    return fn()
}

// CreateFurniture places a new item on the chart.  A requested position
// that collides is resolved to the first free cell in row-major order.
func (s *ChartService) CreateFurniture(ctx context.Context, ownerID, chartID string, in FurnitureInput) (*model.FurnitureItem, error) {
    kind, ok := model.NormalizeKind(in.Kind)
    if !ok {
        return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, in.Kind)
    }
    var created *model.FurnitureItem
    err := s.withLayout(ctx, ownerID, chartID, func() error {
        c, err := s.activeChart(ctx, ownerID, chartID)
        if err != nil {
            return err
        }
        existing, err := s.furniture.ListByChart(ctx, chartID, ownerID)
        if err != nil {
            return err
        }
        now := s.stamp()
        f := &model.FurnitureItem{
            ID:        s.ids.NewID(),
            ChartID:   chartID,
            OwnerID:   ownerID,
            X:         in.X,
            Y:         in.Y,
            Width:     in.Width,
            Height:    in.Height,
            Size:      in.Size,
            Kind:      kind,
            Rotation:  in.Rotation,
            Label:     strings.TrimSpace(in.Label),
            CreatedAt: now,
            UpdatedAt: now,
        }
        pos, err := geometry.FindPlacement(f.Shape(), model.Shapes(existing), geometry.Bounds{Width: c.Width, Height: c.Height})
        if err != nil {
            return err
        }
        f.X, f.Y = pos.X, pos.Y
        if err := s.furniture.Create(ctx, f); err != nil {
            return err
        }
        created = f
        return nil
    })
    if err != nil {
        return nil, err
    }
    return created, nil
}

func (s *ChartService) GetFurniture(ctx context.Context, ownerID, furnitureID string) (*model.FurnitureItem, error) {
    return s.furniture.GetByIDAndOwner(ctx, furnitureID, ownerID)
}

// ListFurniture returns the chart's furniture.  An unknown chart is
// ErrChartNotFound rather than an empty list.
func (s *ChartService) ListFurniture(ctx context.Context, ownerID, chartID string) ([]model.FurnitureItem, error) {
    if _, err := s.charts.GetByIDAndOwner(ctx, chartID, ownerID); err != nil {
        return nil, err
    }
    return s.furniture.ListByChart(ctx, chartID, ownerID)
}

// MoveFurniture moves an item towards to.  The item is ignored in its own
// collision set, so moving onto a spot that only overlaps its old area is
// fine.
func (s *ChartService) MoveFurniture(ctx context.Context, ownerID, furnitureID string, to geometry.Position) (*model.FurnitureItem, error) {
    f, err := s.furniture.GetByIDAndOwner(ctx, furnitureID, ownerID)
    if err != nil {
        return nil, err
    }
    var moved *model.FurnitureItem
    err = s.withLayout(ctx, ownerID, f.ChartID, func() error {
        c, err := s.activeChart(ctx, ownerID, f.ChartID)
        if err != nil {
            return err
        }
        // reload under the hold so the move starts from the latest state
        cur, err := s.furniture.GetByIDAndOwner(ctx, furnitureID, ownerID)
        if err != nil {
            return err
        }
        existing, err := s.furniture.ListByChart(ctx, cur.ChartID, ownerID)
        if err != nil {
            return err
        }
        pos, err := geometry.FindPlacement(cur.Shape().At(to), model.Shapes(existing), geometry.Bounds{Width: c.Width, Height: c.Height})
        if err != nil {
            return err
        }
        cur.X, cur.Y = pos.X, pos.Y
        cur.UpdatedAt = s.stamp()
        if err := s.furniture.Update(ctx, cur); err != nil {
            return err
        }
        moved = cur
        return nil
    })
    if err != nil {
        return nil, err
    }
    return moved, nil
}

// UpdateFurniture changes the kind or label of an item.
func (s *ChartService) UpdateFurniture(ctx context.Context, ownerID, furnitureID string, patch FurniturePatch) (*model.FurnitureItem, error) {
    f, err := s.furniture.GetByIDAndOwner(ctx, furnitureID, ownerID)
    if err != nil {
        return nil, err
    }
    if _, err := s.activeChart(ctx, ownerID, f.ChartID); err != nil {
        return nil, err
    }
    if patch.Kind != nil {
        kind, ok := model.NormalizeKind(*patch.Kind)
        if !ok {
            return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, *patch.Kind)
        }
        f.Kind = kind
    }
    if patch.Label != nil {
        f.Label = strings.TrimSpace(*patch.Label)
    }
    f.UpdatedAt = s.stamp()
    if err := s.furniture.Update(ctx, f); err != nil {
        return nil, err
    }
    return f, nil
}

// DeleteFurniture unseats whoever sits on the item and then removes it.
func (s *ChartService) DeleteFurniture(ctx context.Context, ownerID, furnitureID string) error {
    f, err := s.furniture.GetByIDAndOwner(ctx, furnitureID, ownerID)
    if err != nil {
        return err
    }
    if err := s.unseatFurniture(ctx, f); err != nil {
        return err
    }
    if err := s.furniture.Delete(ctx, f); err != nil {
        return err
    }
    // a seat request that passed its checks before the delete is undone
    // here or by the request itself once it sees the item is gone
    return s.unseatFurniture(ctx, f)
}

func (s *ChartService) unseatFurniture(ctx context.Context, f *model.FurnitureItem) error {
    seated, err := registry.Collect(s.seats.ListByFurniture(ctx, f.OwnerID, f.ChartID, f.ID))
    if err != nil {
        return err
    }
    for _, a := range seated {
        if err := s.unassign(ctx, f.OwnerID, a.ID); err != nil {
            return err
        }
    }
    return nil
}
