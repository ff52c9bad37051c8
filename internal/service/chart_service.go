// Package service holds the chart aggregate: it owns a chart's furniture
// and seating, asks the geometry engine where furniture may go and asks the
// assignment registry who may sit where.
package service

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/iliyamo/seating-chart/internal/geometry"
    "github.com/iliyamo/seating-chart/internal/idgen"
    "github.com/iliyamo/seating-chart/internal/model"
    "github.com/iliyamo/seating-chart/internal/registry"
    "github.com/iliyamo/seating-chart/internal/repository"
    "github.com/iliyamo/seating-chart/internal/store"
    "github.com/iliyamo/seating-chart/pkg/logger"
)

var (
    // ErrForeignReference is returned when an operation names furniture or
    // a person that is not part of the chart or the owner's roster.
    ErrForeignReference = errors.New("foreign reference")
    // ErrChartArchived is returned when an archived chart is modified.
    ErrChartArchived = errors.New("chart archived")
    // ErrInvalidInput is returned for malformed names, sizes and kinds.
    ErrInvalidInput = errors.New("invalid input")

    ErrChartNotFound     = repository.ErrChartNotFound
    ErrFurnitureNotFound = repository.ErrFurnitureNotFound
    ErrPersonNotFound    = repository.ErrPersonNotFound
)

// ChartService is the entry point for every chart, furniture, roster and
// seating operation.  It keeps no state between calls.
type ChartService struct {
    charts    *repository.ChartRepo
    furniture *repository.FurnitureRepo
    people    *repository.PersonRepo
    holds     *repository.LayoutHoldRepo
    seats     *registry.Registry
    ids       idgen.Generator
    events    EventPublisher
    now       func() time.Time
}

// Option configures a ChartService.
type Option func(*ChartService)

// WithEvents sets the publisher for seating events.
func WithEvents(p EventPublisher) Option {
    return func(s *ChartService) {
        if p != nil {
            s.events = p
        }
    }
}

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
    return func(s *ChartService) { s.now = now }
}

// NewChartService wires the repositories over st.  Seating goes through
// seats, which must persist into the same store.
func NewChartService(st store.Store, seats *registry.Registry, ids idgen.Generator, opts ...Option) *ChartService {
    s := &ChartService{
        charts:    repository.NewChartRepo(st),
        furniture: repository.NewFurnitureRepo(st),
        people:    repository.NewPersonRepo(st),
        holds:     repository.NewLayoutHoldRepo(st, layoutHoldTTL),
        seats:     seats,
        ids:       ids,
        events:    NopPublisher{},
        now:       time.Now,
    }
    for _, o := range opts {
        o(s)
    }
    return s
}

func (s *ChartService) stamp() time.Time { return s.now().UTC() }

// CreateChart adds an empty, active chart of width x height cells.
func (s *ChartService) CreateChart(ctx context.Context, ownerID, name string, width, height int) (*model.Chart, error) {
    name = strings.TrimSpace(name)
    if name == "" {
        return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
    }
    if width <= 0 || height <= 0 {
        return nil, fmt.Errorf("%w: chart size %dx%d", geometry.ErrInvalidGeometry, width, height)
    }
    now := s.stamp()
    c := &model.Chart{
        ID:        s.ids.NewID(),
        OwnerID:   ownerID,
        Name:      name,
        Width:     width,
        Height:    height,
        Status:    model.ChartActive,
        CreatedAt: now,
        UpdatedAt: now,
    }
    if err := s.charts.Create(ctx, c); err != nil {
        return nil, err
    }
    return c, nil
}

func (s *ChartService) GetChart(ctx context.Context, ownerID, chartID string) (*model.Chart, error) {
    return s.charts.GetByIDAndOwner(ctx, chartID, ownerID)
}

func (s *ChartService) ListCharts(ctx context.Context, ownerID string) ([]*model.Chart, error) {
    return s.charts.ListByOwner(ctx, ownerID)
}

// activeChart loads a chart that still accepts changes.
func (s *ChartService) activeChart(ctx context.Context, ownerID, chartID string) (*model.Chart, error) {
    c, err := s.charts.GetByIDAndOwner(ctx, chartID, ownerID)
    if err != nil {
        return nil, err
    }
    if !c.IsActive() {
        return nil, ErrChartArchived
    }
    return c, nil
}

// RenameChart changes the display name.  Archived charts may be renamed.
func (s *ChartService) RenameChart(ctx context.Context, ownerID, chartID, name string) (*model.Chart, error) {
    name = strings.TrimSpace(name)
    if name == "" {
        return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
    }
    return s.updateChart(ctx, ownerID, chartID, func(c *model.Chart) bool {
        c.Name = name
        return true
    })
}

// updateChart applies change to the stored chart under the layout hold so
// it cannot interleave with a resize.  change reports whether anything
// needs to be written.
func (s *ChartService) updateChart(ctx context.Context, ownerID, chartID string, change func(*model.Chart) bool) (*model.Chart, error) {
    var out *model.Chart
    err := s.withLayout(ctx, ownerID, chartID, func() error {
        c, err := s.charts.GetByIDAndOwner(ctx, chartID, ownerID)
        if err != nil {
            return err
        }
        out = c
        if !change(c) {
            return nil
        }
        c.UpdatedAt = s.stamp()
        return s.charts.Update(ctx, c)
    })
    if err != nil {
        return nil, err
    }
    return out, nil
}

// ResizeChart changes the canvas.  Shrinking is refused when furniture
// would end up outside the new bounds.
func (s *ChartService) ResizeChart(ctx context.Context, ownerID, chartID string, width, height int) (*model.Chart, error) {
    if width <= 0 || height <= 0 {
        return nil, fmt.Errorf("%w: chart size %dx%d", geometry.ErrInvalidGeometry, width, height)
    }
    var resized *model.Chart
    err := s.withLayout(ctx, ownerID, chartID, func() error {
        c, err := s.activeChart(ctx, ownerID, chartID)
        if err != nil {
            return err
        }
        items, err := s.furniture.ListByChart(ctx, chartID, ownerID)
        if err != nil {
            return err
        }
        bounds := geometry.Bounds{Width: width, Height: height}
        for _, it := range items {
            box, err := geometry.BoundingBox(it.Shape())
            if err != nil {
                return err
            }
            if !geometry.Within(box, bounds) {
                return fmt.Errorf("%w: furniture %s would fall outside %dx%d", geometry.ErrInvalidGeometry, it.ID, width, height)
            }
        }
        c.Width, c.Height = width, height
        c.UpdatedAt = s.stamp()
        if err := s.charts.Update(ctx, c); err != nil {
            return err
        }
        resized = c
        return nil
    })
    if err != nil {
        return nil, err
    }
    return resized, nil
}

// ArchiveChart freezes the chart.  Furniture and seating stay readable.
func (s *ChartService) ArchiveChart(ctx context.Context, ownerID, chartID string) (*model.Chart, error) {
    return s.updateChart(ctx, ownerID, chartID, func(c *model.Chart) bool {
        if c.Status == model.ChartArchived {
            return false
        }
        c.Status = model.ChartArchived
        return true
    })
}

// DeleteChart removes the chart with all its seating and furniture.
func (s *ChartService) DeleteChart(ctx context.Context, ownerID, chartID string) error {
    return s.withLayout(ctx, ownerID, chartID, func() error {
        if _, err := s.charts.GetByIDAndOwner(ctx, chartID, ownerID); err != nil {
            return err
        }
        seated, err := s.unseatChart(ctx, ownerID, chartID)
        if err != nil {
            return err
        }
        items, err := s.furniture.ListByChart(ctx, chartID, ownerID)
        if err != nil {
            return err
        }
        for i := range items {
            if err := s.furniture.Delete(ctx, &items[i]); err != nil {
                return err
            }
        }
        // catch seat requests that raced with the furniture removal
        late, err := s.unseatChart(ctx, ownerID, chartID)
        if err != nil {
            return err
        }
        seated += late
        logger.Info().
            Str("owner", ownerID).
            Str("chart", chartID).
            Int("furniture", len(items)).
            Int("assignments", seated).
            Msg("chart deleted")
        return s.charts.Delete(ctx, chartID, ownerID)
    })
}

func (s *ChartService) unseatChart(ctx context.Context, ownerID, chartID string) (int, error) {
    seated, err := registry.Collect(s.seats.ListByChart(ctx, ownerID, chartID))
    if err != nil {
        return 0, err
    }
    for _, a := range seated {
        if err := s.unassign(ctx, ownerID, a.ID); err != nil {
            return 0, err
        }
    }
    return len(seated), nil
}
