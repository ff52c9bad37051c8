package model

import (
    "strings"
    "time"

    "github.com/iliyamo/seating-chart/internal/geometry"
)

// Furniture kinds.
const (
    KindTable = "TABLE"
    KindChair = "CHAIR"
    KindDesk  = "DESK"
    KindOther = "OTHER"
)

// NormalizeKind upper-cases kind and maps an empty value to OTHER.  The
// second return value is false when the kind is not recognised.
func NormalizeKind(kind string) (string, bool) {
    k := strings.ToUpper(strings.TrimSpace(kind))
    switch k {
    case "":
        return KindOther, true
    case KindTable, KindChair, KindDesk, KindOther:
        return k, true
    }
    return "", false
}

// FurnitureItem is a piece of furniture placed on exactly one chart.  X and
// Y are the top-left cell.  Width and Height are in cells; Size is the
// square shorthand in distance units and is only used when both are zero.
//
// Fields:
//  ID        – item identifier.
//  ChartID   – owning chart.
//  OwnerID   – owner of the chart.
//  X, Y      – top-left grid coordinate.
//  Width     – footprint width in cells (optional when Size is set).
//  Height    – footprint height in cells (optional when Size is set).
//  Size      – square shorthand in distance units.
//  Kind      – TABLE, CHAIR, DESK or OTHER.
//  Rotation  – degrees, multiple of 90.
//  Label     – free text shown on the chart.
type FurnitureItem struct {
    ID        string    `json:"id"`
    ChartID   string    `json:"chart_id"`
    OwnerID   string    `json:"owner_id"`
    X         int       `json:"x"`
    Y         int       `json:"y"`
    Width     int       `json:"width,omitempty"`
    Height    int       `json:"height,omitempty"`
    Size      int       `json:"size,omitempty"`
    Kind      string    `json:"kind"`
    Rotation  int       `json:"rotation,omitempty"`
    Label     string    `json:"label,omitempty"`
    CreatedAt time.Time `json:"created_at"`
    UpdatedAt time.Time `json:"updated_at"`
}

// Shape returns the geometric view of the item used for collision checks.
func (f FurnitureItem) Shape() geometry.Item {
    return geometry.Item{
        ID:       f.ID,
        X:        f.X,
        Y:        f.Y,
        Width:    f.Width,
        Height:   f.Height,
        Size:     f.Size,
        Rotation: f.Rotation,
    }
}

// Shapes converts a furniture set for the geometry engine.
func Shapes(items []FurnitureItem) []geometry.Item {
    out := make([]geometry.Item, 0, len(items))
    for _, it := range items {
        out = append(out, it.Shape())
    }
    return out
}
