// Package geometry holds the placement math for furniture on a chart.  All
// functions are pure: they take the chart's current furniture set as input
// and never touch storage, so concurrent callers need no synchronization.
//
// Coordinates are grid cells.  A chart of width W and height H accepts
// footprints inside [0, W) x [0, H).  Sizes given in distance units are
// converted to cells using CellUnit.
package geometry

import (
	"errors"
	"fmt"
)

// CellUnit is the distance covered by one grid cell.  An item declared with
// size 75 occupies 75/25 = 3 cells per side.
const CellUnit = 25

var (
	// ErrInvalidGeometry is returned for non-positive footprints, rotations
	// that are not a multiple of 90 degrees and items outside the chart.
	ErrInvalidGeometry = errors.New("invalid geometry")
	// ErrPlacementExhausted is returned when no free cell can hold the item.
	ErrPlacementExhausted = errors.New("placement exhausted")
)

// Rect is an axis aligned bounding box.  Right and Bottom are exclusive.
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Width returns the number of cells the rectangle spans horizontally.
func (r Rect) Width() int { return r.Right - r.Left }

// Height returns the number of cells the rectangle spans vertically.
func (r Rect) Height() int { return r.Bottom - r.Top }

// Position is the top-left cell of an item.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Bounds are the chart dimensions in cells.
type Bounds struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Item is the geometric view of a furniture item.  Width and Height are in
// cells and win over Size, which is in distance units.  Rotation is in
// degrees.
type Item struct {
	ID       string
	X        int
	Y        int
	Width    int
	Height   int
	Size     int
	Rotation int
}

// At returns a copy of the item moved to p.
func (it Item) At(p Position) Item {
	it.X, it.Y = p.X, p.Y
	return it
}

// Footprint returns the item's width and height in cells after applying
// the size shorthand and rotation.
func Footprint(it Item) (w, h int, err error) {
	w, h = it.Width, it.Height
	if w == 0 && h == 0 {
		if it.Size <= 0 {
			return 0, 0, fmt.Errorf("%w: size must be positive, got %d", ErrInvalidGeometry, it.Size)
		}
		cells := (it.Size + CellUnit - 1) / CellUnit
		w, h = cells, cells
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: footprint must be positive, got %dx%d", ErrInvalidGeometry, w, h)
	}
	switch ((it.Rotation % 360) + 360) % 360 {
	case 0, 180:
	case 90, 270:
		w, h = h, w
	default:
		return 0, 0, fmt.Errorf("%w: rotation %d is not a multiple of 90", ErrInvalidGeometry, it.Rotation)
	}
	return w, h, nil
}

// BoundingBox converts an item's position and footprint into a Rect.
func BoundingBox(it Item) (Rect, error) {
	w, h, err := Footprint(it)
	if err != nil {
		return Rect{}, err
	}
	if it.X < 0 || it.Y < 0 {
		return Rect{}, fmt.Errorf("%w: negative position (%d,%d)", ErrInvalidGeometry, it.X, it.Y)
	}
	return Rect{Left: it.X, Top: it.Y, Right: it.X + w, Bottom: it.Y + h}, nil
}

// Overlaps reports whether a and b share interior area.  Rectangles that
// only touch along an edge or a corner do not overlap.
func Overlaps(a, b Rect) bool {
	return !(a.Right <= b.Left || a.Left >= b.Right || a.Bottom <= b.Top || a.Top >= b.Bottom)
}

// Within reports whether r lies inside the chart bounds.
func Within(r Rect, b Bounds) bool {
	return r.Left >= 0 && r.Top >= 0 && r.Right <= b.Width && r.Bottom <= b.Height
}

// HasCollision reports whether candidate overlaps any item in others.
// Items sharing the candidate's ID are skipped so a moved item can be
// tested against its former peers.
func HasCollision(candidate Item, others []Item) (bool, error) {
	box, err := BoundingBox(candidate)
	if err != nil {
		return false, err
	}
	boxes, err := peerBoxes(candidate.ID, others)
	if err != nil {
		return false, err
	}
	return collides(box, boxes), nil
}

// FindPlacement resolves where candidate should go.  A candidate that fits
// without collision keeps its position.  Otherwise the chart is scanned in
// row-major order and the first free origin wins, so identical input always
// yields the identical position.
func FindPlacement(candidate Item, others []Item, bounds Bounds) (Position, error) {
	if bounds.Width <= 0 || bounds.Height <= 0 {
		return Position{}, fmt.Errorf("%w: chart bounds %dx%d", ErrInvalidGeometry, bounds.Width, bounds.Height)
	}
	box, err := BoundingBox(candidate)
	if err != nil {
		return Position{}, err
	}
	if !Within(box, bounds) {
		return Position{}, fmt.Errorf("%w: item at (%d,%d) size %dx%d outside chart %dx%d",
			ErrInvalidGeometry, box.Left, box.Top, box.Width(), box.Height(), bounds.Width, bounds.Height)
	}
	boxes, err := peerBoxes(candidate.ID, others)
	if err != nil {
		return Position{}, err
	}
	if !collides(box, boxes) {
		return Position{X: candidate.X, Y: candidate.Y}, nil
	}

	w, h := box.Width(), box.Height()
	for y := 0; y+h <= bounds.Height; y++ {
		for x := 0; x+w <= bounds.Width; x++ {
			probe := Rect{Left: x, Top: y, Right: x + w, Bottom: y + h}
			if !collides(probe, boxes) {
				return Position{X: x, Y: y}, nil
			}
		}
	}
	return Position{}, fmt.Errorf("%w: no free %dx%d area in %dx%d chart", ErrPlacementExhausted, w, h, bounds.Width, bounds.Height)
}

func peerBoxes(selfID string, others []Item) ([]Rect, error) {
	boxes := make([]Rect, 0, len(others))
	for _, o := range others {
		if selfID != "" && o.ID == selfID {
			continue
		}
		b, err := BoundingBox(o)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", o.ID, err)
		}
		boxes = append(boxes, b)
	}
	return boxes, nil
}

func collides(box Rect, boxes []Rect) bool {
	for _, b := range boxes {
		if Overlaps(box, b) {
			return true
		}
	}
	return false
}
