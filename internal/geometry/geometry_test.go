package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundingBox(t *testing.T) {
	tests := []struct {
		name string
		item Item
		want Rect
	}{
		{"size shorthand", Item{Size: 75}, Rect{0, 0, 3, 3}},
		{"size rounds up to a whole cell", Item{X: 2, Y: 1, Size: 30}, Rect{2, 1, 4, 3}},
		{"explicit width and height", Item{X: 1, Y: 2, Width: 4, Height: 2}, Rect{1, 2, 5, 4}},
		{"explicit dimensions win over size", Item{Width: 1, Height: 1, Size: 100}, Rect{0, 0, 1, 1}},
		{"quarter turn swaps footprint", Item{Width: 4, Height: 2, Rotation: 90}, Rect{0, 0, 2, 4}},
		{"half turn keeps footprint", Item{Width: 4, Height: 2, Rotation: 180}, Rect{0, 0, 4, 2}},
		{"negative rotation", Item{Width: 4, Height: 2, Rotation: -90}, Rect{0, 0, 2, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BoundingBox(tt.item)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBoundingBox_Invalid(t *testing.T) {
	tests := []struct {
		name string
		item Item
	}{
		{"zero size", Item{}},
		{"negative size", Item{Size: -25}},
		{"negative width", Item{Width: -1, Height: 2}},
		{"zero height with width", Item{Width: 2}},
		{"odd rotation", Item{Size: 25, Rotation: 45}},
		{"negative position", Item{X: -1, Size: 25}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BoundingBox(tt.item)
			assert.ErrorIs(t, err, ErrInvalidGeometry)
		})
	}
}

func TestOverlaps(t *testing.T) {
	base := Rect{Left: 0, Top: 0, Right: 3, Bottom: 3}
	tests := []struct {
		name  string
		other Rect
		want  bool
	}{
		{"identical", base, true},
		{"partial", Rect{2, 2, 5, 5}, true},
		{"contained", Rect{1, 1, 2, 2}, true},
		{"touching right edge", Rect{3, 0, 6, 3}, false},
		{"touching bottom edge", Rect{0, 3, 3, 6}, false},
		{"touching corner", Rect{3, 3, 4, 4}, false},
		{"far away", Rect{10, 10, 12, 12}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(base, tt.other))
			assert.Equal(t, tt.want, Overlaps(tt.other, base), "overlap must be symmetric")
		})
	}
}

func TestHasCollision_SkipsSelf(t *testing.T) {
	table := Item{ID: "t1", Size: 75}
	moved := table.At(Position{X: 1, Y: 1})

	hit, err := HasCollision(moved, []Item{table})
	require.NoError(t, err)
	assert.False(t, hit, "an item never collides with its own former position")

	other := Item{ID: "t2", X: 1, Y: 1, Size: 25}
	hit, err = HasCollision(moved, []Item{table, other})
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestFindPlacement_KeepsFreePosition(t *testing.T) {
	existing := []Item{{ID: "a", Size: 75}}
	candidate := Item{ID: "b", X: 5, Y: 5, Size: 50}

	pos, err := FindPlacement(candidate, existing, Bounds{Width: 100, Height: 100})
	require.NoError(t, err)
	assert.Equal(t, Position{X: 5, Y: 5}, pos)
}

func TestFindPlacement_ScansRowMajor(t *testing.T) {
	existing := []Item{{ID: "a", Size: 75}}
	candidate := Item{ID: "b", Size: 75}

	pos, err := FindPlacement(candidate, existing, Bounds{Width: 100, Height: 100})
	require.NoError(t, err)
	assert.Equal(t, Position{X: 3, Y: 0}, pos)

	box, err := BoundingBox(candidate.At(pos))
	require.NoError(t, err)
	assert.Equal(t, Rect{3, 0, 6, 3}, box)
}

func TestFindPlacement_WrapsToNextRow(t *testing.T) {
	// the first row is filled by two 3x3 tables in a 6 wide chart
	existing := []Item{
		{ID: "a", Width: 3, Height: 3},
		{ID: "b", X: 3, Width: 3, Height: 3},
	}
	candidate := Item{ID: "c", X: 1, Y: 1, Width: 2, Height: 1}

	pos, err := FindPlacement(candidate, existing, Bounds{Width: 6, Height: 6})
	require.NoError(t, err)
	assert.Equal(t, Position{X: 0, Y: 3}, pos)
}

func TestFindPlacement_Deterministic(t *testing.T) {
	existing := []Item{
		{ID: "a", X: 0, Y: 0, Width: 2, Height: 2},
		{ID: "b", X: 4, Y: 0, Width: 2, Height: 2},
		{ID: "c", X: 1, Y: 2, Width: 3, Height: 1},
	}
	candidate := Item{ID: "n", X: 0, Y: 0, Width: 2, Height: 2}
	bounds := Bounds{Width: 8, Height: 8}

	first, err := FindPlacement(candidate, existing, bounds)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := FindPlacement(candidate, existing, bounds)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, Position{X: 2, Y: 0}, first)
}

func TestFindPlacement_Idempotent(t *testing.T) {
	existing := []Item{{ID: "a", Size: 75}}
	candidate := Item{ID: "b", Size: 75}
	bounds := Bounds{Width: 10, Height: 10}

	pos, err := FindPlacement(candidate, existing, bounds)
	require.NoError(t, err)
	placed := candidate.At(pos)

	again, err := FindPlacement(placed, existing, bounds)
	require.NoError(t, err)
	assert.Equal(t, pos, again)
}

func TestFindPlacement_Exhausted(t *testing.T) {
	existing := []Item{
		{ID: "a", X: 0, Y: 0, Width: 2, Height: 2},
		{ID: "b", X: 2, Y: 0, Width: 2, Height: 2},
		{ID: "c", X: 0, Y: 2, Width: 2, Height: 2},
		{ID: "d", X: 2, Y: 2, Width: 2, Height: 2},
	}
	_, err := FindPlacement(Item{ID: "e", Width: 1, Height: 1}, existing, Bounds{Width: 4, Height: 4})
	assert.ErrorIs(t, err, ErrPlacementExhausted)
}

func TestFindPlacement_OutOfBounds(t *testing.T) {
	tests := []struct {
		name   string
		item   Item
		bounds Bounds
	}{
		{"past right edge", Item{X: 9, Width: 2, Height: 1}, Bounds{Width: 10, Height: 10}},
		{"past bottom edge", Item{Y: 10, Width: 1, Height: 1}, Bounds{Width: 10, Height: 10}},
		{"larger than chart", Item{Size: 300}, Bounds{Width: 10, Height: 10}},
		{"empty chart", Item{Size: 25}, Bounds{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FindPlacement(tt.item, nil, tt.bounds)
			assert.ErrorIs(t, err, ErrInvalidGeometry)
		})
	}
}

func TestFindPlacement_NoOverlapAfterRepeatedPlacement(t *testing.T) {
	bounds := Bounds{Width: 12, Height: 9}
	var placed []Item
	for i := 0; ; i++ {
		c := Item{ID: string(rune('a' + i)), Width: 3, Height: 3}
		pos, err := FindPlacement(c, placed, bounds)
		if err != nil {
			assert.ErrorIs(t, err, ErrPlacementExhausted)
			break
		}
		placed = append(placed, c.At(pos))
	}
	require.Len(t, placed, 12)

	for i := range placed {
		for j := i + 1; j < len(placed); j++ {
			a, _ := BoundingBox(placed[i])
			b, _ := BoundingBox(placed[j])
			assert.False(t, Overlaps(a, b), "%v overlaps %v", a, b)
		}
	}
}
