package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seating-chart/internal/model"
	"github.com/iliyamo/seating-chart/internal/store"
	"github.com/iliyamo/seating-chart/internal/store/memory"
	"github.com/iliyamo/seating-chart/pkg/logger"
)

func TestChartRepo_OwnerScoping(t *testing.T) {
	ctx := context.Background()
	repo := NewChartRepo(memory.New())
	c := &model.Chart{ID: "c1", OwnerID: "u1", Name: "Hall", Width: 10, Height: 10, Status: model.ChartActive}
	require.NoError(t, repo.Create(ctx, c))

	got, err := repo.GetByIDAndOwner(ctx, "c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Hall", got.Name)

	_, err = repo.GetByIDAndOwner(ctx, "c1", "u2")
	assert.ErrorIs(t, err, ErrChartNotFound)

	assert.ErrorIs(t, repo.Create(ctx, c), ErrConflict)
}

func TestChartRepo_ListSkipsIndexPaths(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	charts := NewChartRepo(s)
	furniture := NewFurnitureRepo(s)

	for _, id := range []string{"c2", "c1"} {
		require.NoError(t, charts.Create(ctx, &model.Chart{ID: id, OwnerID: "u1", Width: 5, Height: 5}))
	}
	require.NoError(t, furniture.Create(ctx, &model.FurnitureItem{ID: "f1", ChartID: "c1", OwnerID: "u1", Width: 1, Height: 1}))

	list, err := charts.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c1", list[0].ID)
	assert.Equal(t, "c2", list[1].ID)
}

func TestFurnitureRepo_ListByChart(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	repo := NewFurnitureRepo(s)

	require.NoError(t, repo.Create(ctx, &model.FurnitureItem{ID: "f1", ChartID: "c1", OwnerID: "u1"}))
	require.NoError(t, repo.Create(ctx, &model.FurnitureItem{ID: "f2", ChartID: "c1", OwnerID: "u1"}))
	require.NoError(t, repo.Create(ctx, &model.FurnitureItem{ID: "f3", ChartID: "c10", OwnerID: "u1"}))
	// an index entry whose record never got written is not listed
	require.NoError(t, s.Put(ctx, chartFurnitureKey("u1", "c1", "ghost"), []byte("ghost")))

	items, err := repo.ListByChart(ctx, "c1", "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "f1", items[0].ID)
	assert.Equal(t, "f2", items[1].ID)

	require.NoError(t, repo.Delete(ctx, &items[0]))
	items, err = repo.ListByChart(ctx, "c1", "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	_, err = s.Get(ctx, chartFurnitureKey("u1", "c1", "f1"))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPersonRepo_ListPagesThroughLargeRosters(t *testing.T) {
	ctx := context.Background()
	repo := NewPersonRepo(memory.New())
	const n = pageSize + 5
	for i := 0; i < n; i++ {
		require.NoError(t, repo.Create(ctx, &model.Person{ID: fmt.Sprintf("p%04d", i), OwnerID: "u1"}))
	}
	list, err := repo.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, n)
	assert.Equal(t, "p0000", list[0].ID)
	assert.Equal(t, fmt.Sprintf("p%04d", n-1), list[n-1].ID)

	require.NoError(t, repo.Delete(ctx, "p0000", "u1"))
	_, err = repo.GetByIDAndOwner(ctx, "p0000", "u1")
	assert.ErrorIs(t, err, ErrPersonNotFound)
}

func TestLayoutHoldRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewLayoutHoldRepo(memory.New(), time.Minute)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	h, err := repo.TryAcquire(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Len(t, h.HoldToken, 32)

	_, err = repo.TryAcquire(ctx, "u1", "c1")
	assert.ErrorIs(t, err, ErrHoldTaken)

	// other charts are independent
	other, err := repo.TryAcquire(ctx, "u1", "c2")
	require.NoError(t, err)
	require.NoError(t, repo.Release(ctx, other))

	require.NoError(t, repo.Release(ctx, h))
	again, err := repo.TryAcquire(ctx, "u1", "c1")
	require.NoError(t, err)

	// an abandoned hold expires and can be taken over
	now = now.Add(2 * time.Minute)
	takeover, err := repo.TryAcquire(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.NotEqual(t, again.HoldToken, takeover.HoldToken)

	// releasing the expired hold does not remove the new one
	require.NoError(t, repo.Release(ctx, again))
	_, err = repo.TryAcquire(ctx, "u1", "c1")
	assert.ErrorIs(t, err, ErrHoldTaken)
}

// brokenWrites fails record inserts and, optionally, deletes under prefixes.
type brokenWrites struct {
	store.Store
	putPrefix, deletePrefix string
}

func (b brokenWrites) PutIfAbsent(ctx context.Context, k store.Key, v []byte) error {
	if strings.HasPrefix(k.Sort, b.putPrefix) {
		return errors.New("record write failed")
	}
	return b.Store.PutIfAbsent(ctx, k, v)
}

func (b brokenWrites) Delete(ctx context.Context, k store.Key) error {
	if b.deletePrefix != "" && strings.HasPrefix(k.Sort, b.deletePrefix) {
		return errors.New("index delete failed")
	}
	return b.Store.Delete(ctx, k)
}

func TestFurnitureRepo_CreateUndoesIndex(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf, zerolog.DebugLevel)
	t.Cleanup(func() { logger.Init("info") })

	ctx := context.Background()
	item := &model.FurnitureItem{ID: "f1", ChartID: "c1", OwnerID: "u1", Width: 1, Height: 1, Kind: model.KindChair}

	t.Run("index removed", func(t *testing.T) {
		mem := memory.New()
		repo := NewFurnitureRepo(brokenWrites{Store: mem, putPrefix: furniturePrefix})
		assert.EqualError(t, repo.Create(ctx, item), "record write failed")
		assert.Equal(t, 0, mem.Len())
	})

	t.Run("cleanup failure is logged", func(t *testing.T) {
		buf.Reset()
		mem := memory.New()
		repo := NewFurnitureRepo(brokenWrites{Store: mem, putPrefix: furniturePrefix, deletePrefix: chartFurniturePrefix})
		assert.EqualError(t, repo.Create(ctx, item), "record write failed")
		assert.Contains(t, buf.String(), "furniture: index cleanup failed")
		assert.Contains(t, buf.String(), "index delete failed")

		// the orphaned index entry is never listed
		items, err := NewFurnitureRepo(mem).ListByChart(ctx, "c1", "u1")
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}
