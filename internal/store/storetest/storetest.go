// Package storetest holds the behaviour every store.Store adapter must show.
// Adapter packages call Run from their own tests.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seating-chart/internal/store"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) store.Store

// Run executes the conformance suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStore(t)) })
	t.Run("PutOverwrites", func(t *testing.T) { testPutOverwrites(t, newStore(t)) })
	t.Run("PutIfAbsent", func(t *testing.T) { testPutIfAbsent(t, newStore(t)) })
	t.Run("CompareAndSwap", func(t *testing.T) { testCompareAndSwap(t, newStore(t)) })
	t.Run("DeleteIf", func(t *testing.T) { testDeleteIf(t, newStore(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStore(t)) })
	t.Run("QueryPrefixOrder", func(t *testing.T) { testQueryPrefixOrder(t, newStore(t)) })
	t.Run("QueryCursor", func(t *testing.T) { testQueryCursor(t, newStore(t)) })
	t.Run("PartitionsIsolated", func(t *testing.T) { testPartitionsIsolated(t, newStore(t)) })
	t.Run("ConcurrentPutIfAbsent", func(t *testing.T) { testConcurrentPutIfAbsent(t, newStore(t)) })
}

func key(sort string) store.Key { return store.Key{Partition: "owner#1", Sort: sort} }

func testGetMissing(t *testing.T, s store.Store) {
	_, err := s.Get(context.Background(), key("nope"))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testPutOverwrites(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, key("a"), []byte("1")))
	require.NoError(t, s.Put(ctx, key("a"), []byte("2")))
	v, err := s.Get(ctx, key("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)
}

func testPutIfAbsent(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.PutIfAbsent(ctx, key("a"), []byte("first")))
	err := s.PutIfAbsent(ctx, key("a"), []byte("second"))
	assert.ErrorIs(t, err, store.ErrConditionFailed)

	v, err := s.Get(ctx, key("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), v)
}

func testCompareAndSwap(t *testing.T, s store.Store) {
	ctx := context.Background()
	err := s.CompareAndSwap(ctx, key("a"), []byte("x"), []byte("y"))
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Put(ctx, key("a"), []byte("x")))
	err = s.CompareAndSwap(ctx, key("a"), []byte("other"), []byte("y"))
	assert.ErrorIs(t, err, store.ErrConditionFailed)

	require.NoError(t, s.CompareAndSwap(ctx, key("a"), []byte("x"), []byte("y")))
	v, err := s.Get(ctx, key("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("y"), v)
}

func testDeleteIf(t *testing.T, s store.Store) {
	ctx := context.Background()
	err := s.DeleteIf(ctx, key("a"), []byte("x"))
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Put(ctx, key("a"), []byte("x")))
	err = s.DeleteIf(ctx, key("a"), []byte("y"))
	assert.ErrorIs(t, err, store.ErrConditionFailed)

	require.NoError(t, s.DeleteIf(ctx, key("a"), []byte("x")))
	_, err = s.Get(ctx, key("a"))
	assert.ErrorIs(t, err, store.ErrNotFound)

	items, err := s.Query(ctx, store.Query{Partition: "owner#1", Prefix: "a"})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func testDelete(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Delete(ctx, key("missing")))
	require.NoError(t, s.Put(ctx, key("a"), []byte("x")))
	require.NoError(t, s.Delete(ctx, key("a")))
	_, err := s.Get(ctx, key("a"))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testQueryPrefixOrder(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, k := range []string{"chart#1#seat#03", "chart#1#seat#01", "chart#2#seat#01", "chart#1#slot#09", "chart#1#seat#02"} {
		require.NoError(t, s.Put(ctx, key(k), []byte(k)))
	}
	items, err := s.Query(ctx, store.Query{Partition: "owner#1", Prefix: "chart#1#seat#"})
	require.NoError(t, err)
	assert.Equal(t, []string{"chart#1#seat#01", "chart#1#seat#02", "chart#1#seat#03"}, sortKeys(items))
	assert.Equal(t, []byte("chart#1#seat#01"), items[0].Value)
}

func testQueryCursor(t *testing.T, s store.Store) {
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		require.NoError(t, s.Put(ctx, key(fmt.Sprintf("p#%02d", i)), []byte{byte(i)}))
	}
	q := store.Query{Partition: "owner#1", Prefix: "p#", Limit: 2}
	var seen []string
	for {
		page, err := s.Query(ctx, q)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		assert.LessOrEqual(t, len(page), 2)
		seen = append(seen, sortKeys(page)...)
		q.After = page[len(page)-1].Key.Sort
	}
	assert.Equal(t, []string{"p#01", "p#02", "p#03", "p#04", "p#05"}, seen)
}

func testPartitionsIsolated(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, store.Key{Partition: "owner#1", Sort: "x"}, []byte("1")))
	require.NoError(t, s.Put(ctx, store.Key{Partition: "owner#2", Sort: "x"}, []byte("2")))

	items, err := s.Query(ctx, store.Query{Partition: "owner#2", Prefix: "x"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, []byte("2"), items[0].Value)

	_, err = s.Get(ctx, store.Key{Partition: "owner#3", Sort: "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testConcurrentPutIfAbsent(t *testing.T, s store.Store) {
	ctx := context.Background()
	const writers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.PutIfAbsent(ctx, key("claim"), []byte{byte(i)})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, store.ErrConditionFailed)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func sortKeys(items []store.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Key.Sort)
	}
	return out
}
