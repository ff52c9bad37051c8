package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seating-chart/internal/store"
	"github.com/iliyamo/seating-chart/internal/store/storetest"
)

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}

func TestStore_ValuesAreCopied(t *testing.T) {
	s := New()
	ctx := context.Background()
	k := store.Key{Partition: "p", Sort: "k"}

	v := []byte("abc")
	require.NoError(t, s.Put(ctx, k, v))
	v[0] = 'z'

	got, err := s.Get(ctx, k)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	got[1] = 'z'
	again, err := s.Get(ctx, k)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestStore_EmptyPartitionsAreDropped(t *testing.T) {
	s := New()
	ctx := context.Background()
	k := store.Key{Partition: "p", Sort: "k"}
	require.NoError(t, s.Put(ctx, k, []byte("x")))
	require.NoError(t, s.Delete(ctx, k))
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.partitions)
}

func TestStore_CancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Put(ctx, store.Key{Partition: "p", Sort: "k"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
