package idgen

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7_SortsByCreation(t *testing.T) {
	var g UUIDv7
	prev := g.NewID()
	for i := 0; i < 1000; i++ {
		next := g.NewID()
		require.Greater(t, next, prev)
		prev = next
	}
	id, err := uuid.Parse(prev)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestSequence(t *testing.T) {
	s := &Sequence{Prefix: "a-"}
	assert.Equal(t, "a-000001", s.NewID())
	assert.Equal(t, "a-000002", s.NewID())
}
