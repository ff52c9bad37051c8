package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seating-chart/internal/idgen"
	"github.com/iliyamo/seating-chart/internal/model"
	"github.com/iliyamo/seating-chart/internal/store"
	"github.com/iliyamo/seating-chart/internal/store/memory"
)

const owner = "u1"

// faultyStore fails selected operations on sort keys with a given prefix
// and can run a function once before one of them.
type faultyStore struct {
	store.Store

	mu    sync.Mutex
	rules map[string]error
	hooks map[string]func()
}

func newFaultyStore(s store.Store) *faultyStore {
	return &faultyStore{Store: s, rules: make(map[string]error), hooks: make(map[string]func())}
}

// onceBefore runs fn the first time op touches a key with prefix.
func (f *faultyStore) onceBefore(op, prefix string, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[op+" "+prefix] = fn
}

func (f *faultyStore) failOn(op, prefix string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[op+" "+prefix] = err
}

func (f *faultyStore) check(op string, k store.Key) error {
	f.mu.Lock()
	var hook func()
	for rule, fn := range f.hooks {
		o, prefix, _ := strings.Cut(rule, " ")
		if o == op && strings.HasPrefix(k.Sort, prefix) {
			hook = fn
			delete(f.hooks, rule)
			break
		}
	}
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for rule, err := range f.rules {
		o, prefix, _ := strings.Cut(rule, " ")
		if o == op && strings.HasPrefix(k.Sort, prefix) {
			return err
		}
	}
	return nil
}

func (f *faultyStore) PutIfAbsent(ctx context.Context, k store.Key, v []byte) error {
	if err := f.check("put", k); err != nil {
		return err
	}
	return f.Store.PutIfAbsent(ctx, k, v)
}

func (f *faultyStore) CompareAndSwap(ctx context.Context, k store.Key, expected, v []byte) error {
	if err := f.check("cas", k); err != nil {
		return err
	}
	return f.Store.CompareAndSwap(ctx, k, expected, v)
}

func (f *faultyStore) DeleteIf(ctx context.Context, k store.Key, expected []byte) error {
	if err := f.check("delete", k); err != nil {
		return err
	}
	return f.Store.DeleteIf(ctx, k, expected)
}

func newRegistry(s store.Store, opts ...Option) *Registry {
	return New(s, &idgen.Sequence{Prefix: "a"}, opts...)
}

func listChart(t *testing.T, r *Registry, chartID string) []model.Assignment {
	t.Helper()
	out, err := Collect(r.ListByChart(context.Background(), owner, chartID))
	require.NoError(t, err)
	return out
}

func TestAssign_UniquenessPerSlotAndPerson(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(memory.New())

	a, err := r.Assign(ctx, owner, "chart1", "chairA", "personX")
	require.NoError(t, err)
	assert.Equal(t, "chairA", a.FurnitureID)

	_, err = r.Assign(ctx, owner, "chart1", "chairA", "personY")
	assert.ErrorIs(t, err, ErrSlotOccupied)

	_, err = r.Assign(ctx, owner, "chart1", "chairB", "personX")
	assert.ErrorIs(t, err, ErrPersonAlreadySeated)

	// the same person may sit in another chart
	_, err = r.Assign(ctx, owner, "chart2", "chairA", "personX")
	assert.NoError(t, err)

	got := listChart(t, r, "chart1")
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)
}

func TestAssign_SameSeatIsIdempotent(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(memory.New())

	first, err := r.Assign(ctx, owner, "chart1", "chairA", "personX")
	require.NoError(t, err)
	again, err := r.Assign(ctx, owner, "chart1", "chairA", "personX")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Len(t, listChart(t, r, "chart1"), 1)
}

func TestUnassign(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	r := newRegistry(s)

	a, err := r.Assign(ctx, owner, "chart1", "chairA", "personX")
	require.NoError(t, err)

	removed, err := r.Unassign(ctx, owner, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, removed.ID)
	assert.Equal(t, 0, s.Len(), "all index entries are removed")

	_, err = r.Unassign(ctx, owner, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, listChart(t, r, "chart1"))

	_, err = r.Get(ctx, owner, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// both the slot and the person are free again
	_, err = r.Assign(ctx, owner, "chart1", "chairA", "personY")
	assert.NoError(t, err)
	_, err = r.Assign(ctx, owner, "chart1", "chairB", "personX")
	assert.NoError(t, err)
}

func TestAssign_ConcurrentWritersOnOneSlot(t *testing.T) {
	ctx := context.Background()
	r := New(memory.New(), idgen.UUIDv7{})

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.Assign(ctx, owner, "chart1", "chairA", fmt.Sprintf("person%d", i))
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrSlotOccupied)
	}
	assert.Equal(t, 1, wins)
	assert.Len(t, listChart(t, r, "chart1"), 1)
}

func TestAssign_ConcurrentWritersForOnePerson(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	r := New(s, idgen.UUIDv7{})

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.Assign(ctx, owner, "chart1", fmt.Sprintf("chair%d", i), "personX")
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrPersonAlreadySeated)
	}
	assert.Equal(t, 1, wins)
	// losers gave their slot claims back: slot, person, chart entry, record
	assert.Equal(t, 4, s.Len())
}

func TestAssign_RollsBackWhenRecordWriteFails(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	fs := newFaultyStore(mem)
	boom := errors.New("boom")
	fs.failOn("put", assignmentPrefix, boom)
	r := newRegistry(fs)

	_, err := r.Assign(ctx, owner, "chart1", "chairA", "personX")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrIndexInconsistent)
	assert.Equal(t, 0, mem.Len())
}

func TestAssign_FailedRollbackIsReported(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	fs := newFaultyStore(mem)
	fs.failOn("put", seatingPrefix, errors.New("index write failed"))
	fs.failOn("delete", slotPrefix, errors.New("delete failed"))
	r := newRegistry(fs)

	_, err := r.Assign(ctx, owner, "chart1", "chairA", "personX")
	require.ErrorIs(t, err, ErrIndexInconsistent)

	// the orphaned slot claim is never reported as a seat
	seated, err := Collect(r.ListByFurniture(ctx, owner, "chart1", "chairA"))
	require.NoError(t, err)
	assert.Empty(t, seated)
	assert.Empty(t, listChart(t, r, "chart1"))
}

func TestAssign_StaleClaims(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	putClaim := func(t *testing.T, s store.Store, at time.Time) {
		t.Helper()
		raw, err := json.Marshal(claim{AssignmentID: "ghost", ClaimedAt: at})
		require.NoError(t, err)
		require.NoError(t, s.Put(ctx, slotKey(owner, "chart1", "chairA"), raw))
	}

	t.Run("old claim without record is repaired", func(t *testing.T) {
		s := memory.New()
		putClaim(t, s, now.Add(-time.Minute))
		r := newRegistry(s, WithClock(func() time.Time { return now }), WithGrace(30*time.Second))

		a, err := r.Assign(ctx, owner, "chart1", "chairA", "personX")
		require.NoError(t, err)
		assert.Equal(t, "chairA", a.FurnitureID)
	})

	t.Run("fresh claim is treated as a writer in flight", func(t *testing.T) {
		s := memory.New()
		putClaim(t, s, now.Add(-time.Second))
		r := newRegistry(s, WithClock(func() time.Time { return now }), WithGrace(30*time.Second))

		_, err := r.Assign(ctx, owner, "chart1", "chairA", "personX")
		assert.ErrorIs(t, err, ErrSlotOccupied)
	})
}

func TestAssign_StalledWriterLosesTakenOverClaim(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	fs := newFaultyStore(memory.New())
	r := newRegistry(fs, WithClock(func() time.Time { return now }), WithGrace(30*time.Second))

	// the first writer stalls after claiming; a minute later another
	// writer finds its claims stale and takes the slot
	var taken model.Assignment
	var takeErr error
	fs.onceBefore("put", seatingPrefix, func() {
		now = now.Add(time.Minute)
		taken, takeErr = r.Assign(ctx, owner, "chart1", "chairA", "personY")
	})

	_, err := r.Assign(ctx, owner, "chart1", "chairA", "personX")
	assert.ErrorIs(t, err, ErrSlotOccupied)
	require.NoError(t, takeErr)

	got := listChart(t, r, "chart1")
	require.Len(t, got, 1)
	assert.Equal(t, taken.ID, got[0].ID)
	seated, err := Collect(r.ListByFurniture(ctx, owner, "chart1", "chairA"))
	require.NoError(t, err)
	require.Len(t, seated, 1)
	assert.Equal(t, "personY", seated[0].PersonID)

	// the loser gave its person claim back
	_, err = r.Assign(ctx, owner, "chart1", "chairB", "personX")
	assert.NoError(t, err)
}

func TestReassign_StalledWriterLosesTarget(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	fs := newFaultyStore(memory.New())
	r := newRegistry(fs, WithClock(func() time.Time { return now }), WithGrace(30*time.Second))

	a, err := r.Assign(ctx, owner, "chart1", "chairA", "personX")
	require.NoError(t, err)

	var taken model.Assignment
	var takeErr error
	fs.onceBefore("cas", assignmentPrefix, func() {
		now = now.Add(time.Minute)
		taken, takeErr = r.Assign(ctx, owner, "chart1", "chairB", "personY")
	})

	_, err = r.Reassign(ctx, owner, a.ID, "chairB")
	assert.ErrorIs(t, err, ErrSlotOccupied)
	require.NoError(t, takeErr)

	back, err := r.Get(ctx, owner, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "chairA", back.FurnitureID)

	onB, err := Collect(r.ListByFurniture(ctx, owner, "chart1", "chairB"))
	require.NoError(t, err)
	require.Len(t, onB, 1)
	assert.Equal(t, taken.ID, onB[0].ID)
	onA, err := Collect(r.ListByFurniture(ctx, owner, "chart1", "chairA"))
	require.NoError(t, err)
	require.Len(t, onA, 1)
	assert.Equal(t, a.ID, onA[0].ID)
	assert.Len(t, listChart(t, r, "chart1"), 2)
}

func TestReassign(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(memory.New())

	a, err := r.Assign(ctx, owner, "chart1", "chairA", "personX")
	require.NoError(t, err)
	_, err = r.Assign(ctx, owner, "chart1", "chairC", "personY")
	require.NoError(t, err)

	moved, err := r.Reassign(ctx, owner, a.ID, "chairB")
	require.NoError(t, err)
	assert.Equal(t, a.ID, moved.ID)
	assert.Equal(t, "chairB", moved.FurnitureID)

	onA, err := Collect(r.ListByFurniture(ctx, owner, "chart1", "chairA"))
	require.NoError(t, err)
	assert.Empty(t, onA)

	seat, err := Collect(r.ListByPerson(ctx, owner, "chart1", "personX"))
	require.NoError(t, err)
	require.Len(t, seat, 1)
	assert.Equal(t, "chairB", seat[0].FurnitureID)

	_, err = r.Reassign(ctx, owner, a.ID, "chairC")
	assert.ErrorIs(t, err, ErrSlotOccupied)

	same, err := r.Reassign(ctx, owner, a.ID, "chairB")
	require.NoError(t, err)
	assert.True(t, moved.UpdatedAt.Equal(same.UpdatedAt))

	_, err = r.Reassign(ctx, owner, "missing", "chairA")
	assert.ErrorIs(t, err, ErrNotFound)

	// the released slot can be taken by someone else
	_, err = r.Assign(ctx, owner, "chart1", "chairA", "personZ")
	assert.NoError(t, err)
	assert.Len(t, listChart(t, r, "chart1"), 3)
}

func TestReassign_RecordSwapFailureReleasesTarget(t *testing.T) {
	ctx := context.Background()
	fs := newFaultyStore(memory.New())
	r := newRegistry(fs)

	a, err := r.Assign(ctx, owner, "chart1", "chairA", "personX")
	require.NoError(t, err)

	boom := errors.New("boom")
	fs.failOn("cas", assignmentPrefix, boom)
	_, err = r.Reassign(ctx, owner, a.ID, "chairB")
	assert.ErrorIs(t, err, boom)

	got, err := r.Get(ctx, owner, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "chairA", got.FurnitureID)
	_, err = fs.Get(ctx, slotKey(owner, "chart1", "chairB"))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListByChart_OrderPagingAndRestart(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(memory.New())

	const n = pageSize + 3
	for i := 0; i < n; i++ {
		_, err := r.Assign(ctx, owner, "chart1", fmt.Sprintf("chair%03d", i), fmt.Sprintf("person%03d", i))
		require.NoError(t, err)
	}

	seq := r.ListByChart(ctx, owner, "chart1")
	first, err := Collect(seq)
	require.NoError(t, err)
	require.Len(t, first, n)
	for i, a := range first {
		assert.Equal(t, fmt.Sprintf("chair%03d", i), a.FurnitureID)
	}

	// a second range over the same sequence starts again from the top
	taken := 0
	for a, err := range seq {
		require.NoError(t, err)
		assert.Equal(t, first[taken].ID, a.ID)
		taken++
		if taken == 2 {
			break
		}
	}
	assert.Equal(t, 2, taken)
}

func TestListByChart_SkipsUncommittedEntries(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	r := newRegistry(s)

	require.NoError(t, s.Put(ctx, seatingKey(owner, "chart1", "a000000"), []byte("a000000")))
	a, err := r.Assign(ctx, owner, "chart1", "chairA", "personX")
	require.NoError(t, err)

	got := listChart(t, r, "chart1")
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)

	empty, err := Collect(r.ListByPerson(ctx, owner, "chart1", "nobody"))
	require.NoError(t, err)
	assert.Empty(t, empty)
}
