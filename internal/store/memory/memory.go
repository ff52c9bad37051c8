// Package memory provides an in-memory implementation of store.Store used by
// tests and single process deployments.
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/iliyamo/seating-chart/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps one sorted key list per partition so range queries do not
// scan unrelated partitions.
type Store struct {
	mu         sync.RWMutex
	partitions map[string]*partition
}

type partition struct {
	keys   []string // sorted
	values map[string][]byte
}

// New returns an empty store.
func New() *Store {
	return &Store{partitions: make(map[string]*partition)}
}

func (s *Store) Get(ctx context.Context, key store.Key) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.partitions[key.Partition]
	if !ok {
		return nil, store.ErrNotFound
	}
	v, ok := p.values[key.Sort]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(v), nil
}

func (s *Store) Put(ctx context.Context, key store.Key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(key, value)
	return nil
}

func (s *Store) PutIfAbsent(ctx context.Context, key store.Key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lookup(key); ok {
		return store.ErrConditionFailed
	}
	s.set(key, value)
	return nil
}

func (s *Store) CompareAndSwap(ctx context.Context, key store.Key, expected, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.lookup(key)
	if !ok {
		return store.ErrNotFound
	}
	if !bytes.Equal(cur, expected) {
		return store.ErrConditionFailed
	}
	s.set(key, value)
	return nil
}

func (s *Store) Delete(ctx context.Context, key store.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(key)
	return nil
}

func (s *Store) DeleteIf(ctx context.Context, key store.Key, expected []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.lookup(key)
	if !ok {
		return store.ErrNotFound
	}
	if !bytes.Equal(cur, expected) {
		return store.ErrConditionFailed
	}
	s.remove(key)
	return nil
}

func (s *Store) Query(ctx context.Context, q store.Query) ([]store.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.partitions[q.Partition]
	if !ok {
		return nil, nil
	}
	start := q.Prefix
	if q.After > start {
		start = q.After
	}
	var out []store.Item
	for i := sort.SearchStrings(p.keys, start); i < len(p.keys); i++ {
		k := p.keys[i]
		if k <= q.After {
			continue
		}
		if !q.Match(k) {
			break
		}
		out = append(out, store.Item{
			Key:   store.Key{Partition: q.Partition, Sort: k},
			Value: clone(p.values[k]),
		})
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// Len returns the number of stored items across all partitions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, p := range s.partitions {
		n += len(p.keys)
	}
	return n
}

func (s *Store) lookup(key store.Key) ([]byte, bool) {
	p, ok := s.partitions[key.Partition]
	if !ok {
		return nil, false
	}
	v, ok := p.values[key.Sort]
	return v, ok
}

func (s *Store) set(key store.Key, value []byte) {
	p, ok := s.partitions[key.Partition]
	if !ok {
		p = &partition{values: make(map[string][]byte)}
		s.partitions[key.Partition] = p
	}
	if _, exists := p.values[key.Sort]; !exists {
		i := sort.SearchStrings(p.keys, key.Sort)
		p.keys = append(p.keys, "")
		copy(p.keys[i+1:], p.keys[i:])
		p.keys[i] = key.Sort
	}
	p.values[key.Sort] = clone(value)
}

func (s *Store) remove(key store.Key) {
	p, ok := s.partitions[key.Partition]
	if !ok {
		return
	}
	if _, exists := p.values[key.Sort]; !exists {
		return
	}
	delete(p.values, key.Sort)
	i := sort.SearchStrings(p.keys, key.Sort)
	p.keys = append(p.keys[:i], p.keys[i+1:]...)
	if len(p.keys) == 0 {
		delete(s.partitions, key.Partition)
	}
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
