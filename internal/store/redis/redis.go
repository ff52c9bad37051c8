// Package redis implements store.Store on Redis.  Each partition is a hash
// holding the values plus a sorted set of its sort keys (all scored 0) that
// serves lexicographic range queries.  Writes touching both structures run
// as Lua scripts so a conditional write is atomic on the server.  The
// partition name is wrapped in a hash tag so both keys land in the same
// cluster slot.
package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/seating-chart/internal/store"
)

var _ store.Store = (*Store)(nil)

var (
	putScript = redis.NewScript(`
		redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
		redis.call('ZADD', KEYS[2], 0, ARGV[1])
		return 1
	`)

	putIfAbsentScript = redis.NewScript(`
		if redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2]) == 1 then
			redis.call('ZADD', KEYS[2], 0, ARGV[1])
			return 1
		end
		return 0
	`)

	// returns 1 on success, 0 when the value differs and -1 when missing
	compareAndSwapScript = redis.NewScript(`
		local cur = redis.call('HGET', KEYS[1], ARGV[1])
		if not cur then return -1 end
		if cur ~= ARGV[2] then return 0 end
		redis.call('HSET', KEYS[1], ARGV[1], ARGV[3])
		return 1
	`)

	deleteScript = redis.NewScript(`
		redis.call('HDEL', KEYS[1], ARGV[1])
		redis.call('ZREM', KEYS[2], ARGV[1])
		return 1
	`)

	deleteIfScript = redis.NewScript(`
		local cur = redis.call('HGET', KEYS[1], ARGV[1])
		if not cur then return -1 end
		if cur ~= ARGV[2] then return 0 end
		redis.call('HDEL', KEYS[1], ARGV[1])
		redis.call('ZREM', KEYS[2], ARGV[1])
		return 1
	`)
)

// Store keeps items under keys namespaced by prefix.
type Store struct {
	rdb    redis.UniversalClient
	prefix string
}

// New returns a store writing keys under prefix (e.g. "seating").
func New(rdb redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "seating"
	}
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) hashKey(partition string) string { return s.prefix + ":{" + partition + "}" }
func (s *Store) indexKey(partition string) string { return s.hashKey(partition) + ":idx" }

func (s *Store) keys(k store.Key) []string {
	return []string{s.hashKey(k.Partition), s.indexKey(k.Partition)}
}

func (s *Store) Get(ctx context.Context, key store.Key) ([]byte, error) {
	v, err := s.rdb.HGet(ctx, s.hashKey(key.Partition), key.Sort).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

func (s *Store) Put(ctx context.Context, key store.Key, value []byte) error {
	return putScript.Run(ctx, s.rdb, s.keys(key), key.Sort, value).Err()
}

func (s *Store) PutIfAbsent(ctx context.Context, key store.Key, value []byte) error {
	n, err := putIfAbsentScript.Run(ctx, s.rdb, s.keys(key), key.Sort, value).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrConditionFailed
	}
	return nil
}

func (s *Store) CompareAndSwap(ctx context.Context, key store.Key, expected, value []byte) error {
	n, err := compareAndSwapScript.Run(ctx, s.rdb, s.keys(key), key.Sort, expected, value).Int()
	if err != nil {
		return err
	}
	return outcome(n)
}

func (s *Store) Delete(ctx context.Context, key store.Key) error {
	return deleteScript.Run(ctx, s.rdb, s.keys(key), key.Sort).Err()
}

func (s *Store) DeleteIf(ctx context.Context, key store.Key, expected []byte) error {
	n, err := deleteIfScript.Run(ctx, s.rdb, s.keys(key), key.Sort, expected).Int()
	if err != nil {
		return err
	}
	return outcome(n)
}

// Query walks the sorted set by lexicographic range and then loads the
// values with HMGET.  A key removed between the two calls is skipped.
func (s *Store) Query(ctx context.Context, q store.Query) ([]store.Item, error) {
	lo := "-"
	switch {
	case q.After != "" && q.After >= q.Prefix:
		lo = "(" + q.After
	case q.Prefix != "":
		lo = "[" + q.Prefix
	}
	hi := "+"
	if q.Prefix != "" {
		// UTF-8 text never contains 0xff, so this bounds every key with the prefix
		hi = "(" + q.Prefix + "\xff"
	}
	members, err := s.rdb.ZRangeByLex(ctx, s.indexKey(q.Partition), &redis.ZRangeBy{
		Min:   lo,
		Max:   hi,
		Count: int64(q.Limit),
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}
	vals, err := s.rdb.HMGet(ctx, s.hashKey(q.Partition), members...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]store.Item, 0, len(members))
	for i, m := range members {
		if !q.Match(m) {
			continue
		}
		v, ok := vals[i].(string)
		if !ok {
			continue
		}
		out = append(out, store.Item{
			Key:   store.Key{Partition: q.Partition, Sort: m},
			Value: []byte(v),
		})
	}
	return out, nil
}

func outcome(n int) error {
	switch n {
	case 1:
		return nil
	case -1:
		return store.ErrNotFound
	}
	return store.ErrConditionFailed
}
