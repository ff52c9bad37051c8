package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iliyamo/seating-chart/internal/store"
)

// pageSize bounds each range query issued while walking an index.
const pageSize = 100

func getJSON(ctx context.Context, s store.Store, key store.Key, dst any, notFound error) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound
		}
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key.Sort, err)
	}
	return nil
}

func putJSON(ctx context.Context, s store.Store, key store.Key, v any, onlyNew bool) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key.Sort, err)
	}
	if !onlyNew {
		return s.Put(ctx, key, raw)
	}
	if err := s.PutIfAbsent(ctx, key, raw); err != nil {
		if errors.Is(err, store.ErrConditionFailed) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// scan walks every item matching q page by page and hands it to fn.
func scan(ctx context.Context, s store.Store, q store.Query, fn func(store.Item) error) error {
	q.Limit = pageSize
	for {
		page, err := s.Query(ctx, q)
		if err != nil {
			return err
		}
		for _, it := range page {
			if err := fn(it); err != nil {
				return err
			}
		}
		if len(page) < pageSize {
			return nil
		}
		q.After = page[len(page)-1].Key.Sort
	}
}
