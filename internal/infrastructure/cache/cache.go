package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Store is a TTL key/value cache shared by adapters (catalog and availability
// responses, last-sync stamps) and the token repository.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// GetJSON decodes a cached value into v. A miss or undecodable entry reports false.
func GetJSON(ctx context.Context, s Store, key string, v any) bool {
	if s == nil {
		return false
	}
	b, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false
	}
	return json.Unmarshal(b, v) == nil
}

func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	if s == nil || ttl <= 0 {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, b, ttl)
}
