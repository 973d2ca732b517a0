package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"forensics/pkg/platform/sentinel"
)

// RedisBackend stores each entry as a JSON {data, writtenAt} string value
// without a Redis expiry; staleness is decided by Store.
type RedisBackend struct {
	client redis.Cmdable
	prefix string
}

// NewRedisBackend creates a backend. prefix namespaces keys, e.g. "forensics:".
func NewRedisBackend(client redis.Cmdable, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) Read(ctx context.Context, key string) (Entry, error) {
	raw, err := b.client.Get(ctx, b.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, sentinel.ErrNotFound
		}
		return Entry{}, fmt.Errorf("redis get %s: %w", key, err)
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Entry{}, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	entry.Key = key
	return entry, nil
}

func (b *RedisBackend) Write(ctx context.Context, entry Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", entry.Key, err)
	}
	if err := b.client.Set(ctx, b.prefix+entry.Key, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", entry.Key, err)
	}
	return nil
}
