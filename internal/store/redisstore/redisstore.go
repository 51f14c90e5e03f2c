// Package redisstore keeps artifacts in Redis hashes and a lexically ordered
// key index, so prefix listing never needs SCAN.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"pitch-scorer/internal/store"

	"github.com/redis/go-redis/v9"
)

const (
	fieldData        = "data"
	fieldContentType = "content_type"
	indexKey         = "index"
)

type Store struct {
	client *redis.Client
	prefix string
}

// New uses client with every key namespaced under keyPrefix.
func New(client *redis.Client, keyPrefix string) *Store {
	return &Store{client: client, prefix: keyPrefix}
}

func (s *Store) blobKey(key string) string { return s.prefix + key }
func (s *Store) index() string           { return s.prefix + indexKey }

// putScript writes the hash and indexes it only when the hash is new.
var putScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], "` + fieldData + `", ARGV[1], "` + fieldContentType + `", ARGV[2])
redis.call("ZADD", KEYS[2], 0, ARGV[3])
return 1
`)

func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	written, err := putScript.Run(ctx, s.client, []string{s.blobKey(key), s.index()}, data, contentType, key).Int()
	if err != nil {
		return fmt.Errorf("redis put %s: %w", key, err)
	}
	if written == 0 {
		return fmt.Errorf("redis put %s: %w", key, store.ErrExists)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.HGet(ctx, s.blobKey(key), fieldData).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	lo := "-"
	hi := "+"
	if prefix != "" {
		lo = "[" + prefix
		hi = "[" + prefix + "\xff"
	}
	keys, err := s.client.ZRangeByLex(ctx, s.index(), &redis.ZRangeBy{Min: lo, Max: hi}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list %s: %w", prefix, err)
	}
	return store.ChildPrefixes(keys, prefix), nil
}
