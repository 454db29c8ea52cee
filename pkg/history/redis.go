package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/diagramsync/pkg/errors"
)

// RedisStore keeps each entry as a JSON string and indexes IDs in a sorted
// set scored by timestamp.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisStoreWithClient(client), nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "diagramsync:history:"}
}

func (s *RedisStore) key(id string) string { return s.prefix + id }
func (s *RedisStore) index() string        { return s.prefix + "index" }

func (s *RedisStore) Save(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(errors.ErrCodeHistory, err, "marshal history entry")
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.key(e.ID), data, 0)
		p.ZAdd(ctx, s.index(), redis.Z{Score: float64(e.Timestamp.UnixNano()), Member: e.ID})
		return nil
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeHistory, err, "save history entry")
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Entry, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeHistory, err, "lookup history entry")
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errors.Wrap(errors.ErrCodeHistory, err, "parse history entry %s", id)
	}
	return &e, nil
}

// List walks the index newest first. IDs whose entry has gone missing are
// skipped.
func (s *RedisStore) List(ctx context.Context, limit int) ([]Entry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.client.ZRevRange(ctx, s.index(), 0, stop).Result()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeHistory, err, "list history")
	}
	if len(ids) == 0 {
		return []Entry{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeHistory, err, "load history")
	}

	out := make([]Entry, 0, len(vals))
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(str), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return errors.Wrap(errors.ErrCodeHistory, err, "delete history entry")
	}
	if err := s.client.ZRem(ctx, s.index(), id).Err(); err != nil {
		return errors.Wrap(errors.ErrCodeHistory, err, "unindex history entry")
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

var _ Store = (*RedisStore)(nil)
