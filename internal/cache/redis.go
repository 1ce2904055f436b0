package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisStore keeps each conversation as a Redis list of JSON-encoded
// records. The append-trim-expire step runs inside a MULTI/EXEC pipeline so
// interleaved appends from concurrent webhook deliveries cannot reorder
// records or trim against a stale length.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
	max int
}

// NewRedisStore creates a RedisStore over an existing client.
func NewRedisStore(rdb *redis.Client, ttl time.Duration, max int) (*RedisStore, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if max <= 0 {
		return nil, fmt.Errorf("message bound must be positive, got %d", max)
	}
	return &RedisStore{rdb: rdb, ttl: ttl, max: max}, nil
}

func (s *RedisStore) Has(ctx context.Context, key Key) (bool, error) {
	n, err := s.rdb.Exists(ctx, key.String()).Result()
	if err != nil {
		return false, fmt.Errorf("redis EXISTS %s: %w", key, err)
	}
	return n == 1, nil
}

func (s *RedisStore) Append(ctx context.Context, key Key, msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal cached message: %w", err)
	}

	k := key.String()
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, k, raw)
		pipe.LTrim(ctx, k, int64(-s.max), -1)
		pipe.Expire(ctx, k, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis append %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) SetAll(ctx context.Context, key Key, msgs []Message) error {
	k := key.String()

	// Full replacement, not a merge: drop whatever is there first.
	if err := s.rdb.Del(ctx, k).Err(); err != nil {
		return fmt.Errorf("redis DEL %s: %w", key, err)
	}
	if len(msgs) == 0 {
		return nil
	}

	if len(msgs) > s.max {
		msgs = msgs[len(msgs)-s.max:]
	}
	raws := make([]interface{}, 0, len(msgs))
	for _, msg := range msgs {
		raw, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal cached message: %w", err)
		}
		raws = append(raws, raw)
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, k, raws...)
		pipe.Expire(ctx, k, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) GetAll(ctx context.Context, key Key) ([]Message, error) {
	raws, err := s.rdb.LRange(ctx, key.String(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis LRANGE %s: %w", key, err)
	}

	msgs := make([]Message, 0, len(raws))
	for _, raw := range raws {
		var msg Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			// A corrupt record is dropped rather than poisoning the
			// whole context read.
			log.Warn().Err(err).Str("key", key.String()).Msg("Skipping undecodable cached message")
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (s *RedisStore) Delete(ctx context.Context, key Key) error {
	if err := s.rdb.Del(ctx, key.String()).Err(); err != nil {
		return fmt.Errorf("redis DEL %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) TTL(ctx context.Context, key Key) (time.Duration, error) {
	d, err := s.rdb.TTL(ctx, key.String()).Result()
	if err != nil {
		return 0, fmt.Errorf("redis TTL %s: %w", key, err)
	}
	return d, nil
}
