package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "lms:session:"

// RedisStorage keeps the session fields in a redis hash. Only the
// random session id travels in the cookie.
type RedisStorage struct {
	rdb redis.Cmdable
	sid string
	ttl time.Duration

	// bind writes sid into the browser's cookie; "" removes it.
	bind func(sid string) error
}

func NewRedisStorage(rdb redis.Cmdable, sid string, ttl time.Duration, bind func(sid string) error) *RedisStorage {
	return &RedisStorage{rdb: rdb, sid: sid, ttl: ttl, bind: bind}
}

// SessionID is the id the fields are currently stored under.
func (s *RedisStorage) SessionID() string { return s.sid }

func (s *RedisStorage) key(sid string) string { return redisKeyPrefix + sid }

func (s *RedisStorage) Load(ctx context.Context) (map[string]string, error) {
	if s.sid == "" {
		return map[string]string{}, nil
	}
	values, err := s.rdb.HGetAll(ctx, s.key(s.sid)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", s.key(s.sid), err)
	}
	return values, nil
}

// Save stores the fields under a freshly minted id and drops the old
// hash, so an id known before login never names a signed-in session.
func (s *RedisStorage) Save(ctx context.Context, values map[string]string) error {
	fresh := uuid.NewString()

	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, k, v)
	}

	pipe := s.rdb.TxPipeline()
	if s.sid != "" {
		pipe.Del(ctx, s.key(s.sid))
	}
	pipe.HSet(ctx, s.key(fresh), pairs)
	pipe.Expire(ctx, s.key(fresh), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save %s: %w", s.key(fresh), err)
	}

	s.sid = fresh
	if s.bind != nil {
		if err := s.bind(fresh); err != nil {
			return fmt.Errorf("persist session id: %w", err)
		}
	}
	return nil
}

func (s *RedisStorage) Clear(ctx context.Context) error {
	if s.sid != "" {
		if err := s.rdb.Del(ctx, s.key(s.sid)).Err(); err != nil {
			return fmt.Errorf("redis del %s: %w", s.key(s.sid), err)
		}
	}

	s.sid = ""
	if s.bind != nil {
		if err := s.bind(""); err != nil {
			return fmt.Errorf("forget session id: %w", err)
		}
	}
	return nil
}
