package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

// DefaultSessionTTL bounds how long an abandoned draft survives in Redis.
const DefaultSessionTTL = 24 * time.Hour

// RedisStateStore keeps sessions in Redis so drafts survive restarts.
type RedisStateStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStateStore wraps a connected client.
func NewRedisStateStore(rdb *redis.Client, ttl time.Duration) *RedisStateStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisStateStore{rdb: rdb, ttl: ttl}
}

// ConnectRedis parses url, configures the pool and pings the server.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func sessionKey(userID int64) string {
	return fmt.Sprintf("%s%d", sessionKeyPrefix, userID)
}

func (r *RedisStateStore) Load(ctx context.Context, userID int64) (Session, error) {
	b, err := r.rdb.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, err
	}
	return decodeSession(b)
}

func (r *RedisStateStore) Save(ctx context.Context, userID int64, s Session) error {
	if s.IsZero() {
		return r.Clear(ctx, userID)
	}
	b, err := encodeSession(s)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, sessionKey(userID), b, r.ttl).Err()
}

func (r *RedisStateStore) Clear(ctx context.Context, userID int64) error {
	return r.rdb.Del(ctx, sessionKey(userID)).Err()
}
