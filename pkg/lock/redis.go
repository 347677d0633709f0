package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agencykit/automation/pkg/protocol"
)

// lockTTL caps how long a Redis lock outlives a crashed holder.
const lockTTL = time.Hour

// RedisLock serializes ticks across hosts with SET NX on a shared key.
type RedisLock struct {
	client *redis.Client
	prefix string
}

func NewRedisLock(redisURL string) (*RedisLock, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	return &RedisLock{
		client: redis.NewClient(opts),
		prefix: "automation:lock:",
	}, nil
}

func (l *RedisLock) Acquire(ctx context.Context, name string) (func(), error) {
	key := l.prefix + name

	ok, err := l.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire redis lock: %w", err)
	}

	if !ok {
		return nil, protocol.ErrLockHeld
	}

	return func() {
		l.client.Del(context.Background(), key)
	}, nil
}

func (l *RedisLock) Close() error {
	return l.client.Close()
}
