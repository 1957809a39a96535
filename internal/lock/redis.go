package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// unlockScript deletes the key only while it still holds our token, so an
// expired lock re-acquired by another holder is left alone.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLock struct {
	client redis.UniversalClient
	token  string
}

func NewRedisLock(client redis.UniversalClient) *RedisLock {
	return &RedisLock{client: client, token: uuid.NewString()}
}

// NewClient dials redis and checks the connection.
func NewClient(ctx context.Context, redisAddr string) (*redis.Client, error) {
	const op = "lock.NewClient"

	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return client, nil
}

func lockKey(key string) string {
	return fmt.Sprintf("lock:%s", key)
}

func (r *RedisLock) Lock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	const op = "lock.RedisLock.Lock"

	result, err := r.client.SetNX(ctx, lockKey(key), r.token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

func (r *RedisLock) Unlock(ctx context.Context, key string) error {
	const op = "lock.RedisLock.Unlock"

	if err := unlockScript.Run(ctx, r.client, []string{lockKey(key)}, r.token).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
