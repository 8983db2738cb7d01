package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis reads the remote host from a key, for environments where the
// target publishes its current address (e.g. a VM boot script doing a
// SET on every address change). The context deadline from Detect bounds
// the round trip.
type Redis struct {
	client *redis.Client
	key    string
}

func NewRedis(addr, password string, db int, key string) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}),
		key:    key,
	}
}

func (r *Redis) Resolve(ctx context.Context) (string, error) {
	val, err := r.client.Get(ctx, r.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("redis key %q not set", r.key)
		}
		return "", fmt.Errorf("redis get %q: %w", r.key, err)
	}
	return val, nil
}
