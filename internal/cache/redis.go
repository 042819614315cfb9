package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Redis struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedis(client *redis.Client, opts ...Option) *Redis {
	return &Redis{client: client, now: buildOptions(opts).now}
}

// Connect opens a client and checks the server is reachable.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", addr, err)
	}

	return client, nil
}

func (r *Redis) Get(ctx context.Context, key string, dest any) (bool, error) {
	b, err := r.client.Get(ctx, Prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("getting %s: %w", key, err)
	}

	if err := decode(b, dest); err != nil {
		return false, err
	}

	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, v any) error {
	b, err := encode(v, r.now())
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, Prefix+key, b, 0).Err(); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}

	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, Prefix+key).Err(); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}

	return nil
}
