package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Connect opens a client and verifies the server is reachable.
func Connect(ctx context.Context, addr string, password string, db int) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
