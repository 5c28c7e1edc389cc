package event

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	xe "github.com/poddle/poddle/pkg/errors"
)

// Publisher fans events out to pub/sub subscribers.
//
// Publishing is fire-and-forget: nobody listening is not an error.
type Publisher interface {
	Publish(ctx context.Context, channel string, ev Event) error
}

type redisPublisher struct {
	client redis.UniversalClient
}

func NewPublisher(client redis.UniversalClient) Publisher {
	return &redisPublisher{client: client}
}

func (p *redisPublisher) Publish(ctx context.Context, channel string, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return xe.Wrap(err)
	}
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return xe.Wrap(err)
	}
	return nil
}
