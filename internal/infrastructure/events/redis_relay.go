package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisRelay mirrors bus changes between API instances over Redis pub/sub.
// Local changes are stamped with this instance's origin and published;
// remote changes are re-dispatched on the local bus.
type RedisRelay struct {
	client  redis.UniversalClient
	channel string
	origin  string
	bus     *Bus
}

func NewRedisRelay(client redis.UniversalClient, channel, origin string, bus *Bus) *RedisRelay {
	return &RedisRelay{client: client, channel: channel, origin: origin, bus: bus}
}

// Run forwards local changes and consumes remote ones until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	// Wait for the subscription so nothing published after Run starts is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	unsubscribe := r.bus.Subscribe("redis-relay", r.forward)
	defer unsubscribe()

	log.Info().Str("channel", r.channel).Str("origin", r.origin).Msg("change relay started")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.receive(ctx, msg.Payload)
		}
	}
}

func (r *RedisRelay) forward(ctx context.Context, c Change) {
	if c.Origin != "" && c.Origin != r.origin {
		return
	}
	c.Origin = r.origin

	raw, err := json.Marshal(c)
	if err != nil {
		log.Error().Err(err).Msg("encode change")
		return
	}
	if err := r.client.Publish(ctx, r.channel, raw).Err(); err != nil {
		log.Warn().Err(err).Str("kind", string(c.Kind)).Msg("relay publish failed")
	}
}

func (r *RedisRelay) receive(ctx context.Context, payload string) {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		log.Warn().Err(err).Msg("drop malformed change")
		return
	}
	if c.Origin == "" || c.Origin == r.origin {
		return
	}
	r.bus.Publish(ctx, c)
}
