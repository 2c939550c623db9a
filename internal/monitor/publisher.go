package monitor

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/flyby-bet-gateway/pkg/contracts/events"
)

// RedisBroadcaster publica pulsos no canal Pub/Sub consumido pelos
// gateways (fanout para os clientes WebSocket).
type RedisBroadcaster struct {
	r       *redis.Client
	channel string
}

func NewRedisBroadcaster(r *redis.Client, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{r: r, channel: channel}
}

func (b *RedisBroadcaster) PublishPulse(ctx context.Context, p events.ChainPulse) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return b.r.Publish(ctx, b.channel, payload).Err()
}
