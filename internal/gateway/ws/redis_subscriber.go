package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/flyby-bet-gateway/pkg/contracts/events"
)

// StartRedisSubscriber inicia uma goroutine que escuta o canal Redis
// Pub/Sub de pulsos e repassa cada pulso recebido aos clientes WebSocket
// conectados via Hub.
//
// Funcionamento:
// - Recebe mensagens JSON do canal Redis (publicadas pelo chain-monitor)
// - Desserializa para ChainPulse
// - Chama hub.Broadcast para enviar aos clientes conectados
func StartRedisSubscriber(ctx context.Context, r *redis.Client, channel string, hub *Hub, log *zap.Logger) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close() // encerra a inscrição ao finalizar o contexto
				return
			case msg := <-ch:
				if msg == nil {
					continue
				}
				var pulse events.ChainPulse
				if err := json.Unmarshal([]byte(msg.Payload), &pulse); err != nil {
					log.Warn("pulse subscriber unmarshal error", zap.Error(err))
					continue
				}
				hub.Broadcast(pulse)
			}
		}
	}()
}
