package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/flyby-bet-gateway/pkg/contracts/events"
)

// PulsePublisher repassa pulsos aos gateways (Redis Pub/Sub em produção).
type PulsePublisher interface {
	PublishPulse(ctx context.Context, p events.ChainPulse) error
}

// indexerMsg é o envelope enviado pelo feed do indexer. O log é opcional:
// mensagens de bloco sem notificações não o carregam.
type indexerMsg struct {
	Height uint64 `json:"height"`
	Log    *struct {
		Notifications []struct {
			EventName string `json:"event_name"`
		} `json:"notifications"`
	} `json:"log"`
}

// Watcher mantém a assinatura persistente do feed de notificações do
// contrato. Vida útil independente do fluxo transacional: abre exatamente
// uma assinatura por processo e só encerra no cancelamento do contexto.
type Watcher struct {
	URL       string
	Log       *zap.Logger
	Detector  *Detector
	Publisher PulsePublisher
}

// Start inicia o loop de conexão e escuta do feed.
// Em caso de desconexão, tenta reconectar automaticamente com backoff.
func (w *Watcher) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Log.Info("context canceled, stopping chain watcher")
			w.Detector.Stop()
			return
		default:
			if err := w.connectAndListen(ctx); err != nil {
				w.Log.Warn("indexer connection closed", zap.Error(err))
				time.Sleep(3 * time.Second) // Aguarda antes de tentar reconectar
			}
		}
	}
}

// connectAndListen estabelece a conexão WebSocket e processa mensagens.
// Falha de parse é registrada e pulada; nunca derruba a assinatura.
func (w *Watcher) connectAndListen(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	w.Log.Info("connected to indexer feed", zap.String("url", w.URL))

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, context.Canceled) {
				return nil
			}
			w.Log.Error("read message failed", zap.Error(err))
			return err
		}
		w.handleMessage(ctx, message)
	}
}

func (w *Watcher) handleMessage(ctx context.Context, message []byte) {
	messagesTotal.Inc()

	var msg indexerMsg
	if err := json.Unmarshal(message, &msg); err != nil {
		parseFailuresTotal.Inc()
		w.Log.Warn("invalid indexer message", zap.Error(err))
		return
	}

	// altura sempre atualiza, com ou sem notificações
	w.Detector.ObserveHeight(msg.Height)

	matched := ""
	if msg.Log != nil {
		for _, n := range msg.Log.Notifications {
			if n.EventName == w.Detector.Target() {
				matched = n.EventName
				break
			}
		}
	}
	if matched != "" {
		w.Detector.Trigger()
		pulsesTotal.Inc()
		w.Log.Info("target event detected", zap.String("event", matched), zap.Uint64("height", msg.Height))
	}

	height, active := w.Detector.Snapshot()
	pulse := events.ChainPulse{
		Height:    height,
		Detected:  active,
		EventName: matched,
		Ts:        time.Now(),
	}
	if err := w.Publisher.PublishPulse(ctx, pulse); err != nil {
		w.Log.Error("failed to publish pulse", zap.Error(err))
	}
}
