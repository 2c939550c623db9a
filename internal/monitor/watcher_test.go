package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/radieske/flyby-bet-gateway/pkg/contracts/events"
)

type recordingPublisher struct {
	mu     sync.Mutex
	pulses []events.ChainPulse
}

func (p *recordingPublisher) PublishPulse(_ context.Context, pulse events.ChainPulse) error {
	p.mu.Lock()
	p.pulses = append(p.pulses, pulse)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) snapshot() []events.ChainPulse {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.ChainPulse, len(p.pulses))
	copy(out, p.pulses)
	return out
}

// feedServer simula o feed do indexer: aceita o upgrade e envia os
// frames, depois mantém a conexão aberta.
func feedServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// segura a conexão até o teste encerrar
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWatcher_DetectsTargetEvent(t *testing.T) {
	frames := []string{
		`{"height":100}`,
		`not json at all`,
		`{"height":101,"log":{"notifications":[{"event_name":"Transfer"}]}}`,
		`{"height":102,"log":{"notifications":[{"event_name":"ChangeImage"}]}}`,
	}
	srv := feedServer(t, frames)

	detector := NewDetector("ChangeImage", time.Minute)
	defer detector.Stop()
	pub := &recordingPublisher{}
	w := &Watcher{
		URL:       wsURL(srv),
		Log:       zaptest.NewLogger(t),
		Detector:  detector,
		Publisher: pub,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	// o frame inválido é pulado: três pulsos publicados para quatro frames
	require.Eventually(t, func() bool {
		return len(pub.snapshot()) >= 3
	}, 2*time.Second, 10*time.Millisecond)

	pulses := pub.snapshot()[:3]

	// mensagem de altura sem notificações não dispara
	assert.Equal(t, uint64(100), pulses[0].Height)
	assert.False(t, pulses[0].Detected)
	assert.Empty(t, pulses[0].EventName)

	// notificação de outro evento não dispara
	assert.Equal(t, uint64(101), pulses[1].Height)
	assert.False(t, pulses[1].Detected)

	// evento alvo dispara e carrega o nome
	assert.Equal(t, uint64(102), pulses[2].Height)
	assert.True(t, pulses[2].Detected)
	assert.Equal(t, "ChangeImage", pulses[2].EventName)

	height, active := detector.Snapshot()
	assert.Equal(t, uint64(102), height)
	assert.True(t, active)

	cancel()
	srv.Close()
}

func TestWatcher_ReconnectsAfterClose(t *testing.T) {
	var mu sync.Mutex
	connects := 0

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		connects++
		first := connects == 1
		mu.Unlock()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if first {
			// primeira conexão cai logo após uma mensagem
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"height":1}`))
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"height":2}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	detector := NewDetector("ChangeImage", time.Minute)
	defer detector.Stop()
	pub := &recordingPublisher{}
	w := &Watcher{
		URL:       wsURL(srv),
		Log:       zaptest.NewLogger(t),
		Detector:  detector,
		Publisher: pub,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	// a assinatura é reaberta sozinha depois da queda
	require.Eventually(t, func() bool {
		for _, p := range pub.snapshot() {
			if p.Height == 2 {
				return true
			}
		}
		return false
	}, 10*time.Second, 20*time.Millisecond)

	mu.Lock()
	assert.GreaterOrEqual(t, connects, 2)
	mu.Unlock()

	cancel()
	srv.Close()
}
