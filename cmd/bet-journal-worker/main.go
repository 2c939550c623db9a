package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/flyby-bet-gateway/internal/shared/config"
	"github.com/radieske/flyby-bet-gateway/internal/shared/db"
	"github.com/radieske/flyby-bet-gateway/internal/shared/kafka"
	"github.com/radieske/flyby-bet-gateway/internal/shared/logger"
	"github.com/radieske/flyby-bet-gateway/internal/shared/metrics"
	ev "github.com/radieske/flyby-bet-gateway/pkg/contracts/events"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Conexão com Postgres para o diário de apostas
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	if err := ensureSchema(context.Background(), pg); err != nil {
		log.Fatal("pg schema", zap.Error(err))
	}

	// Kafka consumer: consome eventos bet_placed publicados pelo gateway
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicBetPlaced, "bet-journal")
	defer reader.Close()

	var dlqWriter *kafka.Writer
	if cfg.TopicBetPlacedDLQ != "" {
		dlqWriter = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlacedDLQ)
		defer dlqWriter.Close()
	}

	// Writer do evento de resultado (journaled/failed)
	resultWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetJournaled)
	defer resultWriter.Close()

	// Servidor HTTP para métricas Prometheus e healthcheck
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})

	log.Info("bet-journal-worker started", zap.String("consume", cfg.TopicBetPlaced))

	ctx := context.Background()

	// Loop principal: consome bet_placed e persiste no diário
	for {
		_, value, err := kafka.ReadNext(ctx, reader)
		if err != nil {
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		var placed ev.BetPlaced
		if jerr := json.Unmarshal(value, &placed); jerr != nil {
			log.Error("unmarshal bet_placed", zap.Error(jerr))
			continue
		}

		if err := journalOne(ctx, pg, &placed); err != nil {
			log.Error("journal bet", zap.String("txId", placed.TxID), zap.Error(err))
			// Retry simples antes de mandar para a DLQ
			const retries = 3
			for i := 0; i < retries && err != nil; i++ {
				time.Sleep(time.Duration(300*(i+1)) * time.Millisecond)
				err = journalOne(ctx, pg, &placed)
			}
			if err != nil {
				if dlqWriter != nil {
					_ = kafka.WriteJSON(ctx, dlqWriter, placed.TxID, mustJSON(placed))
				}
				publishResult(ctx, resultWriter, &placed, "FAILED", err.Error())
			}
			continue
		}
		publishResult(ctx, resultWriter, &placed, "JOURNALED", "")
		log.Info("bet journaled", zap.String("txId", placed.TxID), zap.String("pool", placed.PoolName))
	}
}

func publishResult(ctx context.Context, w *kafka.Writer, p *ev.BetPlaced, status, reason string) {
	out := ev.BetJournaled{
		TxID:    p.TxID,
		Address: p.Address,
		Status:  status,
		Reason:  reason,
		Ts:      time.Now().UTC(),
	}
	_ = kafka.WriteJSON(ctx, w, out.TxID, mustJSON(out))
}

func ensureSchema(ctx context.Context, pg *sql.DB) error {
	_, err := pg.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS bet_journal (
			tx_id      TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			address    TEXT NOT NULL,
			pool_id    TEXT NOT NULL,
			pool_name  TEXT NOT NULL,
			option     TEXT NOT NULL,
			placed_at  TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

// journalOne insere a aposta; txid repetido é idempotente (upsert noop).
func journalOne(ctx context.Context, pg *sql.DB, p *ev.BetPlaced) error {
	_, err := pg.ExecContext(ctx, `
		INSERT INTO bet_journal (tx_id, session_id, address, pool_id, pool_name, option, placed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (tx_id) DO NOTHING`,
		p.TxID, p.SessionID, p.Address, p.PoolID, p.PoolName, p.Option,
		time.UnixMilli(p.TsUnixMs))
	return err
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
