package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/flyby-bet-gateway/internal/chain"
	"github.com/radieske/flyby-bet-gateway/internal/gateway/bet"
	"github.com/radieske/flyby-bet-gateway/internal/gateway/catalog"
	"github.com/radieske/flyby-bet-gateway/internal/gateway/flow"
	ghttp "github.com/radieske/flyby-bet-gateway/internal/gateway/http"
	kpub "github.com/radieske/flyby-bet-gateway/internal/gateway/producer"
	"github.com/radieske/flyby-bet-gateway/internal/gateway/ws"
	"github.com/radieske/flyby-bet-gateway/internal/shared/cache"
	"github.com/radieske/flyby-bet-gateway/internal/shared/config"
	"github.com/radieske/flyby-bet-gateway/internal/shared/kafka"
	"github.com/radieske/flyby-bet-gateway/internal/shared/logger"
	"github.com/radieske/flyby-bet-gateway/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	contract, err := chain.Uint160FromHex(cfg.ContractHash)
	if err != nil {
		log.Fatal("contract hash", zap.Error(err))
	}

	// Redis (assinatura dos pulsos do chain-monitor)
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}

	// Kafka writer (tópico bet_placed)
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlaced)
	defer writer.Close()

	// deps
	node := chain.NewClient(cfg.NodeURL)
	fetcher := catalog.NewFetcher(node, log)
	builder := bet.NewBuilder(node, log)
	deployment := flow.Deployment{
		Contract:        contract,
		NetworkMagic:    cfg.NetworkMagic,
		NodeURL:         cfg.NodeURL,
		ExpiryIncrement: cfg.ExpiryIncrement,
	}
	sessions := ghttp.NewSessionStore(func() *flow.Machine {
		return flow.NewMachine(log, deployment, fetcher, builder)
	})
	publ := kpub.NewKafkaPublisher(writer, cfg.TopicBetPlaced)

	explorerBase := "https://dora.coz.io/transaction/neo3/testnet/"
	api := ghttp.NewServer(log, sessions, explorerBase, publ)

	// fanout de pulsos da chain para os clientes WebSocket
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := ws.NewHub(func(r *http.Request) bool { return true })
	ws.StartRedisSubscriber(ctx, rdb, cfg.PulseChannel, hub, log)

	mux := http.NewServeMux()
	mux.Handle("/", api.Router())
	mux.HandleFunc("/ws", hub.HandleWS)
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: mux,
	}

	// metrics/health em porta separada
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})

	log.Info("bet-gateway listening",
		zap.String("addr", fmt.Sprintf(":%s", cfg.HTTPPort)),
		zap.String("contract", contract.String()),
		zap.String("node", cfg.NodeURL),
	)
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
