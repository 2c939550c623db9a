package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/flyby-bet-gateway/internal/monitor"
	"github.com/radieske/flyby-bet-gateway/internal/shared/cache"
	"github.com/radieske/flyby-bet-gateway/internal/shared/config"
	"github.com/radieske/flyby-bet-gateway/internal/shared/logger"
	"github.com/radieske/flyby-bet-gateway/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("indexer feed", zap.String("url", cfg.IndexerWSURL), zap.String("event", cfg.TargetEvent))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis (publicação dos pulsos para os gateways)
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	broadcaster := monitor.NewRedisBroadcaster(rdb, cfg.PulseChannel)

	// Uma assinatura por processo; descartada uma única vez no teardown.
	detector := monitor.NewDetector(cfg.TargetEvent, cfg.PulseDwell)
	watcher := &monitor.Watcher{
		URL:       cfg.IndexerWSURL,
		Log:       log,
		Detector:  detector,
		Publisher: broadcaster,
	}
	go watcher.Start(ctx)

	// Metrics e health
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutdown signal received")
	cancel()
	time.Sleep(2 * time.Second)
}
