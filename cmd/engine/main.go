package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	app "github.com/quantfex/matching-engine/internal/app/engine"
	"github.com/quantfex/matching-engine/internal/usecase/journal"
	"github.com/quantfex/matching-engine/internal/usecase/orderreader"
	"github.com/quantfex/matching-engine/internal/usecase/position"
	"github.com/quantfex/matching-engine/internal/usecase/publisher"
	"github.com/quantfex/matching-engine/internal/usecase/risk"
	"github.com/quantfex/matching-engine/internal/usecase/snapshot"
	"github.com/quantfex/matching-engine/pkg/config"
	"github.com/quantfex/matching-engine/pkg/logger"
)

var cfg *config.Config
var log *logger.Logger

func init() {
	cfg = &config.Config{}
	if err := config.Load(cfg); err != nil {
		panic(err)
	}

	l, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}
	log = l
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	rclient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rclient.Ping(ctx).Err(); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "connect_redis"})
		return
	}

	tradeJournal, err := journal.Open(cfg.Journal.Path, nil, log)
	if err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "open_journal"})
		return
	}

	opts := app.OptionsFromConfig(cfg)
	tracker := position.NewTracker()
	riskEngine := risk.NewEngine(tracker, opts.RiskCheckTimeout, log)
	snapshotStore := snapshot.NewStore(snapshot.NewRedisKV(rclient), log)
	eventPublisher := publisher.NewPublisher(cfg.EventStream, log)
	orderReader := orderreader.NewReader(cfg.OrderFeed, log)

	engine := app.NewEngine(
		cfg.Symbols,
		riskEngine,
		tracker,
		tradeJournal,
		eventPublisher,
		snapshotStore,
		log,
		opts,
	)

	if err := engine.Start(ctx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "start_engine"})
		return
	}

	readerDone := make(chan error, 1)
	go func() {
		readerDone <- orderReader.Run(ctx, engine)
	}()

	log.Info("matching engine started", logger.Field{
		Key:   "symbols",
		Value: cfg.Symbols,
	})

	select {
	case sig := <-sigChan:
		log.Info("received shutdown signal", logger.Field{
			Key:   "signal",
			Value: sig.String(),
		})
	case err := <-readerDone:
		if err != nil {
			log.Error(err, logger.Field{Key: "action", Value: "order_reader"})
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := engine.Stop(shutdownCtx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "stop_engine"})
	}
	if err := orderReader.Close(); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "close_order_reader"})
	}
	if err := eventPublisher.Close(); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "close_publisher"})
	}
	if err := tradeJournal.Close(); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "close_journal"})
	}
	if err := rclient.Close(); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "close_redis_client"})
	}

	log.Info("matching engine shutdown complete")
}
