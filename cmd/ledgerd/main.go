// Command ledgerd serves the energy trading ledger over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	_ "github.com/lumin-energy/energy-ledger/docs"
	"github.com/lumin-energy/energy-ledger/internal/api"
	"github.com/lumin-energy/energy-ledger/internal/core/ledger"
	"github.com/lumin-energy/energy-ledger/internal/core/ports"
	"github.com/lumin-energy/energy-ledger/internal/core/service"
	"github.com/lumin-energy/energy-ledger/internal/infrastructure/broker/rabbitmq"
	"github.com/lumin-energy/energy-ledger/internal/infrastructure/config"
	"github.com/lumin-energy/energy-ledger/internal/infrastructure/db/bolt"
	"github.com/lumin-energy/energy-ledger/internal/infrastructure/db/mongo"
	"github.com/lumin-energy/energy-ledger/internal/infrastructure/db/redis"
	"github.com/lumin-energy/energy-ledger/internal/infrastructure/queue"
	"github.com/lumin-energy/energy-ledger/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "ledgerd",
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("ledgerd stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Journal ---
	var (
		journal ports.Journal
		mongoDB *mongodriver.Database
	)
	switch cfg.Journal.Backend {
	case config.JournalBolt:
		j, err := bolt.Open(cfg.Journal.BoltPath)
		if err != nil {
			return err
		}
		defer j.Close()
		journal = j
	case config.JournalMongo:
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		repo := mongo.NewJournalRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			log.Warn().Err(err).Msg("journal index creation failed")
		}
		journal, mongoDB = repo, db
	default:
		log.Warn().Msg("in-memory journal: ledger state will not survive a restart")
		journal = ledger.NewMemoryJournal()
	}

	// --- Change events ---
	var sink ports.EventSink = rabbitmq.NewFallback(logger.Component("events"))
	if cfg.AMQP.URL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, logger.Component("rabbitmq"))
		if err != nil {
			log.Warn().Err(err).Msg("rabbitmq unavailable, using fallback publisher")
		} else {
			defer pub.Close()
			sink = pub
			log.Info().Str("exchange", cfg.AMQP.Exchange).Msg("rabbitmq publisher connected")
		}
	}
	dispatcher := queue.NewDispatcher(cfg.Dispatch.Workers, cfg.Dispatch.QueueSize, sink, logger.Component("dispatcher"))
	dispatcher.Start(context.Background())
	defer dispatcher.Close()

	// --- Ledger ---
	l := ledger.New(logger.Component("ledger"), ledger.WithJournal(journal), ledger.WithEmitter(dispatcher))
	n, err := l.Replay(ctx)
	if err != nil {
		return fmt.Errorf("replay journal: %w", err)
	}
	log.Info().Int("entries", n).Str("backend", cfg.Journal.Backend).Msg("ledger ready")

	// --- Idempotency keys ---
	var (
		keys        service.IdempotencyStore
		redisClient *goredis.Client
	)
	if cfg.Redis.Addr != "" {
		rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, idempotency keys disabled")
		} else {
			defer rdb.Close()
			keys, redisClient = redis.NewIdempotencyStore(rdb, cfg.Redis.IdempotencyTTL), rdb
		}
	}

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		Ledger:    l,
		Market:    service.NewMarketService(l, keys, logger.Component("market")),
		Auth:      service.NewAuthService(l, cfg.JWTSecret, cfg.TokenTTL),
		JWTSecret: cfg.JWTSecret,
		Log:       logger.Component("http"),
		Mongo:     mongoDB,
		Redis:     redisClient,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	log.Info().Uint64("seq", l.Seq()).Msg("server stopped")
	return nil
}
