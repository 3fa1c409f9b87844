package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/finance-tracker/internal/config"
	"github.com/Dan9191/finance-tracker/internal/digest"
	"github.com/Dan9191/finance-tracker/internal/events"
	"github.com/Dan9191/finance-tracker/internal/handler"
	"github.com/Dan9191/finance-tracker/internal/repository"
	"github.com/Dan9191/finance-tracker/internal/service"
	"github.com/Dan9191/finance-tracker/internal/utils/email"
	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	connectTimeout  = time.Minute
	shutdownTimeout = 10 * time.Second
)

// store is what every backend provides
type store interface {
	service.TransactionStore
	service.UserStore
	handler.Pinger
}

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize %s store: %v", cfg.StoreBackend, err)
	}
	defer closeStore()

	// Event publishing is optional; the API keeps working without a broker.
	var publisher service.EventPublisher
	if cfg.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			logger.Warnf("Transaction events disabled: %v", err)
		} else {
			defer p.Close()
			publisher = p
		}
	}

	// Initialize layers
	svc := service.NewService(st, publisher, logger)
	auth := service.NewAuthService(st, cfg.JWTSecret, cfg.TokenTTL, logger)
	h := handler.NewHandler(svc, auth, st, logger)

	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      h.Router(cfg.AllowedOrigins),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("Shutting down server")
		return server.Shutdown(shutdownCtx)
	})

	if cfg.DigestEnabled() {
		scheduler, err := digest.NewScheduler(cfg.DigestSchedule, auth, svc, email.NewSender(cfg, logger), logger)
		if err != nil {
			logger.Fatalf("Failed to configure monthly digest: %v", err)
		}
		g.Go(func() error {
			return scheduler.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Fatalf("%v", err)
	}
	logger.Info("Server stopped")
}

// openStore connects to the configured backend, retrying while it starts up
func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		logger.Warn("Using in-memory store; data is lost on restart")
		return repository.NewMemoryStore(), func() {}, nil

	case config.BackendElasticsearch:
		es, err := repository.NewElasticStore(cfg.ESAddresses, cfg.ESIndex)
		if err != nil {
			return nil, nil, err
		}
		if err := retry(ctx, logger, "elasticsearch", func() error { return es.Ping(ctx) }); err != nil {
			return nil, nil, err
		}
		if err := es.EnsureIndices(ctx); err != nil {
			return nil, nil, err
		}
		logger.Infof("Connected to elasticsearch, index %s", cfg.ESIndex)
		return es, func() {}, nil

	default:
		if err := retry(ctx, logger, "postgres migrations", func() error { return repository.RunMigrations(cfg.DBConn) }); err != nil {
			return nil, nil, err
		}
		db, err := sql.Open("postgres", cfg.DBConn)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to ping database: %w", err)
		}
		logger.Info("Connected to postgres")
		return repository.NewRepository(db), func() { db.Close() }, nil
	}
}

func retry(ctx context.Context, logger *logrus.Logger, what string, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = connectTimeout
	return backoff.RetryNotify(op, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		logger.Warnf("Waiting for %s (retry in %s): %v", what, next.Round(time.Millisecond), err)
	})
}
