// Command captured runs the payment capture HTTP server.
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

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/luminapay/capture"
	"github.com/luminapay/capture/config"
	"github.com/luminapay/capture/httpapi"
	"github.com/luminapay/capture/kafkasink"
	"github.com/luminapay/capture/postgres"
	"github.com/luminapay/capture/redislock"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	payments, captures, err := buildStores(cfg, logger)
	if err != nil {
		return err
	}

	locks, err := buildLocks(cfg, logger)
	if err != nil {
		return err
	}

	opts := []capture.Option{capture.WithLogger(logger)}
	if cfg.KafkaBrokerURL != "" {
		sink := kafkasink.NewPublisher(cfg.KafkaBrokers(), cfg.KafkaCaptureTopic, logger)
		defer sink.Close()
		opts = append(opts, capture.WithEventSink(sink))
		logger.Info("capture event sink enabled", zap.String("topic", cfg.KafkaCaptureTopic))
	}

	service := capture.NewService(locks, payments, captures, opts...)

	handler := httpapi.NewHandler(service, logger,
		httpapi.WithDefaultCaptureWindow(cfg.DefaultCaptureWindow),
		httpapi.WithRequestTimeout(cfg.LockWaitTimeout),
	)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildStores(cfg *config.Config, logger *zap.Logger) (capture.PaymentStore, capture.CaptureStore, error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		if err := postgres.Migrate(cfg.MigrateURL()); err != nil {
			return nil, nil, err
		}
		db, err := postgres.Open(cfg.DSN())
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using postgres stores", zap.String("host", cfg.DB.Host), zap.String("db", cfg.DB.Name))
		return postgres.NewPaymentStore(db), postgres.NewCaptureStore(db), nil
	default:
		logger.Info("using in-memory stores")
		return capture.NewMemoryPaymentStore(), capture.NewMemoryCaptureStore(), nil
	}
}

func buildLocks(cfg *config.Config, logger *zap.Logger) (capture.LockProvider, error) {
	switch cfg.LockBackend {
	case config.LockRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		logger.Info("using redis locks", zap.String("addr", cfg.RedisAddr))
		return redislock.NewProvider(client,
			redislock.WithTTL(cfg.LockTTL),
			redislock.WithLogger(logger),
		), nil
	default:
		logger.Info("using in-memory locks")
		return capture.NewMemoryLockProvider(), nil
	}
}
