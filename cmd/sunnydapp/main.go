package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sunnydapp/internal/api"
	"sunnydapp/internal/config"
	"sunnydapp/internal/engine"
	"sunnydapp/internal/events"
	"sunnydapp/internal/storage"
	"sunnydapp/internal/storage/retry"

	"github.com/joho/godotenv"
)

// backend bundles the ledger store with its event log
type backend interface {
	storage.Store
	storage.EventLog
}

// memoryBackend pairs the in-memory store with an in-memory event log
type memoryBackend struct {
	*storage.MemoryStore
	*storage.MemoryEventLog
}

func main() {
	fmt.Println("🌤️  Starting SunnyDapp...")

	// 1. Load configuration
	_ = godotenv.Load()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	// 2. Configure logger
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("Configuration loaded",
		"owner", cfg.OwnerAccount,
		"network", cfg.NetworkPassphrase,
		"store", cfg.StoreBackend,
		"log_level", cfg.LogLevel,
	)

	// 3. Initialize storage
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store backend
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pg, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("❌ Failed to connect to database: %v", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatalf("❌ Failed to prepare schema: %v", err)
		}
		store = pg
		slog.Info("Database connected successfully")
	default:
		store = memoryBackend{storage.NewMemoryStore(), storage.NewMemoryEventLog()}
		slog.Warn("Using in-memory store, state is lost on restart")
	}
	defer store.Close()

	// 4. Event fan-out: log, metrics, persisted event log
	notifier := events.NewFanout(
		events.LogSink{},
		events.MetricsSink{},
		events.NewStoreSink(store),
	)
	slog.Info("Event notifier ready", "sinks", len(notifier.Sinks()))

	// 5. Lifecycle engine
	retryStrategy := retry.NewStrategy(retry.LoadConfig())
	eng, err := engine.New(store, engine.Options{
		Owner:    cfg.OwnerAccount,
		Notifier: notifier,
		Retry:    retryStrategy,
	})
	if err != nil {
		log.Fatalf("❌ Failed to create engine: %v", err)
	}
	slog.Info("Engine ready", "retry", retryStrategy.Name())

	// 6. API server
	server := api.NewServer(cfg.APIPort, api.Options{
		Engine:            eng,
		Events:            store,
		Health:            store,
		NetworkPassphrase: cfg.NetworkPassphrase,
	})
	if err := server.Start(); err != nil {
		log.Fatalf("❌ Failed to start API server: %v", err)
	}

	// 7. Wait for interrupt
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	slog.Warn("Interrupt received, shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error stopping API server", "error", err)
	}

	slog.Info("SunnyDapp stopped")
}
