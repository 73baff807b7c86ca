package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/joho/godotenv"

	"github.com/kaystudios/assistant-gateway/internal/config"
	"github.com/kaystudios/assistant-gateway/internal/history"
	"github.com/kaystudios/assistant-gateway/internal/inference/bedrock"
	"github.com/kaystudios/assistant-gateway/internal/metrics"
	"github.com/kaystudios/assistant-gateway/internal/model"
	"github.com/kaystudios/assistant-gateway/internal/orchestrator"
	"github.com/kaystudios/assistant-gateway/internal/resilience"
	"github.com/kaystudios/assistant-gateway/internal/server"
	"github.com/kaystudios/assistant-gateway/internal/storage/dynamo"
	"github.com/kaystudios/assistant-gateway/internal/storage/memory"
	"github.com/kaystudios/assistant-gateway/internal/storage/sqlite"
	"github.com/kaystudios/assistant-gateway/internal/telemetry"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	shutdownTracer, err := telemetry.InitTracer("assistant-gateway", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	configPath := os.Getenv("ASSISTANT_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := buildStore(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close store", slog.String("error", err.Error()))
		}
	}()

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Bedrock.Region),
	)
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	invoker := bedrock.NewFromConfig(awsCfg)

	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		Cooldown:         cfg.Breaker.Cooldown,
	}, logger)
	executor := resilience.NewExecutor(resilience.Policy{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: cfg.Retry.InitialBackoff,
		MaxBackoff:     cfg.Retry.MaxBackoff,
	}, breaker, logger)

	orch := orchestrator.New(orchestrator.Deps{
		Registry: model.NewRegistry(),
		Store:    store,
		Invoker:  invoker,
		Executor: executor,
		Metrics:  metrics.NewOTel(logger),
		Logger:   logger,
	}, orchestrator.Config{
		Window: cfg.History.Window,
	})

	srv := server.New(cfg.Server.Port, cfg.Server.Timeout, logger)
	chat := server.NewChatHandler(orch, logger)
	srv.Router.Post("/v1/chat", chat.HandleChat)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("assistant gateway started",
		slog.Int("port", cfg.Server.Port),
		slog.String("storage", cfg.Storage.Driver),
		slog.String("bedrock_region", cfg.Bedrock.Region),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
		return
	case sig := <-sigCh:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

func buildStore(cfg *config.Config, logger *slog.Logger) (history.Store, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return memory.New(), nil
	case "dynamodb":
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.Storage.DynamoDB.Region),
		)
		if err != nil {
			return nil, err
		}
		return dynamo.NewFromConfig(awsCfg, cfg.Storage.DynamoDB.Table), nil
	default:
		logger.Info("using sqlite storage", slog.String("path", cfg.Storage.SQLite.Path))
		return sqlite.New(cfg.Storage.SQLite.Path)
	}
}
