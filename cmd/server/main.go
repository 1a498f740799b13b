package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mrfrench/backend/internal/gateway"
	"github.com/mrfrench/backend/internal/history"
	"github.com/mrfrench/backend/internal/intent"
	"github.com/mrfrench/backend/internal/llm"
	"github.com/mrfrench/backend/internal/orchestrator"
	"github.com/mrfrench/backend/internal/scheduler"
	"github.com/mrfrench/backend/internal/server"
	"github.com/mrfrench/backend/internal/storage"
	"github.com/mrfrench/backend/internal/tasks"
	"github.com/mrfrench/backend/internal/zone"
	"github.com/mrfrench/backend/pkg/config"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize storage
	var store interface {
		storage.TaskStore
		storage.ZoneStore
	}
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStore()
	} else {
		logger.Info("Using PostgreSQL storage")
		pg, err := storage.NewPostgresStore(storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
		store = pg
	}
	defer store.Close()

	log := history.NewMemoryLog()

	// Without an API key, run the offline pipeline: deterministic intent
	// extraction and echoed confirmations instead of generated prose.
	var (
		client    llm.Client
		extractor intent.Extractor
	)
	if cfg.OpenAI.APIKey != "" {
		client = llm.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.MaxTokens, cfg.OpenAI.Temperature, logger)
		extractor = intent.NewLLMExtractor(client, logger)
	} else {
		logger.Warn("OPENAI_API_KEY not set, running in offline mode")
		client = llm.NewEchoClient()
		extractor = intent.NewStubExtractor()
	}

	handler := tasks.NewHandler(store, log, cfg.Orchestrator.SimilarityThreshold, logger)
	zones := zone.NewManager(store, store, logger)
	orch := orchestrator.New(log, store, extractor, handler, zones, client, cfg.Orchestrator.HistoryWindow, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Scheduler.Enabled {
		sched := scheduler.New(store, log, cfg.Scheduler.ReminderInterval, logger)
		go sched.Run(ctx)
	}

	if cfg.Telegram.Token != "" {
		bot, err := gateway.New(cfg.Telegram.Token, cfg.Telegram.ParentChatID, cfg.Telegram.ChildChatID, orch, store, logger)
		if err != nil {
			logger.Fatal("Failed to create telegram gateway", zap.Error(err))
		}
		go func() {
			if err := bot.Start(ctx); err != nil {
				logger.Error("Telegram gateway error", zap.Error(err))
			}
		}()
	}

	srv := server.New(cfg.Server.Addr(), orch, store, log, zones, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Fatal("HTTP server error", zap.Error(err))
	}
}
