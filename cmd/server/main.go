package main

import (
	"context"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/rflyhigh/pinnedthoughts/internal/api"
	"github.com/rflyhigh/pinnedthoughts/internal/config"
	"github.com/rflyhigh/pinnedthoughts/internal/db"
	"github.com/rflyhigh/pinnedthoughts/internal/health"
	"github.com/rflyhigh/pinnedthoughts/internal/llm"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	database, err := db.New(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to initialize database",
			zap.Error(err),
			zap.String("dbPath", cfg.DBPath))
	}
	defer database.Close()

	llmService, err := llm.New(cfg, database, logger)
	if err != nil {
		logger.Fatal("failed to initialize LLM service", zap.Error(err))
	}

	handler := api.NewHandler(database, llmService, cfg, logger)

	if cfg.HealthPingURL != "" {
		pinger := health.NewPinger(cfg.HealthPingURL, 10*time.Minute, logger)
		go pinger.Run(context.Background())
	}

	logger.Info("starting server", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, handler.Routes()); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}
