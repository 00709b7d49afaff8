package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/nvoss/leakscope/internal/analysis"
	"github.com/nvoss/leakscope/internal/config"
	"github.com/nvoss/leakscope/internal/gateway"
	"github.com/nvoss/leakscope/internal/ingest"
	"github.com/nvoss/leakscope/internal/report"
	"github.com/nvoss/leakscope/internal/repository"
	"github.com/nvoss/leakscope/internal/server"
	"github.com/nvoss/leakscope/pkg/database"
	"github.com/nvoss/leakscope/pkg/utils"
)

func main() {
	_ = gotenv.Load()

	configPath := "configs/config.yaml"
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		configPath = p
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting revenue leak analysis service",
		zap.Int("port", cfg.Server.Port),
		zap.String("model", cfg.OpenAI.Model))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	gw, err := gateway.NewOpenAIGateway(gateway.Config{
		APIKey:      cfg.OpenAI.APIKey,
		Model:       cfg.OpenAI.Model,
		Temperature: cfg.OpenAI.Temperature,
		MaxTokens:   cfg.OpenAI.MaxTokens,
		Timeout:     cfg.OpenAI.Timeout,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize completion gateway", zap.Error(err))
	}

	prompts, err := analysis.LoadPrompts(cfg.Analysis.PromptsPath)
	if err != nil {
		logger.Fatal("Failed to load prompts", zap.Error(err))
	}

	classifier := analysis.NewClassifier(gw, prompts, cfg.Analysis.ClassifyMaxChars, logger)
	extractor := analysis.NewExtractor(gw, prompts, logger)

	srv := server.New(server.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		LiveMonitoring: cfg.Analysis.LiveMonitoring,
	}, server.Deps{
		Classifier:   classifier,
		Extractor:    extractor,
		Reconciler:   analysis.NewReconciler(gw, prompts, logger),
		Orchestrator: analysis.NewOrchestrator(classifier, extractor, logger),
		Chat:         analysis.NewChatStage(gw, logger),
		Reader:       ingest.NewReader(logger),
		Excel:        report.NewExcelWriter(logger),
		Runs:         repository.NewRunRepository(db.DB, logger),
	}, logger)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
