// casesvc is the extraction service: HTTP in, case records out, with a
// Postgres case store behind it.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/epfo-tools/case-engine/internal/async"
	"github.com/epfo-tools/case-engine/internal/common"
	"github.com/epfo-tools/case-engine/internal/export"
	"github.com/epfo-tools/case-engine/internal/pipeline"
	"github.com/epfo-tools/case-engine/internal/relation"
	"github.com/epfo-tools/case-engine/internal/repository"
	"github.com/epfo-tools/case-engine/internal/server"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, pool, err := repository.OpenPostgres(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repository.Close(db, pool, logger)

	if err := repository.HealthCheck(ctx, db, cfg.Database.DialTimeout, logger); err != nil {
		logger.Error("database health check failed", "error", err)
		os.Exit(1)
	}
	if err := repository.InitSchema(ctx, db); err != nil {
		logger.Error("failed to init schema", "error", err)
		os.Exit(1)
	}

	vocab := relation.DefaultVocabulary()
	if cfg.Extraction.VocabularyPath != "" {
		vocab, err = relation.LoadVocabulary(cfg.Extraction.VocabularyPath)
		if err != nil {
			logger.Error("failed to load vocabulary", "error", err)
			os.Exit(1)
		}
		logger.Info("loaded vocabulary override", "path", cfg.Extraction.VocabularyPath)
	}

	repo := repository.NewCaseRepository(db, logger)
	proc := pipeline.NewProcessor(cfg.Extraction, vocab, logger)
	queue := async.NewQueue(proc, repo, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.QueueSize),
		async.WithProcessTimeout(cfg.Queue.ProcessTimeout),
	)
	exporter := export.NewService(repo, logger)

	srv := server.NewServer(server.Config{
		Processor: proc,
		Queue:     queue,
		Repo:      repo,
		Exporter:  exporter,
		Logger:    logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	logger.Info("goodbye")
}
