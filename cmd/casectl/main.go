// casectl runs batch extraction over a directory of OCR'd orders:
// case records land in an embedded sqlite store and a JSONL results
// file.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/epfo-tools/case-engine/internal/async"
	"github.com/epfo-tools/case-engine/internal/common"
	"github.com/epfo-tools/case-engine/internal/entity"
	"github.com/epfo-tools/case-engine/internal/ingest"
	"github.com/epfo-tools/case-engine/internal/pipeline"
	"github.com/epfo-tools/case-engine/internal/relation"
	"github.com/epfo-tools/case-engine/internal/repository"
	"github.com/epfo-tools/case-engine/internal/schema"
)

// jsonlSink appends validated wire records to a results file.
type jsonlSink struct {
	mu sync.Mutex
	w  *bufio.Writer
}

func (s *jsonlSink) SaveCase(_ context.Context, rec *entity.CaseRecord) error {
	data, err := schema.Marshal(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(data); err != nil {
		return err
	}
	return s.w.WriteByte('\n')
}

func (s *jsonlSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Flush()
}

func main() {
	_ = godotenv.Load()

	dir := flag.String("dir", "", "directory of <name>.txt documents with optional sidecars")
	dbPath := flag.String("db", "case-engine.db", "sqlite store path")
	outPath := flag.String("out", "results.jsonl", "JSONL results path")
	workers := flag.Int("workers", 0, "worker count (default from QUEUE_WORKERS)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if *dir == "" {
		logger.Error("-dir is required")
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	if *workers > 0 {
		cfg.Queue.Workers = *workers
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.OpenSQLite(*dbPath, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer repository.Close(db, nil, logger)
	if err := repository.InitSchema(ctx, db); err != nil {
		logger.Error("failed to init schema", "error", err)
		os.Exit(1)
	}

	out, err := os.Create(*outPath)
	if err != nil {
		logger.Error("failed to create results file", "error", err)
		os.Exit(1)
	}
	defer out.Close()
	results := &jsonlSink{w: bufio.NewWriter(out)}

	vocab := relation.DefaultVocabulary()
	if cfg.Extraction.VocabularyPath != "" {
		vocab, err = relation.LoadVocabulary(cfg.Extraction.VocabularyPath)
		if err != nil {
			logger.Error("failed to load vocabulary", "error", err)
			os.Exit(1)
		}
	}

	requests, fileResults, stats, err := ingest.ScanDirectory(ctx, *dir)
	if err != nil {
		logger.Error("directory scan failed", "error", err)
		os.Exit(1)
	}
	for _, fr := range fileResults {
		if fr.Err != "" {
			logger.Warn("skipped file", "path", fr.Path, "error", fr.Err)
		}
	}
	logger.Info("scanned directory",
		"root", *dir,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
	)

	repo := repository.NewCaseRepository(db, logger)
	proc := pipeline.NewProcessor(cfg.Extraction, vocab, logger)
	queue := async.NewQueue(proc, async.MultiSink{repo, results}, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.QueueSize),
		async.WithProcessTimeout(cfg.Queue.ProcessTimeout),
	)

	for _, req := range requests {
		if err := queue.Enqueue(ctx, async.Job{Request: req, SubmittedAt: time.Now()}); err != nil {
			logger.Error("enqueue failed", "document_id", req.DocumentID, "error", err)
		}
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	queue.Shutdown(drainCtx)

	if err := results.Flush(); err != nil {
		logger.Error("failed to flush results", "error", err)
		os.Exit(1)
	}
	logger.Info("batch complete", "documents", len(requests), "results", *outPath, "store", *dbPath)
}
