// Package async is the bounded worker pool for batch extraction.
// Documents are embarrassingly parallel: each job is isolated, and a
// failed or canceled document never touches its neighbors.
package async

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"github.com/epfo-tools/case-engine/internal/entity"
	"github.com/epfo-tools/case-engine/internal/pipeline"
)

// Job is the smallest useful unit. Extend as needed later (trace, retry, priority).
type Job struct {
	Request     pipeline.ProcessRequest
	SubmittedAt time.Time
	TraceID     string
}

// Processor runs one document's extraction.
type Processor interface {
	Process(ctx context.Context, req pipeline.ProcessRequest) (*entity.CaseRecord, error)
}

// Sink receives completed case records. Partial results are never
// committed: a sink only ever sees full records.
type Sink interface {
	SaveCase(ctx context.Context, rec *entity.CaseRecord) error
}

// MultiSink fans a record out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) SaveCase(ctx context.Context, rec *entity.CaseRecord) error {
	for _, s := range m {
		if err := s.SaveCase(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

type Queue struct {
	proc    Processor
	sink    Sink
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*Queue)

func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// NewQueue starts the workers immediately. A nil sink discards
// records after logging, which is what the sync API path wants.
func NewQueue(proc Processor, sink Sink, logger *slog.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		proc:    proc,
		sink:    sink,
		logger:  logger,
		workers: 4,
		timeout: 1 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					q.run(ctx, workerID, job)
					cancel()
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *Queue) run(ctx context.Context, workerID int, job Job) {
	rec, err := q.proc.Process(ctx, job.Request)
	if err != nil {
		q.logger.Error("processing failed", "worker_id", workerID, "document_id", job.Request.DocumentID, "error", err)
		return
	}
	if q.sink != nil {
		if err := q.sink.SaveCase(ctx, rec); err != nil {
			q.logger.Error("saving case failed", "worker_id", workerID, "document_id", job.Request.DocumentID, "error", err)
			return
		}
	}
	q.logger.Info("processed document successfully", "worker_id", workerID, "document_id", job.Request.DocumentID)
}

func (q *Queue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "document_id", job.Request.DocumentID)
		return nil
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued document for processing", "document_id", job.Request.DocumentID)
	default:
		q.logger.Warn("queue full, applying backpressure", "document_id", job.Request.DocumentID)
		q.ch <- job
	}
	return nil
}

func (q *Queue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
