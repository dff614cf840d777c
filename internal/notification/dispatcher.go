package notification

import (
	"context"
	"sync"
	"time"

	"shoe_market_backend/internal/config"
	"shoe_market_backend/internal/platform/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Job is one email waiting for a worker.
type Job struct {
	Kind    EmailKind
	UserID  *uuid.UUID
	Message Message
}

// Dispatcher delivers jobs from a bounded queue on a fixed pool of workers.
// Delivery is best-effort: no retry and nothing survives a restart.
type Dispatcher struct {
	mailer      Mailer
	repo        Repository
	metrics     *metrics.Metrics
	logger      *zap.Logger
	sendTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	jobs   chan Job
	wg     sync.WaitGroup
}

// NewDispatcher starts cfg.EmailWorkers workers reading from a queue of
// cfg.EmailQueueSize jobs. repo and m may be nil.
func NewDispatcher(cfg *config.Config, mailer Mailer, repo Repository, m *metrics.Metrics, logger *zap.Logger) *Dispatcher {
	workers := cfg.EmailWorkers
	if workers <= 0 {
		workers = 1
	}
	queueSize := cfg.EmailQueueSize
	if queueSize < 0 {
		queueSize = 0
	}
	timeout := cfg.EmailSendTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	d := &Dispatcher{
		mailer:      mailer,
		repo:        repo,
		metrics:     m,
		logger:      logger.Named("EmailDispatcher"),
		sendTimeout: timeout,
		jobs:        make(chan Job, queueSize),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.logger.Info("Email dispatcher started", zap.Int("workers", workers), zap.Int("queueSize", queueSize))
	return d
}

// Enqueue never blocks. It reports false when the job was dropped because
// the queue is full or the dispatcher is shutting down.
func (d *Dispatcher) Enqueue(job Job) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("Dispatcher closed, dropping email", zap.String("kind", string(job.Kind)), zap.String("to", job.Message.To))
		d.metrics.IncEmail(string(job.Kind), "dropped")
		return false
	}
	select {
	case d.jobs <- job:
		return true
	default:
		d.logger.Warn("Email queue full, dropping email", zap.String("kind", string(job.Kind)), zap.String("to", job.Message.To))
		d.metrics.IncEmail(string(job.Kind), "dropped")
		return false
	}
}

func (d *Dispatcher) worker(n int) {
	defer d.wg.Done()
	for job := range d.jobs {
		d.deliver(job)
	}
	d.logger.Debug("Email worker stopped", zap.Int("worker", n))
}

func (d *Dispatcher) deliver(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	record := &EmailDelivery{
		UserID:    job.UserID,
		Recipient: job.Message.To,
		Kind:      job.Kind,
		Status:    StatusSent,
	}
	if err := d.mailer.Send(ctx, job.Message); err != nil {
		record.Status = StatusFailed
		record.Error = err.Error()
		d.logger.Error("Failed to send email",
			zap.String("kind", string(job.Kind)),
			zap.String("to", job.Message.To),
			zap.Error(err))
	} else {
		d.logger.Info("Email sent", zap.String("kind", string(job.Kind)), zap.String("to", job.Message.To))
	}
	d.metrics.IncEmail(string(job.Kind), string(record.Status))

	if d.repo == nil {
		return
	}
	// The send context may already be spent; the audit write gets its own.
	recordCtx, cancelRecord := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelRecord()
	if err := d.repo.Create(recordCtx, record); err != nil {
		d.logger.Warn("Failed to record email delivery", zap.Error(err))
	}
}

// Shutdown stops accepting jobs and waits for queued ones until ctx is done.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		d.logger.Info("Email dispatcher drained")
		return nil
	case <-ctx.Done():
		d.logger.Warn("Email dispatcher shutdown deadline reached", zap.Int("pending", len(d.jobs)))
		return ctx.Err()
	}
}
