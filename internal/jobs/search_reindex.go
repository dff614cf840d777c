// File: internal/jobs/search_reindex.go
package jobs

import (
	"context"
	"time"

	"shoe_market_backend/internal/config"
	"shoe_market_backend/internal/listing"
	"shoe_market_backend/internal/platform/metrics"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	searchReindexJobName   = "search_reindex"
	searchReindexBatchSize = 200
)

// Reindexer bulk-loads every shoe into the search index. *listing.ESIndex
// implements it.
type Reindexer interface {
	SyncAll(ctx context.Context, repo listing.Repository, batchSize int) (listing.SyncResult, error)
}

// SearchReindexJob periodically resyncs the search index from the database,
// repairing documents missed by best-effort index writes.
type SearchReindexJob struct {
	reindexer     Reindexer
	repo          listing.Repository
	metrics       *metrics.Metrics
	logger        *zap.Logger
	cfg           *config.Config
	cronScheduler *cron.Cron
}

// NewSearchReindexJob creates a new SearchReindexJob. reindexer may be nil
// when search is not configured; the job then never schedules.
func NewSearchReindexJob(
	reindexer Reindexer,
	repo listing.Repository,
	m *metrics.Metrics,
	logger *zap.Logger,
	cfg *config.Config,
) *SearchReindexJob {
	scheduler := cron.New(
		cron.WithLogger(NewCronLogger(logger.Named("cron"))),
		cron.WithChain(cron.SkipIfStillRunning(NewCronLogger(logger.Named("cron")))),
	)

	return &SearchReindexJob{
		reindexer:     reindexer,
		repo:          repo,
		metrics:       m,
		logger:        logger.Named("SearchReindexJob"),
		cfg:           cfg,
		cronScheduler: scheduler,
	}
}

// SetupAndStart schedules and starts the cron job.
func (j *SearchReindexJob) SetupAndStart() error {
	if j.reindexer == nil {
		j.logger.Info("Search index not configured. Reindex job will not run.")
		return nil
	}
	schedule := j.cfg.SearchReindexJobSchedule
	if schedule == "" {
		j.logger.Warn("Search reindex job schedule not defined (SEARCH_REINDEX_JOB_SCHEDULE). Job will not run.")
		return nil
	}

	jobID, err := j.cronScheduler.AddFunc(schedule, j.Run)
	if err != nil {
		j.logger.Error("Failed to schedule search reindex job", zap.String("schedule", schedule), zap.Error(err))
		return err
	}

	j.logger.Info("Search reindex job scheduled", zap.String("schedule", schedule), zap.Any("jobID", jobID))
	j.cronScheduler.Start()
	return nil
}

// Run performs one reindex pass.
func (j *SearchReindexJob) Run() {
	if j.reindexer == nil {
		return
	}
	j.logger.Info("Starting search reindex job run...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	start := time.Now()
	result, err := j.reindexer.SyncAll(ctx, j.repo, searchReindexBatchSize)
	j.metrics.ObserveJob(searchReindexJobName, time.Since(start), err)
	if err != nil {
		j.logger.Error("Search reindex job run failed", zap.Error(err), zap.Int("synced", result.Synced))
		return
	}
	j.logger.Info("Search reindex job run completed",
		zap.Int("synced", result.Synced),
		zap.Int("failed", result.Failed),
		zap.Int("batches", result.Batches),
		zap.Int64("pruned", result.Pruned),
	)
}

// Stop gracefully stops the cron scheduler.
func (j *SearchReindexJob) Stop() {
	if j.cronScheduler == nil {
		return
	}
	j.logger.Info("Stopping search reindex job scheduler...")
	stopCtx := j.cronScheduler.Stop()
	select {
	case <-stopCtx.Done():
		j.logger.Info("Search reindex job scheduler stopped gracefully.")
	case <-time.After(10 * time.Second):
		j.logger.Warn("Search reindex job scheduler stop timed out.")
	}
}
