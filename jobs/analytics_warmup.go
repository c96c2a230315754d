package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/manara-erp/manara/internal/jobs"
)

// Warmer pre-builds cached analytics views.
type Warmer interface {
	Warmup(ctx context.Context) error
}

// Reloader refreshes in-memory state from persistence.
type Reloader interface {
	Load(ctx context.Context) error
}

// AnalyticsWarmupJob pre-populates the analytics cache.
type AnalyticsWarmupJob struct {
	Analytics Warmer
	Ledger    Reloader
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	Timeout   time.Duration
}

// NewAnalyticsWarmupJob wires dependencies for the warmup handler. ledger may
// be nil when the analytics source is already current.
func NewAnalyticsWarmupJob(analytics Warmer, ledger Reloader, logger *slog.Logger, metrics *jobmetrics.Metrics) *AnalyticsWarmupJob {
	return &AnalyticsWarmupJob{Analytics: analytics, Ledger: ledger, Logger: logger, Metrics: metrics, Timeout: 20 * time.Second}
}

// Handle processes analytics warmup tasks.
func (j *AnalyticsWarmupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Analytics == nil {
		return errors.New("analytics warmup: handler not configured")
	}
	var payload AnalyticsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := metricsOrDefault(j.Metrics).Track(TaskAnalyticsWarmup)
	defer func() {
		err = tracker.End(err)
	}()

	logger := jobLogger(j.Logger, TaskAnalyticsWarmup).With(slog.String("trigger", payload.Trigger))
	started := time.Now()
	if j.Ledger != nil {
		if err := j.Ledger.Load(ctx); err != nil {
			logger.Error("reload ledger", slog.Any("error", err))
			return err
		}
	}

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}
	if err := j.Analytics.Warmup(ctx); err != nil {
		logger.Error("warm analytics", slog.Any("error", err))
		return err
	}
	logger.Info("completed analytics warmup", slog.Duration("duration", time.Since(started)))
	return nil
}
