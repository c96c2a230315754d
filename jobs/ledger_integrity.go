package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/manara-erp/manara/internal/jobs"
	"github.com/manara-erp/manara/internal/store"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Verifier reloads persisted ledger state and compares it with a replay.
type Verifier interface {
	Load(ctx context.Context) error
	Verify() []store.Mismatch
}

// LedgerVerifyJob checks that stored stock quantities and safe balances are
// reproducible from opening positions and the log.
type LedgerVerifyJob struct {
	Ledger  Verifier
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLedgerVerifyJob wires dependencies for the verification handler.
func NewLedgerVerifyJob(ledger Verifier, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerVerifyJob {
	return &LedgerVerifyJob{Ledger: ledger, Logger: logger, Metrics: metrics}
}

// Handle processes ledger verification tasks. Mismatches are reported, not
// retried.
func (j *LedgerVerifyJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Ledger == nil {
		return errors.New("ledger verify: handler not configured")
	}
	var payload LedgerVerifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := metricsOrDefault(j.Metrics).Track(TaskLedgerVerify)
	defer func() {
		err = tracker.End(err)
	}()

	logger := jobLogger(j.Logger, TaskLedgerVerify).With(slog.String("trigger", payload.Trigger))
	started := time.Now()
	if err := j.Ledger.Load(ctx); err != nil {
		logger.Error("reload ledger", slog.Any("error", err))
		return err
	}

	mismatches := j.Ledger.Verify()
	byKind := make(map[string]int)
	for _, m := range mismatches {
		byKind[m.Kind]++
		logger.Warn("ledger mismatch",
			slog.String("kind", m.Kind),
			slog.String("id", m.ID),
			slog.String("warehouse_id", m.WarehouseID),
			slog.String("current", m.Current),
			slog.String("replayed", m.Replayed))
	}
	for kind, n := range byKind {
		metricsOrDefault(j.Metrics).AddMismatches(kind, n)
	}
	logger.Info("ledger verification completed",
		slog.Int("mismatches", len(mismatches)),
		slog.Duration("duration", time.Since(started)))
	return nil
}

func metricsOrDefault(m *jobmetrics.Metrics) *jobmetrics.Metrics {
	if m != nil {
		return m
	}
	return defaultJobMetrics
}

func jobLogger(logger *slog.Logger, job string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("job", job))
}
