package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerVerify replays the persisted log and compares it with stored positions.
	TaskLedgerVerify = "ledger:verify"
	// TaskAnalyticsWarmup pre-builds the dashboard and the unfiltered report.
	TaskAnalyticsWarmup = "analytics:warmup"
)

// LedgerVerifyPayload describes a verification run.
type LedgerVerifyPayload struct {
	Trigger string `json:"trigger"`
}

// AnalyticsWarmupPayload describes a cache warm-up run.
type AnalyticsWarmupPayload struct {
	Trigger string `json:"trigger"`
}

// NewLedgerVerifyTask constructs a verification task.
func NewLedgerVerifyTask(trigger string) (*asynq.Task, error) {
	return newTask(TaskLedgerVerify, LedgerVerifyPayload{Trigger: trigger})
}

// NewAnalyticsWarmupTask constructs a warm-up task.
func NewAnalyticsWarmupTask(trigger string) (*asynq.Task, error) {
	return newTask(TaskAnalyticsWarmup, AnalyticsWarmupPayload{Trigger: trigger})
}

// NewTask builds the task registered under name with a default payload.
func NewTask(name, trigger string) (*asynq.Task, error) {
	switch name {
	case TaskLedgerVerify:
		return NewLedgerVerifyTask(trigger)
	case TaskAnalyticsWarmup:
		return NewAnalyticsWarmupTask(trigger)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTask, name)
}

func newTask(typ string, payload any) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typ, data), nil
}
