package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSettlementRefresh rebuilds caches after a settlement changes.
	TaskSettlementRefresh = "settlement:refresh"
	// TaskReportWarmup pre-populates partner report caches.
	TaskReportWarmup = "report:warmup"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// SettlementRefreshPayload identifies the settlement change that triggered
// the refresh.
type SettlementRefreshPayload struct {
	EventID      string `json:"eventId"`
	EventType    string `json:"eventType"`
	SettlementID int64  `json:"settlementId"`
	PartnerID    int64  `json:"partnerId"`
}

// NewSettlementRefreshTask constructs an Asynq task.
func NewSettlementRefreshTask(payload SettlementRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSettlementRefresh, data), nil
}

// ReportWarmupPayload scopes a warmup run. An empty PartnerID warms every
// partner with at least one shared project.
type ReportWarmupPayload struct {
	PartnerID int64 `json:"partnerId,omitempty"`
}

// NewReportWarmupTask constructs an Asynq task.
func NewReportWarmupTask(payload ReportWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportWarmup, data), nil
}

// IdempotencyCleanupPayload sets the retention window in hours. Zero means
// the default of 48 hours.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retentionHours,omitempty"`
}

// NewIdempotencyCleanupTask constructs an Asynq task.
func NewIdempotencyCleanupTask(payload IdempotencyCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
