package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	jobmetrics "github.com/atelier-ops/atelier-ops/internal/jobs"
	"github.com/atelier-ops/atelier-ops/internal/shared"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ReportWarmer recomputes and caches a partner's report payloads. The
// reporting service implements this.
type ReportWarmer interface {
	WarmPartnerReport(ctx context.Context, partnerID int64) error
}

// SettlementRefreshJob rebuilds partner-facing caches after a settlement is
// created, transitioned or deleted. The HTTP path already dropped the stale
// keys; this job repopulates them off the request path.
type SettlementRefreshJob struct {
	Redis   *redis.Client
	Warmer  ReportWarmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewSettlementRefreshJob wires dependencies for the refresh handler.
func NewSettlementRefreshJob(redisClient *redis.Client, warmer ReportWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *SettlementRefreshJob {
	return &SettlementRefreshJob{Redis: redisClient, Warmer: warmer, Logger: logger, Metrics: metrics}
}

// Handle processes TaskSettlementRefresh tasks.
func (j *SettlementRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("settlement refresh: handler not configured")
	}
	var payload SettlementRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.PartnerID == 0 {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskSettlementRefresh)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(
		slog.String("event_type", payload.EventType),
		slog.Int64("settlement_id", payload.SettlementID),
		slog.Int64("partner_id", payload.PartnerID),
	)

	if j.Redis != nil {
		if err := j.Redis.Del(ctx, shared.SettlementListKey(payload.PartnerID)).Err(); err != nil {
			resultErr = err
			logger.Error("drop settlement list cache", slog.Any("error", err))
			return resultErr
		}
	}
	if j.Warmer != nil {
		if err := j.Warmer.WarmPartnerReport(ctx, payload.PartnerID); err != nil {
			resultErr = err
			logger.Error("warm partner report", slog.Any("error", err))
			return resultErr
		}
		j.metrics().AddCacheRefreshes("partner_report", 1)
	}

	logger.Info("settlement caches refreshed")
	return resultErr
}

func (j *SettlementRefreshJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSettlementRefresh))
	}
	return slog.Default().With(slog.String("job", TaskSettlementRefresh))
}

func (j *SettlementRefreshJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
