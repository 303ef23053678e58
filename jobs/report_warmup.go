package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/atelier-ops/atelier-ops/internal/jobs"
)

// ReportWarmupJob pre-populates report caches for partners with shared
// projects so the first dashboard hit after an idle period stays fast.
type ReportWarmupJob struct {
	Pool    *pgxpool.Pool
	Warmer  ReportWarmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewReportWarmupJob wires dependencies for the warmup handler.
func NewReportWarmupJob(pool *pgxpool.Pool, warmer ReportWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportWarmupJob {
	return &ReportWarmupJob{Pool: pool, Warmer: warmer, Logger: logger, Metrics: metrics}
}

// Handle processes TaskReportWarmup tasks.
func (j *ReportWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("report warmup: handler not configured")
	}
	var payload ReportWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskReportWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	started := time.Now()

	partnerIDs, err := j.resolvePartners(ctx, payload)
	if err != nil {
		resultErr = err
		logger.Error("load warmup partners", slog.Any("error", err))
		return resultErr
	}
	if len(partnerIDs) == 0 {
		logger.Info("no partners discovered for warmup")
		return resultErr
	}

	warmed := 0
	for _, partnerID := range partnerIDs {
		// Bound each partner so one slow warm cannot stall the whole run.
		partnerCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
		err := j.Warmer.WarmPartnerReport(partnerCtx, partnerID)
		cancel()
		if err != nil {
			resultErr = err
			logger.Error("warm partner report", slog.Int64("partner_id", partnerID), slog.Any("error", err))
			return resultErr
		}
		warmed++
	}
	j.metrics().AddCacheRefreshes("partner_report", warmed)

	logger.Info("completed report warmup", slog.Int("partners", warmed), slog.Duration("duration", time.Since(started)))
	return resultErr
}

func (j *ReportWarmupJob) resolvePartners(ctx context.Context, payload ReportWarmupPayload) ([]int64, error) {
	if payload.PartnerID > 0 {
		return []int64{payload.PartnerID}, nil
	}
	if j.Pool == nil {
		return nil, errors.New("report warmup: pool not configured")
	}
	rows, err := j.Pool.Query(ctx, `SELECT DISTINCT share_partner_id FROM project_share_settings WHERE share_partner_id IS NOT NULL ORDER BY share_partner_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var partnerIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		partnerIDs = append(partnerIDs, id)
	}
	return partnerIDs, rows.Err()
}

func (j *ReportWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportWarmup))
	}
	return slog.Default().With(slog.String("job", TaskReportWarmup))
}

func (j *ReportWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
