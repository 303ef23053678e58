package settlement

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/atelier-ops/atelier-ops/internal/shared"
	"github.com/atelier-ops/atelier-ops/jobs"
)

// CacheBumper invalidates the report cache and notifies other instances.
// The reporting cache implements this.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// Publisher fans settlement change events out to the caller-side cache
// layer: it bumps the report cache version, drops the cached partner list
// and enqueues a background refresh task. All of it is best-effort; a cache
// that lags never blocks a settlement mutation.
type Publisher struct {
	tasks    *asynq.Client
	redis    *redis.Client
	cache    CacheBumper
	logger   *slog.Logger
	observer func(event string)
}

// NewPublisher constructs a Publisher. Both clients may be nil, in which
// case the corresponding fanout is skipped.
func NewPublisher(tasks *asynq.Client, redisClient *redis.Client, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{tasks: tasks, redis: redisClient, logger: logger}
}

// WithObserver registers a callback invoked once per published event,
// typically to feed a metrics counter.
func (p *Publisher) WithObserver(fn func(event string)) {
	if p != nil {
		p.observer = fn
	}
}

// WithCache routes version invalidation through the report cache so the bump
// is also broadcast to subscribed instances.
func (p *Publisher) WithCache(cache CacheBumper) {
	if p != nil {
		p.cache = cache
	}
}

// SettlementChanged implements EventsPort.
func (p *Publisher) SettlementChanged(ctx context.Context, ev Event) {
	if p == nil {
		return
	}
	if p.observer != nil {
		p.observer(string(ev.Type))
	}
	if p.cache != nil {
		if err := p.cache.Bump(ctx); err != nil {
			p.logger.Warn("bump report cache version", slog.Any("error", err))
		}
	} else if p.redis != nil {
		if err := p.redis.Incr(ctx, shared.ReportCacheVersionKey).Err(); err != nil {
			p.logger.Warn("bump report cache version", slog.Any("error", err))
		}
	}
	if p.redis != nil {
		if err := p.redis.Del(ctx, shared.SettlementListKey(ev.PartnerID)).Err(); err != nil {
			p.logger.Warn("drop settlement list cache", slog.Any("error", err))
		}
	}
	if p.tasks != nil {
		task, err := jobs.NewSettlementRefreshTask(jobs.SettlementRefreshPayload{
			EventID:      ev.ID,
			EventType:    string(ev.Type),
			SettlementID: ev.SettlementID,
			PartnerID:    ev.PartnerID,
		})
		if err != nil {
			p.logger.Warn("build settlement refresh task", slog.Any("error", err))
			return
		}
		if _, err := p.tasks.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault)); err != nil {
			p.logger.Warn("enqueue settlement refresh", slog.Any("error", err), slog.Int64("settlement_id", ev.SettlementID))
		}
	}
}
