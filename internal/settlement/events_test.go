package settlement

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/atelier-ops/atelier-ops/internal/reporting"
	"github.com/atelier-ops/atelier-ops/internal/shared"
)

func newEventTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestPublisherBumpsCacheAndDropsListKey(t *testing.T) {
	ctx := context.Background()
	client := newEventTestRedis(t)
	cache := reporting.NewCache(client, time.Minute)

	require.NoError(t, client.Set(ctx, shared.ReportCacheVersionKey, 3, 0).Err())
	require.NoError(t, client.Set(ctx, shared.SettlementListKey(7), "stale", 0).Err())

	var observed []string
	p := NewPublisher(nil, client, slog.Default())
	p.WithCache(cache)
	p.WithObserver(func(event string) { observed = append(observed, event) })

	p.SettlementChanged(ctx, Event{ID: "e1", Type: EventConfirmed, SettlementID: 11, PartnerID: 7, OccurredAt: time.Now()})

	ver, err := client.Get(ctx, shared.ReportCacheVersionKey).Int64()
	require.NoError(t, err)
	require.Equal(t, int64(4), ver)
	require.Equal(t, int64(0), client.Exists(ctx, shared.SettlementListKey(7)).Val())
	require.Equal(t, []string{"confirmed"}, observed)
}

func TestPublisherFallsBackToDirectBump(t *testing.T) {
	ctx := context.Background()
	client := newEventTestRedis(t)

	require.NoError(t, client.Set(ctx, shared.ReportCacheVersionKey, 1, 0).Err())

	p := NewPublisher(nil, client, slog.Default())
	p.SettlementChanged(ctx, Event{ID: "e2", Type: EventCreated, SettlementID: 12, PartnerID: 9, OccurredAt: time.Now()})

	ver, err := client.Get(ctx, shared.ReportCacheVersionKey).Int64()
	require.NoError(t, err)
	require.Equal(t, int64(2), ver)
}
