package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atelier-ops/atelier-ops/internal/period"
)

func entry(t EntryType, amount int64, status EntryStatus, date time.Time) Entry {
	return Entry{ProjectID: 1, Type: t, Amount: amount, Status: status, Date: date}
}

func TestAggregateSumsByType(t *testing.T) {
	day := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	entries := []Entry{
		entry(EntryTypeRevenue, 1_000_000, EntryStatusPaid, day),
		entry(EntryTypeRevenue, 250_000, EntryStatusPlanned, day),
		entry(EntryTypeExpense, 400_000, EntryStatusPaid, day),
	}

	totals := Aggregate(entries, period.Range{}, DefaultPolicy)
	require.Equal(t, int64(1_250_000), totals.Revenue)
	require.Equal(t, int64(400_000), totals.Expense)
	require.Equal(t, int64(850_000), totals.NetProfit)
}

func TestAggregateNetProfitMayBeNegative(t *testing.T) {
	day := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	entries := []Entry{
		entry(EntryTypeRevenue, 200_000, EntryStatusPaid, day),
		entry(EntryTypeExpense, 300_000, EntryStatusPaid, day),
	}

	totals := Aggregate(entries, period.Range{}, DefaultPolicy)
	require.Equal(t, int64(-100_000), totals.NetProfit)
}

func TestAggregateCountsCanceledByDefault(t *testing.T) {
	day := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	entries := []Entry{
		entry(EntryTypeRevenue, 100_000, EntryStatusCanceled, day),
		entry(EntryTypeExpense, 30_000, EntryStatusCanceled, day),
	}

	totals := Aggregate(entries, period.Range{}, DefaultPolicy)
	require.Equal(t, int64(100_000), totals.Revenue)
	require.Equal(t, int64(30_000), totals.Expense)

	strict := Aggregate(entries, period.Range{}, Policy{ExcludeCanceled: true})
	require.Equal(t, Totals{}, strict)
}

func TestAggregateFiltersByInclusiveRange(t *testing.T) {
	entries := []Entry{
		entry(EntryTypeRevenue, 100, EntryStatusPaid, time.Date(2025, time.May, 31, 0, 0, 0, 0, time.UTC)),
		entry(EntryTypeRevenue, 200, EntryStatusPaid, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)),
		entry(EntryTypeRevenue, 400, EntryStatusPaid, time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)),
		entry(EntryTypeRevenue, 800, EntryStatusPaid, time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)),
	}

	rng, err := period.Resolve(period.TypeMonth, period.Params{Year: 2025, Month: 6})
	require.NoError(t, err)

	totals := Aggregate(entries, rng, DefaultPolicy)
	require.Equal(t, int64(600), totals.Revenue)
}

func TestAggregateEmpty(t *testing.T) {
	totals := Aggregate(nil, period.Range{}, DefaultPolicy)
	require.Equal(t, Totals{}, totals)
}
