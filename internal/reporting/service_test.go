package reporting

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/atelier-ops/atelier-ops/internal/ledger"
	"github.com/atelier-ops/atelier-ops/internal/period"
)

type mockRepo struct {
	projects        []SharedProject
	entries         map[int64][]ledger.Entry
	points          []MonthPoint
	summaries       []SettlementSummary
	projectCalls    int
	entryCalls      int
	monthlyCalls    int
	settlementCalls int
}

func (m *mockRepo) SharedProjects(ctx context.Context, partnerID int64) ([]SharedProject, error) {
	m.projectCalls++
	return m.projects, nil
}

func (m *mockRepo) ProjectEntries(ctx context.Context, projectID int64, rng period.Range) ([]ledger.Entry, error) {
	m.entryCalls++
	return m.entries[projectID], nil
}

func (m *mockRepo) MonthlyTotals(ctx context.Context, projectID int64, rng period.Range) ([]MonthPoint, error) {
	m.monthlyCalls++
	return m.points, nil
}

func (m *mockRepo) SettlementSummaries(ctx context.Context, partnerID int64, limit int) ([]SettlementSummary, error) {
	m.settlementCalls++
	return m.summaries, nil
}

func intPtr(v int) *int { return &v }

func newTestService(t *testing.T, repo *mockRepo) (*Service, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc := NewService(repo, NewCache(client, time.Minute), nil)
	svc.WithNow(func() time.Time {
		return time.Date(2025, time.May, 1, 12, 0, 0, 0, time.UTC)
	})
	return svc, client
}

func fixtureMockRepo() *mockRepo {
	day := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	return &mockRepo{
		projects: []SharedProject{
			{ProjectID: 1, ProjectName: "Album A", ShareRate: intPtr(50)},
			{ProjectID: 2, ProjectName: "Album B", ShareRate: intPtr(40)},
		},
		entries: map[int64][]ledger.Entry{
			1: {
				{ProjectID: 1, Type: ledger.EntryTypeRevenue, Amount: 1_000_000, Status: ledger.EntryStatusPaid, Date: day},
				{ProjectID: 1, Type: ledger.EntryTypeExpense, Amount: 400_000, Status: ledger.EntryStatusPaid, Date: day},
			},
			2: {
				{ProjectID: 2, Type: ledger.EntryTypeRevenue, Amount: 200_000, Status: ledger.EntryStatusPaid, Date: day},
				{ProjectID: 2, Type: ledger.EntryTypeExpense, Amount: 300_000, Status: ledger.EntryStatusPaid, Date: day},
			},
		},
		summaries: []SettlementSummary{
			{ID: 11, Number: "STL-20250401-abcd1234", Status: "confirmed", NetProfit: 600_000, PartnerAmount: 300_000},
		},
	}
}

func TestPartnerDashboard(t *testing.T) {
	ctx := context.Background()
	repo := fixtureMockRepo()
	svc, _ := newTestService(t, repo)

	dash, err := svc.PartnerDashboard(ctx, 7, period.Range{})
	require.NoError(t, err)
	require.Len(t, dash.Projects, 2)

	require.Equal(t, int64(600_000), dash.Projects[0].NetProfit)
	require.Equal(t, int64(300_000), dash.Projects[0].PartnerAmount)

	// Loss-making project keeps its figures but carries no split.
	require.Equal(t, int64(-100_000), dash.Projects[1].NetProfit)
	require.Zero(t, dash.Projects[1].PartnerAmount)
	require.Zero(t, dash.Projects[1].CompanyAmount)

	require.Equal(t, int64(1_200_000), dash.TotalRevenue)
	require.Equal(t, int64(700_000), dash.TotalExpense)
	require.Equal(t, int64(500_000), dash.TotalNetProfit)
	require.Equal(t, int64(300_000), dash.TotalPartnerAmount)
	require.Equal(t, "300,000", dash.FormattedPartnerAmount)
	require.Len(t, dash.Settlements, 1)
}

func TestPartnerDashboardCached(t *testing.T) {
	ctx := context.Background()
	repo := fixtureMockRepo()
	svc, _ := newTestService(t, repo)

	_, err := svc.PartnerDashboard(ctx, 7, period.Range{})
	require.NoError(t, err)
	first := repo.projectCalls

	dash, err := svc.PartnerDashboard(ctx, 7, period.Range{})
	require.NoError(t, err)
	require.Equal(t, first, repo.projectCalls)
	require.Equal(t, int64(300_000), dash.TotalPartnerAmount)
}

func TestPartnerDashboardVersionBumpInvalidates(t *testing.T) {
	ctx := context.Background()
	repo := fixtureMockRepo()
	svc, client := newTestService(t, repo)

	_, err := svc.PartnerDashboard(ctx, 7, period.Range{})
	require.NoError(t, err)
	first := repo.projectCalls

	cache := NewCache(client, time.Minute)
	require.NoError(t, cache.Bump(ctx))

	_, err = svc.PartnerDashboard(ctx, 7, period.Range{})
	require.NoError(t, err)
	require.Greater(t, repo.projectCalls, first)
}

func TestPartnerDashboardSeparateKeysPerPeriod(t *testing.T) {
	ctx := context.Background()
	repo := fixtureMockRepo()
	svc, _ := newTestService(t, repo)

	_, err := svc.PartnerDashboard(ctx, 7, period.Range{})
	require.NoError(t, err)
	first := repo.projectCalls

	rng, err := period.Resolve(period.TypeYear, period.Params{Year: 2025})
	require.NoError(t, err)
	_, err = svc.PartnerDashboard(ctx, 7, rng)
	require.NoError(t, err)
	require.Greater(t, repo.projectCalls, first)
}

func TestProjectMonthly(t *testing.T) {
	ctx := context.Background()
	repo := fixtureMockRepo()
	repo.points = []MonthPoint{
		{Month: "2025-02", Revenue: 300_000, Expense: 100_000, NetProfit: 200_000},
		{Month: "2025-03", Revenue: 700_000, Expense: 300_000, NetProfit: 400_000},
	}
	svc, _ := newTestService(t, repo)

	report, err := svc.ProjectMonthly(ctx, 1, period.Range{})
	require.NoError(t, err)
	require.Len(t, report.Points, 2)
	require.Equal(t, "2025-02", report.Points[0].Month)
	require.Equal(t, int64(400_000), report.Points[1].NetProfit)

	_, err = svc.ProjectMonthly(ctx, 1, period.Range{})
	require.NoError(t, err)
	require.Equal(t, 1, repo.monthlyCalls)
}

func TestWarmPartnerReportPopulatesCache(t *testing.T) {
	ctx := context.Background()
	repo := fixtureMockRepo()
	svc, _ := newTestService(t, repo)

	require.NoError(t, svc.WarmPartnerReport(ctx, 7))
	first := repo.projectCalls

	_, err := svc.PartnerDashboard(ctx, 7, period.Range{})
	require.NoError(t, err)
	require.Equal(t, first, repo.projectCalls)
}
