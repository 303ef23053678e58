package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/atelier-ops/atelier-ops/internal/ledger"
	"github.com/atelier-ops/atelier-ops/internal/period"
	"github.com/atelier-ops/atelier-ops/internal/share"
	"github.com/atelier-ops/atelier-ops/internal/shared"
)

// SharedProject is a project assigned to a partner with a configured rate.
type SharedProject struct {
	ProjectID   int64  `json:"projectId"`
	ProjectName string `json:"projectName"`
	ShareRate   *int   `json:"shareRate"`
}

// ProjectReport carries one project's figures on the partner dashboard.
type ProjectReport struct {
	ProjectID     int64  `json:"projectId"`
	ProjectName   string `json:"projectName"`
	ShareRate     int    `json:"shareRate"`
	Revenue       int64  `json:"revenue"`
	Expense       int64  `json:"expense"`
	NetProfit     int64  `json:"netProfit"`
	PartnerAmount int64  `json:"partnerAmount"`
	CompanyAmount int64  `json:"companyAmount"`
}

// SettlementSummary is the dashboard's compact settlement row.
type SettlementSummary struct {
	ID            int64     `json:"id"`
	Number        string    `json:"number"`
	Status        string    `json:"status"`
	NetProfit     int64     `json:"netProfit"`
	PartnerAmount int64     `json:"partnerAmount"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Dashboard aggregates a partner's shared projects and recent settlements
// over a period. Amounts are live reads; settled documents keep their own
// immutable snapshots.
type Dashboard struct {
	PartnerID              int64               `json:"partnerId"`
	PeriodStart            *time.Time          `json:"periodStart,omitempty"`
	PeriodEnd              *time.Time          `json:"periodEnd,omitempty"`
	Projects               []ProjectReport     `json:"projects"`
	TotalRevenue           int64               `json:"totalRevenue"`
	TotalExpense           int64               `json:"totalExpense"`
	TotalNetProfit         int64               `json:"totalNetProfit"`
	TotalPartnerAmount     int64               `json:"totalPartnerAmount"`
	TotalCompanyAmount     int64               `json:"totalCompanyAmount"`
	FormattedPartnerAmount string              `json:"formattedPartnerAmount"`
	Settlements            []SettlementSummary `json:"settlements"`
	GeneratedAt            time.Time           `json:"generatedAt"`
}

// MonthPoint is one month of a project's revenue and expense.
type MonthPoint struct {
	Month     string `json:"month"`
	Revenue   int64  `json:"revenue"`
	Expense   int64  `json:"expense"`
	NetProfit int64  `json:"netProfit"`
}

// MonthlyReport is a project's month-by-month breakdown.
type MonthlyReport struct {
	ProjectID   int64        `json:"projectId"`
	Points      []MonthPoint `json:"points"`
	GeneratedAt time.Time    `json:"generatedAt"`
}

// ReportsPort defines the reads the reporting service needs.
type ReportsPort interface {
	SharedProjects(ctx context.Context, partnerID int64) ([]SharedProject, error)
	ProjectEntries(ctx context.Context, projectID int64, rng period.Range) ([]ledger.Entry, error)
	MonthlyTotals(ctx context.Context, projectID int64, rng period.Range) ([]MonthPoint, error)
	SettlementSummaries(ctx context.Context, partnerID int64, limit int) ([]SettlementSummary, error)
}

const recentSettlementLimit = 10

// Service computes partner dashboards and project breakdowns with a
// versioned cache in front.
type Service struct {
	repo    ReportsPort
	cache   *Cache
	logger  *slog.Logger
	group   singleflight.Group
	printer *message.Printer
	policy  ledger.Policy
	now     func() time.Time
}

// NewService constructs a Service instance. Cache may be nil, in which case
// every read recomputes.
func NewService(repo ReportsPort, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		cache:   cache,
		logger:  logger,
		printer: message.NewPrinter(language.Korean),
		policy:  ledger.DefaultPolicy,
		now:     time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// PartnerDashboard returns the partner's dashboard for the period.
// Concurrent identical requests share one computation.
func (s *Service) PartnerDashboard(ctx context.Context, partnerID int64, rng period.Range) (*Dashboard, error) {
	if partnerID == 0 {
		return nil, shared.NewValidationError("partnerId", "required")
	}
	key, err := s.cache.BuildKey(ctx, keyDashboard(partnerID, tokenFor(rng)))
	if err != nil {
		return nil, err
	}
	var dash Dashboard
	err = s.fetchShared(ctx, key, &dash, func(ctx context.Context) (interface{}, error) {
		return s.buildDashboard(ctx, partnerID, rng)
	})
	if err != nil {
		return nil, err
	}
	return &dash, nil
}

// ProjectMonthly returns a project's monthly revenue and expense breakdown.
func (s *Service) ProjectMonthly(ctx context.Context, projectID int64, rng period.Range) (*MonthlyReport, error) {
	if projectID == 0 {
		return nil, shared.NewValidationError("projectId", "required")
	}
	key, err := s.cache.BuildKey(ctx, keyMonthly(projectID, tokenFor(rng)))
	if err != nil {
		return nil, err
	}
	var report MonthlyReport
	err = s.fetchShared(ctx, key, &report, func(ctx context.Context) (interface{}, error) {
		points, err := s.repo.MonthlyTotals(ctx, projectID, rng)
		if err != nil {
			return nil, err
		}
		return &MonthlyReport{ProjectID: projectID, Points: points, GeneratedAt: s.now()}, nil
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// WarmPartnerReport recomputes and caches the partner's all-time dashboard.
// Background jobs call this after settlement changes.
func (s *Service) WarmPartnerReport(ctx context.Context, partnerID int64) error {
	_, err := s.PartnerDashboard(ctx, partnerID, period.Range{})
	return err
}

func (s *Service) buildDashboard(ctx context.Context, partnerID int64, rng period.Range) (*Dashboard, error) {
	projects, err := s.repo.SharedProjects(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	dash := &Dashboard{
		PartnerID:   partnerID,
		PeriodStart: rng.Start,
		PeriodEnd:   rng.End,
		GeneratedAt: s.now(),
	}

	for _, proj := range projects {
		if proj.ShareRate == nil {
			continue
		}
		entries, err := s.repo.ProjectEntries(ctx, proj.ProjectID, rng)
		if err != nil {
			return nil, err
		}
		totals := ledger.Aggregate(entries, rng, s.policy)

		report := ProjectReport{
			ProjectID:   proj.ProjectID,
			ProjectName: proj.ProjectName,
			ShareRate:   *proj.ShareRate,
			Revenue:     totals.Revenue,
			Expense:     totals.Expense,
			NetProfit:   totals.NetProfit,
		}
		// Shares apply to positive profit only; a loss-making project
		// contributes figures but no split.
		if totals.NetProfit > 0 {
			split, err := share.Compute(totals.NetProfit, proj.ShareRate)
			if err != nil {
				return nil, err
			}
			report.PartnerAmount = split.PartnerAmount
			report.CompanyAmount = split.CompanyAmount
		}
		dash.Projects = append(dash.Projects, report)
		dash.TotalRevenue += report.Revenue
		dash.TotalExpense += report.Expense
		dash.TotalNetProfit += report.NetProfit
		dash.TotalPartnerAmount += report.PartnerAmount
		dash.TotalCompanyAmount += report.CompanyAmount
	}

	settlements, err := s.repo.SettlementSummaries(ctx, partnerID, recentSettlementLimit)
	if err != nil {
		return nil, err
	}
	dash.Settlements = settlements
	dash.FormattedPartnerAmount = s.printer.Sprintf("%d", dash.TotalPartnerAmount)
	return dash, nil
}

// fetchShared collapses concurrent cache misses for the same key into one
// loader execution.
func (s *Service) fetchShared(ctx context.Context, key string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	resultChan := s.group.DoChan(key, func() (interface{}, error) {
		var raw json.RawMessage
		err := s.cache.FetchJSON(ctx, key, &raw, loader)
		return raw, err
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return res.Err
		}
		raw, ok := res.Val.(json.RawMessage)
		if !ok {
			return fmt.Errorf("reporting: unexpected cache payload for %s", key)
		}
		return json.Unmarshal(raw, dest)
	}
}

type rangeToken string

func tokenFor(rng period.Range) rangeToken {
	if rng.Unbounded() {
		return "all"
	}
	start, end := "open", "open"
	if rng.Start != nil {
		start = rng.Start.Format("2006-01-02")
	}
	if rng.End != nil {
		end = rng.End.Format("2006-01-02")
	}
	return rangeToken(start + ":" + end)
}
