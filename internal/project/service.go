package project

import (
	"context"

	"github.com/atelier-ops/atelier-ops/internal/ledger"
	"github.com/atelier-ops/atelier-ops/internal/period"
	"github.com/atelier-ops/atelier-ops/internal/shared"
)

// RepositoryPort defines data access for the project directory.
type RepositoryPort interface {
	GetProject(ctx context.Context, id int64) (*Project, error)
	GetShareSetting(ctx context.Context, projectID int64) (ShareSetting, error)
	UpsertShareSetting(ctx context.Context, in UpdateShareSettingInput) (ShareSetting, error)
	ListShareSettingsByPartner(ctx context.Context, partnerID int64) ([]ShareSetting, error)
}

// LedgerPort is the slice of the ledger service the live read path needs.
type LedgerPort interface {
	ProjectTotals(ctx context.Context, projectID int64, rng period.Range) (ledger.Totals, error)
}

// Service manages project share configuration and the live finance summary.
type Service struct {
	repo   RepositoryPort
	ledger LedgerPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, ledger LedgerPort) *Service {
	return &Service{repo: repo, ledger: ledger}
}

// GetProject resolves the directory record.
func (s *Service) GetProject(ctx context.Context, id int64) (*Project, error) {
	return s.repo.GetProject(ctx, id)
}

// GetShareSetting returns the current share configuration.
func (s *Service) GetShareSetting(ctx context.Context, projectID int64) (ShareSetting, error) {
	if projectID == 0 {
		return ShareSetting{}, shared.NewValidationError("projectId", "required")
	}
	return s.repo.GetShareSetting(ctx, projectID)
}

// UpdateShareSetting validates and stores the share configuration. Setting
// the partner to nil makes the project settlement-ineligible regardless of
// any stale rate.
func (s *Service) UpdateShareSetting(ctx context.Context, in UpdateShareSettingInput) (ShareSetting, error) {
	if in.ProjectID == 0 {
		return ShareSetting{}, shared.NewValidationError("projectId", "required")
	}
	if in.ShareRate != nil && (*in.ShareRate < 0 || *in.ShareRate > 100) {
		return ShareSetting{}, shared.NewValidationError("shareRate", "must be between 0 and 100")
	}
	if _, err := s.repo.GetProject(ctx, in.ProjectID); err != nil {
		return ShareSetting{}, err
	}
	return s.repo.UpsertShareSetting(ctx, in)
}

// FinanceSummary composes the directory record, share setting and a live
// ledger aggregate. Totals are recomputed on every read; settlements freeze
// their own snapshots instead of reusing this path.
func (s *Service) FinanceSummary(ctx context.Context, projectID int64, rng period.Range) (*FinanceSummary, error) {
	proj, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	setting, err := s.repo.GetShareSetting(ctx, projectID)
	if err != nil {
		return nil, err
	}
	totals, err := s.ledger.ProjectTotals(ctx, projectID, rng)
	if err != nil {
		return nil, err
	}
	return &FinanceSummary{Project: *proj, Setting: setting, Totals: totals}, nil
}
