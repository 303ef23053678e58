package ledger

import (
	"context"
	"strings"

	"github.com/atelier-ops/atelier-ops/internal/period"
	"github.com/atelier-ops/atelier-ops/internal/shared"
)

// RepositoryPort defines data access for financial entries.
type RepositoryPort interface {
	CreateEntry(ctx context.Context, in CreateEntryInput) (*Entry, error)
	UpdateEntry(ctx context.Context, in UpdateEntryInput) (*Entry, error)
	DeleteEntry(ctx context.Context, id int64) error
	GetEntry(ctx context.Context, id int64) (*Entry, error)
	ListEntries(ctx context.Context, projectID int64, rng period.Range) ([]Entry, error)
}

// Service handles ledger business logic.
type Service struct {
	repo   RepositoryPort
	policy Policy
}

// NewService builds a Service instance using the default totals policy.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, policy: DefaultPolicy}
}

// CreateEntry validates and persists a new entry.
func (s *Service) CreateEntry(ctx context.Context, in CreateEntryInput) (*Entry, error) {
	if in.ProjectID == 0 {
		return nil, shared.NewValidationError("projectId", "required")
	}
	if !in.Type.Valid() {
		return nil, shared.NewValidationError("type", "must be revenue or expense")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, shared.NewValidationError("name", "required")
	}
	if in.Amount < 0 {
		return nil, shared.NewValidationError("amount", "must not be negative")
	}
	if in.Date.IsZero() {
		return nil, shared.NewValidationError("date", "required")
	}
	if in.Status == "" {
		in.Status = EntryStatusPlanned
	}
	if !in.Status.Valid() {
		return nil, shared.NewValidationError("status", "unknown status")
	}
	if in.PaymentMethod != "" && !in.PaymentMethod.Valid() {
		return nil, shared.NewValidationError("paymentMethod", "unknown payment method")
	}
	return s.repo.CreateEntry(ctx, in)
}

// UpdateEntry validates and applies an explicit mutation.
func (s *Service) UpdateEntry(ctx context.Context, in UpdateEntryInput) (*Entry, error) {
	if in.EntryID == 0 {
		return nil, shared.NewValidationError("entryId", "required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, shared.NewValidationError("name", "required")
	}
	if in.Amount < 0 {
		return nil, shared.NewValidationError("amount", "must not be negative")
	}
	if in.Date.IsZero() {
		return nil, shared.NewValidationError("date", "required")
	}
	if !in.Status.Valid() {
		return nil, shared.NewValidationError("status", "unknown status")
	}
	if in.PaymentMethod != "" && !in.PaymentMethod.Valid() {
		return nil, shared.NewValidationError("paymentMethod", "unknown payment method")
	}
	return s.repo.UpdateEntry(ctx, in)
}

// DeleteEntry removes an entry explicitly.
func (s *Service) DeleteEntry(ctx context.Context, id int64) error {
	if id == 0 {
		return shared.NewValidationError("entryId", "required")
	}
	return s.repo.DeleteEntry(ctx, id)
}

// GetEntry returns a single entry.
func (s *Service) GetEntry(ctx context.Context, id int64) (*Entry, error) {
	return s.repo.GetEntry(ctx, id)
}

// ListEntries returns a project's entries within the range.
func (s *Service) ListEntries(ctx context.Context, projectID int64, rng period.Range) ([]Entry, error) {
	if projectID == 0 {
		return nil, shared.NewValidationError("projectId", "required")
	}
	return s.repo.ListEntries(ctx, projectID, rng)
}

// ProjectTotals aggregates a project's ledger over the range.
func (s *Service) ProjectTotals(ctx context.Context, projectID int64, rng period.Range) (Totals, error) {
	entries, err := s.ListEntries(ctx, projectID, rng)
	if err != nil {
		return Totals{}, err
	}
	return Aggregate(entries, rng, s.policy), nil
}
