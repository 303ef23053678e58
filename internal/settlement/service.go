package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/atelier-ops/atelier-ops/internal/ledger"
	"github.com/atelier-ops/atelier-ops/internal/period"
	"github.com/atelier-ops/atelier-ops/internal/project"
	"github.com/atelier-ops/atelier-ops/internal/share"
	"github.com/atelier-ops/atelier-ops/internal/shared"
)

// TxPort exposes the reads and writes available inside a settlement
// transaction. Implementations see one consistent snapshot per call to
// RepositoryPort.InTx.
type TxPort interface {
	ShareSettingsForPartner(ctx context.Context, partnerID int64) ([]project.ShareSetting, error)
	EntriesForProject(ctx context.Context, projectID int64, rng period.Range) ([]ledger.Entry, error)
	InsertSettlement(ctx context.Context, doc *Settlement) (int64, error)
	InsertLines(ctx context.Context, settlementID int64, lines []Line) error
	GetSettlementForUpdate(ctx context.Context, id int64) (*Settlement, error)
	UpdateStatus(ctx context.Context, id, version int64, change StatusChange) (bool, error)
	DeleteSettlement(ctx context.Context, id int64) error
}

// StatusChange carries a lifecycle transition write.
type StatusChange struct {
	Status      Status
	ConfirmedAt *time.Time
	PaidAt      *time.Time
}

// RepositoryPort defines data access for settlements.
type RepositoryPort interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx TxPort) error) error
	GetSettlement(ctx context.Context, id int64) (*Settlement, error)
	ListSettlements(ctx context.Context, partnerID int64) ([]Settlement, error)
	ListLines(ctx context.Context, settlementID int64) ([]Line, error)
	UpdateMemo(ctx context.Context, id int64, memo string) (*Settlement, error)
}

// ProjectsPort is the slice of the project directory the builder needs for
// read-only eligibility listings.
type ProjectsPort interface {
	GetProject(ctx context.Context, id int64) (*project.Project, error)
	ListShareSettingsByPartner(ctx context.Context, partnerID int64) ([]project.ShareSetting, error)
}

// EntriesPort reads ledger entries for eligibility listings outside a
// transaction. Reads here may be slightly stale; only Create needs the
// transactional snapshot.
type EntriesPort interface {
	ListEntriesForProjects(ctx context.Context, projectIDs []int64, rng period.Range) ([]ledger.Entry, error)
}

// EventsPort receives settlement change notifications. Delivery is
// best-effort and never fails the mutation.
type EventsPort interface {
	SettlementChanged(ctx context.Context, ev Event)
}

// AuditPort records lifecycle actions for the audit trail.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service builds settlements and drives their lifecycle.
type Service struct {
	repo     RepositoryPort
	projects ProjectsPort
	entries  EntriesPort
	events   EventsPort
	audit    AuditPort
	logger   *slog.Logger
	policy   ledger.Policy
	now      func() time.Time
}

// NewService constructs a Service instance. Events and audit may be nil.
func NewService(repo RepositoryPort, projects ProjectsPort, entries EntriesPort, events EventsPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		projects: projects,
		entries:  entries,
		events:   events,
		audit:    audit,
		logger:   logger,
		policy:   ledger.DefaultPolicy,
		now:      time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ListEligibleProjects returns the partner's projects that qualify for a new
// settlement over the period: assigned to the partner and showing positive
// net profit. A project with zero or negative net profit is never settled.
func (s *Service) ListEligibleProjects(ctx context.Context, partnerID int64, rng period.Range) ([]EligibleProject, error) {
	if partnerID == 0 {
		return nil, shared.NewValidationError("partnerId", "required")
	}
	settings, err := s.projects.ListShareSettingsByPartner(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	var eligible []EligibleProject
	for _, setting := range settings {
		if !setting.Configured() || setting.ShareRate == nil {
			continue
		}
		entries, err := s.entries.ListEntriesForProjects(ctx, []int64{setting.ProjectID}, rng)
		if err != nil {
			return nil, err
		}
		totals := ledger.Aggregate(entries, rng, s.policy)
		if totals.NetProfit <= 0 {
			continue
		}
		proj, err := s.projects.GetProject(ctx, setting.ProjectID)
		if err != nil {
			return nil, err
		}
		eligible = append(eligible, EligibleProject{
			ProjectID:   setting.ProjectID,
			ProjectName: proj.Name,
			ShareRate:   *setting.ShareRate,
			Totals:      totals,
		})
	}
	return eligible, nil
}

// Create materializes a settlement for the partner and period. Eligibility
// is re-validated inside the transaction, never trusted from the caller, and
// the parent document and all line snapshots are persisted atomically.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Settlement, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	rng := period.Range{Start: in.PeriodStart, End: in.PeriodEnd}
	now := s.now()

	var created *Settlement
	err := s.repo.InTx(ctx, func(ctx context.Context, tx TxPort) error {
		settings, err := tx.ShareSettingsForPartner(ctx, in.PartnerID)
		if err != nil {
			return err
		}
		byProject := make(map[int64]project.ShareSetting, len(settings))
		for _, setting := range settings {
			byProject[setting.ProjectID] = setting
		}

		doc := &Settlement{
			Number:      newNumber(now),
			PartnerID:   in.PartnerID,
			PeriodStart: in.PeriodStart,
			PeriodEnd:   in.PeriodEnd,
			Status:      StatusDraft,
			Memo:        in.Memo,
			CreatedBy:   in.CreatedBy,
			CreatedAt:   now,
			UpdatedAt:   now,
			Version:     1,
		}

		for _, projectID := range in.ProjectIDs {
			setting, ok := byProject[projectID]
			if !ok || !setting.Configured() {
				return &shared.EligibilityError{ProjectID: projectID, Reason: "not assigned to partner"}
			}
			if setting.ShareRate == nil {
				return &shared.EligibilityError{ProjectID: projectID, Reason: "no share rate configured"}
			}
			entries, err := tx.EntriesForProject(ctx, projectID, rng)
			if err != nil {
				return err
			}
			totals := ledger.Aggregate(entries, rng, s.policy)
			if totals.NetProfit <= 0 {
				return &shared.EligibilityError{ProjectID: projectID, Reason: "net profit is not positive"}
			}
			split, err := share.Compute(totals.NetProfit, setting.ShareRate)
			if err != nil {
				return err
			}
			doc.Lines = append(doc.Lines, Line{
				ProjectID:     projectID,
				Revenue:       totals.Revenue,
				Expense:       totals.Expense,
				NetProfit:     totals.NetProfit,
				ShareRate:     *setting.ShareRate,
				PartnerAmount: split.PartnerAmount,
				CompanyAmount: split.CompanyAmount,
			})
			doc.TotalRevenue += totals.Revenue
			doc.TotalExpense += totals.Expense
			doc.NetProfit += totals.NetProfit
			doc.PartnerAmount += split.PartnerAmount
			doc.CompanyAmount += split.CompanyAmount
		}

		id, err := tx.InsertSettlement(ctx, doc)
		if err != nil {
			return err
		}
		doc.ID = id
		for i := range doc.Lines {
			doc.Lines[i].SettlementID = id
		}
		if err := tx.InsertLines(ctx, id, doc.Lines); err != nil {
			return err
		}
		created = doc
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, in.CreatedBy, "settlement.create", created.ID, map[string]any{
		"partner_id": created.PartnerID,
		"net_profit": created.NetProfit,
		"projects":   len(created.Lines),
	})
	s.emit(ctx, EventCreated, created)
	return created, nil
}

// Confirm moves a draft settlement to confirmed and stamps confirmedAt. From
// this point the document's totals are final and auditable.
func (s *Service) Confirm(ctx context.Context, id, actorID int64) (*Settlement, error) {
	doc, err := s.transition(ctx, id, StatusConfirmed)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "settlement.confirm", id, nil)
	s.emit(ctx, EventConfirmed, doc)
	return doc, nil
}

// MarkPaid moves a confirmed settlement to paid and stamps paidAt.
func (s *Service) MarkPaid(ctx context.Context, id, actorID int64) (*Settlement, error) {
	doc, err := s.transition(ctx, id, StatusPaid)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "settlement.mark_paid", id, nil)
	s.emit(ctx, EventPaid, doc)
	return doc, nil
}

func (s *Service) transition(ctx context.Context, id int64, target Status) (*Settlement, error) {
	if id == 0 {
		return nil, shared.NewValidationError("settlementId", "required")
	}
	var doc *Settlement
	err := s.repo.InTx(ctx, func(ctx context.Context, tx TxPort) error {
		current, err := tx.GetSettlementForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !current.Status.CanTransitionTo(target) {
			return &shared.StateError{Current: string(current.Status), Requested: string(target)}
		}
		now := s.now()
		change := StatusChange{Status: target}
		switch target {
		case StatusConfirmed:
			change.ConfirmedAt = &now
		case StatusPaid:
			change.PaidAt = &now
		}
		ok, err := tx.UpdateStatus(ctx, id, current.Version, change)
		if err != nil {
			return err
		}
		if !ok {
			return &shared.ConcurrencyError{Entity: "settlement", ID: id}
		}
		current.Status = target
		current.Version++
		current.UpdatedAt = now
		if change.ConfirmedAt != nil {
			current.ConfirmedAt = change.ConfirmedAt
		}
		if change.PaidAt != nil {
			current.PaidAt = change.PaidAt
		}
		doc = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete removes a draft settlement together with its line snapshots.
// Confirmed and paid settlements are financial records and cannot be
// deleted.
func (s *Service) Delete(ctx context.Context, id, actorID int64) error {
	if id == 0 {
		return shared.NewValidationError("settlementId", "required")
	}
	var deleted *Settlement
	err := s.repo.InTx(ctx, func(ctx context.Context, tx TxPort) error {
		current, err := tx.GetSettlementForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return &shared.StateError{Current: string(current.Status), Requested: "deleted"}
		}
		if err := tx.DeleteSettlement(ctx, id); err != nil {
			return err
		}
		deleted = current
		return nil
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "settlement.delete", id, nil)
	s.emit(ctx, EventDeleted, deleted)
	return nil
}

// UpdateMemo changes the memo at any lifecycle stage; it never touches the
// financial fields.
func (s *Service) UpdateMemo(ctx context.Context, id int64, memo string) (*Settlement, error) {
	if id == 0 {
		return nil, shared.NewValidationError("settlementId", "required")
	}
	doc, err := s.repo.UpdateMemo(ctx, id, memo)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, EventMemoUpdated, doc)
	return doc, nil
}

// Get returns a settlement with its line snapshots.
func (s *Service) Get(ctx context.Context, id int64) (*Settlement, error) {
	doc, err := s.repo.GetSettlement(ctx, id)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.ListLines(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Lines = lines
	return doc, nil
}

// List returns a partner's settlements without lines.
func (s *Service) List(ctx context.Context, partnerID int64) ([]Settlement, error) {
	if partnerID == 0 {
		return nil, shared.NewValidationError("partnerId", "required")
	}
	return s.repo.ListSettlements(ctx, partnerID)
}

func (s *Service) emit(ctx context.Context, typ EventType, doc *Settlement) {
	if s.events == nil || doc == nil {
		return
	}
	s.events.SettlementChanged(ctx, Event{
		ID:           uuid.NewString(),
		Type:         typ,
		SettlementID: doc.ID,
		PartnerID:    doc.PartnerID,
		OccurredAt:   s.now(),
	})
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, settlementID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "settlement",
		EntityID: strconv.FormatInt(settlementID, 10),
		Meta:     meta,
		At:       s.now(),
	})
	if err != nil {
		s.logger.Warn("record settlement audit", slog.Any("error", err))
	}
}

func newNumber(now time.Time) string {
	return fmt.Sprintf("STL-%s-%s", now.Format("20060102"), uuid.NewString()[:8])
}
