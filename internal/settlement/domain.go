package settlement

import (
	"time"

	"github.com/atelier-ops/atelier-ops/internal/ledger"
	"github.com/atelier-ops/atelier-ops/internal/shared"
)

// Status enumerates the settlement lifecycle. Transitions only ever move
// forward: draft -> confirmed -> paid.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusConfirmed Status = "confirmed"
	StatusPaid      Status = "paid"
)

// Valid reports whether the status is known.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusConfirmed, StatusPaid:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether target is the legal next stage.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusDraft:
		return target == StatusConfirmed
	case StatusConfirmed:
		return target == StatusPaid
	default:
		return false
	}
}

// Settlement is a period-bounded statement of amounts owed to a partner
// across one or more projects. Totals are frozen at creation time; they are
// never recomputed from the live ledger afterwards.
type Settlement struct {
	ID            int64
	Number        string
	PartnerID     int64
	PeriodStart   *time.Time
	PeriodEnd     *time.Time
	Status        Status
	TotalRevenue  int64
	TotalExpense  int64
	NetProfit     int64
	PartnerAmount int64
	CompanyAmount int64
	Memo          string
	CreatedBy     int64
	ConfirmedAt   *time.Time
	PaidAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int64
	Lines         []Line
}

// Line is the immutable snapshot of one project's contribution at creation
// time. ShareRate is the rate in effect when the settlement was built, not a
// live reference.
type Line struct {
	ID            int64
	SettlementID  int64
	ProjectID     int64
	Revenue       int64
	Expense       int64
	NetProfit     int64
	ShareRate     int
	PartnerAmount int64
	CompanyAmount int64
}

// EligibleProject describes a project that currently qualifies for a new
// settlement: assigned to the partner with positive net profit.
type EligibleProject struct {
	ProjectID   int64
	ProjectName string
	ShareRate   int
	Totals      ledger.Totals
}

// CreateInput bundles parameters for building a settlement.
type CreateInput struct {
	PartnerID   int64
	PeriodStart *time.Time
	PeriodEnd   *time.Time
	ProjectIDs  []int64
	Memo        string
	CreatedBy   int64
}

// Validate checks structural requirements before any persistence happens.
func (in CreateInput) Validate() error {
	if in.PartnerID == 0 {
		return shared.NewValidationError("partnerId", "required")
	}
	if len(in.ProjectIDs) == 0 {
		return shared.NewValidationError("projectIds", "must not be empty")
	}
	seen := make(map[int64]bool, len(in.ProjectIDs))
	for _, id := range in.ProjectIDs {
		if id == 0 {
			return shared.NewValidationError("projectIds", "must not contain zero ids")
		}
		if seen[id] {
			return shared.NewValidationError("projectIds", "must not contain duplicates")
		}
		seen[id] = true
	}
	if in.PeriodStart != nil && in.PeriodEnd != nil && in.PeriodStart.After(*in.PeriodEnd) {
		return shared.NewValidationError("periodStart", "cannot be after periodEnd")
	}
	return nil
}

// EventType labels settlement change notifications.
type EventType string

const (
	EventCreated     EventType = "created"
	EventConfirmed   EventType = "confirmed"
	EventPaid        EventType = "paid"
	EventDeleted     EventType = "deleted"
	EventMemoUpdated EventType = "memo_updated"
)

// Event notifies callers that a settlement changed so their own cache layer
// can react. The engine keeps no cache state of its own.
type Event struct {
	ID           string
	Type         EventType
	SettlementID int64
	PartnerID    int64
	OccurredAt   time.Time
}
