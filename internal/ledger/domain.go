package ledger

import (
	"time"
)

// EntryType classifies an entry as money in or money out.
type EntryType string

const (
	EntryTypeRevenue EntryType = "revenue"
	EntryTypeExpense EntryType = "expense"
)

// Valid reports whether the entry type is known.
func (t EntryType) Valid() bool {
	return t == EntryTypeRevenue || t == EntryTypeExpense
}

// EntryStatus annotates display state; it never gates financial totals.
type EntryStatus string

const (
	EntryStatusPlanned  EntryStatus = "planned"
	EntryStatusPaid     EntryStatus = "paid"
	EntryStatusCanceled EntryStatus = "canceled"
)

// Valid reports whether the entry status is known.
func (s EntryStatus) Valid() bool {
	switch s {
	case EntryStatusPlanned, EntryStatusPaid, EntryStatusCanceled:
		return true
	default:
		return false
	}
}

// PaymentMethod describes how a payout is taxed. It only drives the
// estimated-payout helper on entry forms, never stored totals.
type PaymentMethod string

const (
	PaymentMethodVATIncluded   PaymentMethod = "vat_included"
	PaymentMethodTaxFree       PaymentMethod = "tax_free"
	PaymentMethodWithholding   PaymentMethod = "withholding"
	PaymentMethodActualPayment PaymentMethod = "actual_payment"
)

// Valid reports whether the payment method is known.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodVATIncluded, PaymentMethodTaxFree, PaymentMethodWithholding, PaymentMethodActualPayment:
		return true
	default:
		return false
	}
}

// Entry is a single cash-flow record. Amounts are non-negative integers in
// the smallest currency unit.
type Entry struct {
	ID            int64
	ProjectID     int64
	Type          EntryType
	Category      string
	Name          string
	Amount        int64
	Date          time.Time
	Status        EntryStatus
	PartnerID     *int64
	PaymentMethod PaymentMethod
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CreateEntryInput carries a new entry.
type CreateEntryInput struct {
	ProjectID     int64
	Type          EntryType
	Category      string
	Name          string
	Amount        int64
	Date          time.Time
	Status        EntryStatus
	PartnerID     *int64
	PaymentMethod PaymentMethod
}

// UpdateEntryInput carries an explicit mutation of an existing entry.
type UpdateEntryInput struct {
	EntryID       int64
	Category      string
	Name          string
	Amount        int64
	Date          time.Time
	Status        EntryStatus
	PartnerID     *int64
	PaymentMethod PaymentMethod
}
