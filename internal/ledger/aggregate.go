package ledger

import (
	"github.com/atelier-ops/atelier-ops/internal/period"
)

// Totals summarises a set of entries. NetProfit may be negative.
type Totals struct {
	Revenue   int64
	Expense   int64
	NetProfit int64
}

// Policy controls which entries count toward totals. The stored behavior
// counts canceled entries exactly like planned and paid ones; status only
// annotates display state. ExcludeCanceled is the single override point
// should that rule ever change.
type Policy struct {
	ExcludeCanceled bool
}

// DefaultPolicy mirrors the stored behavior: canceled entries count.
var DefaultPolicy = Policy{}

// Aggregate sums entries into revenue, expense and net profit, retaining
// only entries whose date falls inside the inclusive range. It is a pure
// function over the supplied collection.
func Aggregate(entries []Entry, rng period.Range, policy Policy) Totals {
	var totals Totals
	for _, e := range entries {
		if policy.ExcludeCanceled && e.Status == EntryStatusCanceled {
			continue
		}
		if !rng.Unbounded() && !rng.Contains(e.Date) {
			continue
		}
		switch e.Type {
		case EntryTypeRevenue:
			totals.Revenue += e.Amount
		case EntryTypeExpense:
			totals.Expense += e.Amount
		}
	}
	totals.NetProfit = totals.Revenue - totals.Expense
	return totals
}
