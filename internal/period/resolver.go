// Package period resolves user-selected period descriptors into concrete
// inclusive date intervals used by ledger aggregation and settlements.
package period

import (
	"time"

	"github.com/atelier-ops/atelier-ops/internal/shared"
)

// Type enumerates supported period descriptors.
type Type string

const (
	TypeAll     Type = "all"
	TypeYear    Type = "year"
	TypeQuarter Type = "quarter"
	TypeMonth   Type = "month"
	TypeCustom  Type = "custom"
)

// Valid reports whether the period type is known.
func (t Type) Valid() bool {
	switch t {
	case TypeAll, TypeYear, TypeQuarter, TypeMonth, TypeCustom:
		return true
	default:
		return false
	}
}

// Params carries the raw selection for a period type. Unused fields are
// ignored for the given type.
type Params struct {
	Year    int
	Quarter int
	Month   int
	Start   *time.Time
	End     *time.Time
}

// Range is an inclusive calendar-date interval. A nil bound means unbounded
// on that side; a zero Range means no filtering at all.
type Range struct {
	Start *time.Time
	End   *time.Time
}

// Unbounded reports whether the range applies no filtering.
func (r Range) Unbounded() bool {
	return r.Start == nil && r.End == nil
}

// Contains reports whether the date falls within the inclusive interval.
func (r Range) Contains(d time.Time) bool {
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	if r.Start != nil && day.Before(dayOf(*r.Start)) {
		return false
	}
	if r.End != nil && day.After(dayOf(*r.End)) {
		return false
	}
	return true
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

const (
	minYear = 1900
	maxYear = 9999
)

// Resolve turns a period descriptor into a concrete inclusive interval.
// Invalid selections are rejected, never clamped.
func Resolve(t Type, p Params) (Range, error) {
	switch t {
	case TypeAll:
		return Range{}, nil
	case TypeYear:
		if err := validateYear(p.Year); err != nil {
			return Range{}, err
		}
		return yearRange(p.Year), nil
	case TypeQuarter:
		if err := validateYear(p.Year); err != nil {
			return Range{}, err
		}
		if p.Quarter < 1 || p.Quarter > 4 {
			return Range{}, shared.NewValidationError("quarter", "must be between 1 and 4")
		}
		return quarterRange(p.Year, p.Quarter), nil
	case TypeMonth:
		if err := validateYear(p.Year); err != nil {
			return Range{}, err
		}
		if p.Month < 1 || p.Month > 12 {
			return Range{}, shared.NewValidationError("month", "must be between 1 and 12")
		}
		return monthRange(p.Year, p.Month), nil
	case TypeCustom:
		// A missing bound degrades to unbounded on that side.
		rng := Range{}
		if p.Start != nil {
			s := dayOf(*p.Start)
			rng.Start = &s
		}
		if p.End != nil {
			e := dayOf(*p.End)
			rng.End = &e
		}
		if rng.Start != nil && rng.End != nil && rng.Start.After(*rng.End) {
			return Range{}, shared.NewValidationError("start", "cannot be after end")
		}
		return rng, nil
	default:
		return Range{}, shared.NewValidationError("periodType", "unknown period type")
	}
}

func validateYear(year int) error {
	if year < minYear || year > maxYear {
		return shared.NewValidationError("year", "out of range")
	}
	return nil
}

func yearRange(year int) Range {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	return Range{Start: &start, End: &end}
}

func quarterRange(year, quarter int) Range {
	startMonth := time.Month((quarter-1)*3 + 1)
	start := time.Date(year, startMonth, 1, 0, 0, 0, 0, time.UTC)
	// Day 0 of the month after the quarter is its last calendar day.
	end := time.Date(year, startMonth+3, 0, 0, 0, 0, 0, time.UTC)
	return Range{Start: &start, End: &end}
}

func monthRange(year, month int) Range {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC)
	return Range{Start: &start, End: &end}
}
