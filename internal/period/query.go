package period

import (
	"net/url"
	"strconv"
	"time"

	"github.com/atelier-ops/atelier-ops/internal/shared"
)

// FromQuery resolves a period selection from request query parameters.
// An absent periodType means no filtering.
func FromQuery(q url.Values) (Range, error) {
	t := Type(q.Get("periodType"))
	if t == "" {
		t = TypeAll
	}
	if !t.Valid() {
		return Range{}, shared.NewValidationError("periodType", "unknown period type")
	}

	var p Params
	var err error
	if p.Year, err = intParam(q, "year"); err != nil {
		return Range{}, err
	}
	if p.Quarter, err = intParam(q, "quarter"); err != nil {
		return Range{}, err
	}
	if p.Month, err = intParam(q, "month"); err != nil {
		return Range{}, err
	}
	if p.Start, err = dateParam(q, "start"); err != nil {
		return Range{}, err
	}
	if p.End, err = dateParam(q, "end"); err != nil {
		return Range{}, err
	}
	return Resolve(t, p)
}

func intParam(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, shared.NewValidationError(name, "must be a number")
	}
	return v, nil
}

func dateParam(q url.Values, name string) (*time.Time, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, shared.NewValidationError(name, "must be formatted YYYY-MM-DD")
	}
	return &v, nil
}
