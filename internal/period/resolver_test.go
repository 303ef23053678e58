package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atelier-ops/atelier-ops/internal/shared"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveAll(t *testing.T) {
	rng, err := Resolve(TypeAll, Params{})
	require.NoError(t, err)
	require.True(t, rng.Unbounded())
}

func TestResolveYear(t *testing.T) {
	rng, err := Resolve(TypeYear, Params{Year: 2026})
	require.NoError(t, err)
	require.Equal(t, date(2026, time.January, 1), *rng.Start)
	require.Equal(t, date(2026, time.December, 31), *rng.End)
}

func TestResolveQuarter(t *testing.T) {
	cases := []struct {
		year, quarter int
		start, end    time.Time
	}{
		{2024, 1, date(2024, time.January, 1), date(2024, time.March, 31)},
		{2024, 2, date(2024, time.April, 1), date(2024, time.June, 30)},
		{2024, 3, date(2024, time.July, 1), date(2024, time.September, 30)},
		{2024, 4, date(2024, time.October, 1), date(2024, time.December, 31)},
	}
	for _, tc := range cases {
		rng, err := Resolve(TypeQuarter, Params{Year: tc.year, Quarter: tc.quarter})
		require.NoError(t, err)
		require.Equal(t, tc.start, *rng.Start)
		require.Equal(t, tc.end, *rng.End)
	}
}

func TestResolveMonthHandlesShortMonths(t *testing.T) {
	rng, err := Resolve(TypeMonth, Params{Year: 2025, Month: 2})
	require.NoError(t, err)
	require.Equal(t, date(2025, time.February, 1), *rng.Start)
	require.Equal(t, date(2025, time.February, 28), *rng.End)

	leap, err := Resolve(TypeMonth, Params{Year: 2024, Month: 2})
	require.NoError(t, err)
	require.Equal(t, date(2024, time.February, 29), *leap.End)
}

func TestResolveCustom(t *testing.T) {
	start := date(2025, time.March, 15)
	end := date(2025, time.April, 10)

	rng, err := Resolve(TypeCustom, Params{Start: &start, End: &end})
	require.NoError(t, err)
	require.Equal(t, start, *rng.Start)
	require.Equal(t, end, *rng.End)

	open, err := Resolve(TypeCustom, Params{Start: &start})
	require.NoError(t, err)
	require.Nil(t, open.End)
	require.Equal(t, start, *open.Start)

	none, err := Resolve(TypeCustom, Params{})
	require.NoError(t, err)
	require.True(t, none.Unbounded())
}

func TestResolveCustomRejectsInvertedRange(t *testing.T) {
	start := date(2025, time.May, 2)
	end := date(2025, time.May, 1)
	_, err := Resolve(TypeCustom, Params{Start: &start, End: &end})
	require.Error(t, err)
	require.True(t, shared.IsValidation(err))
}

func TestResolveRejectsInvalidSelections(t *testing.T) {
	_, err := Resolve(TypeQuarter, Params{Year: 2024, Quarter: 5})
	require.True(t, shared.IsValidation(err))

	_, err = Resolve(TypeQuarter, Params{Year: 2024})
	require.True(t, shared.IsValidation(err))

	_, err = Resolve(TypeMonth, Params{Year: 2024, Month: 13})
	require.True(t, shared.IsValidation(err))

	_, err = Resolve(TypeYear, Params{Year: 0})
	require.True(t, shared.IsValidation(err))

	_, err = Resolve(Type("week"), Params{})
	require.True(t, shared.IsValidation(err))
}

func TestRangeContains(t *testing.T) {
	rng, err := Resolve(TypeMonth, Params{Year: 2025, Month: 6})
	require.NoError(t, err)

	require.True(t, rng.Contains(date(2025, time.June, 1)))
	require.True(t, rng.Contains(date(2025, time.June, 30)))
	require.False(t, rng.Contains(date(2025, time.May, 31)))
	require.False(t, rng.Contains(date(2025, time.July, 1)))
	require.True(t, rng.Contains(time.Date(2025, time.June, 30, 23, 59, 0, 0, time.UTC)))
}
