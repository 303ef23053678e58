package share

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atelier-ops/atelier-ops/internal/ledger"
	"github.com/atelier-ops/atelier-ops/internal/shared"
)

func rate(v int) *int { return &v }

func TestComputeSplitsAndReconciles(t *testing.T) {
	split, err := Compute(100, rate(33))
	require.NoError(t, err)
	require.Equal(t, int64(33), split.PartnerAmount)
	require.Equal(t, int64(67), split.CompanyAmount)

	split, err = Compute(600000, rate(50))
	require.NoError(t, err)
	require.Equal(t, int64(300000), split.PartnerAmount)
	require.Equal(t, int64(300000), split.CompanyAmount)
}

func TestComputeRoundsHalfUp(t *testing.T) {
	// 5 * 0.5 = 2.5 rounds to 3.
	split, err := Compute(5, rate(50))
	require.NoError(t, err)
	require.Equal(t, int64(3), split.PartnerAmount)
	require.Equal(t, int64(2), split.CompanyAmount)
}

func TestComputeNegativeNetProfit(t *testing.T) {
	split, err := Compute(-100000, rate(50))
	require.NoError(t, err)
	require.Equal(t, int64(-50000), split.PartnerAmount)
	require.Equal(t, int64(-50000), split.CompanyAmount)

	// Ties round away from zero on the partner half.
	split, err = Compute(-5, rate(50))
	require.NoError(t, err)
	require.Equal(t, int64(-3), split.PartnerAmount)
	require.Equal(t, int64(-2), split.CompanyAmount)
}

func TestComputeReconciliationNeverLeaks(t *testing.T) {
	profits := []int64{-1000001, -37, -1, 0, 1, 3, 99, 12345, 1000000}
	for _, net := range profits {
		for r := 0; r <= 100; r++ {
			split, err := Compute(net, rate(r))
			require.NoError(t, err)
			require.Equal(t, net, split.PartnerAmount+split.CompanyAmount,
				"net=%d rate=%d", net, r)
		}
	}
}

func TestComputeExactAtLargeMagnitudes(t *testing.T) {
	// 2^53+1 is not representable as a float64; integer math must not care.
	const big = int64(1)<<53 + 1

	split, err := Compute(big, rate(100))
	require.NoError(t, err)
	require.Equal(t, big, split.PartnerAmount)
	require.Equal(t, int64(0), split.CompanyAmount)

	// big*50 = ...650, so the partner half carries an exact .50 tie.
	split, err = Compute(big, rate(50))
	require.NoError(t, err)
	require.Equal(t, int64(4503599627370497), split.PartnerAmount)
	require.Equal(t, big, split.PartnerAmount+split.CompanyAmount)

	split, err = Compute(-big, rate(100))
	require.NoError(t, err)
	require.Equal(t, -big, split.PartnerAmount)
	require.Equal(t, int64(0), split.CompanyAmount)
}

func TestComputeNilRate(t *testing.T) {
	split, err := Compute(500000, nil)
	require.NoError(t, err)
	require.Equal(t, int64(0), split.PartnerAmount)
	require.Equal(t, int64(0), split.CompanyAmount)
}

func TestComputeRejectsOutOfRangeRate(t *testing.T) {
	_, err := Compute(100, rate(101))
	require.True(t, shared.IsValidation(err))

	_, err = Compute(100, rate(-1))
	require.True(t, shared.IsValidation(err))
}

func TestActualAmount(t *testing.T) {
	got, ok := ActualAmount(100000, ledger.PaymentMethodWithholding)
	require.True(t, ok)
	require.Equal(t, int64(96700), got)

	got, ok = ActualAmount(100000, ledger.PaymentMethodVATIncluded)
	require.True(t, ok)
	require.Equal(t, int64(110000), got)

	got, ok = ActualAmount(100000, ledger.PaymentMethodTaxFree)
	require.True(t, ok)
	require.Equal(t, int64(100000), got)

	got, ok = ActualAmount(100000, ledger.PaymentMethodActualPayment)
	require.True(t, ok)
	require.Equal(t, int64(100000), got)
}

func TestActualAmountUnknownMethodNotComputable(t *testing.T) {
	_, ok := ActualAmount(100000, ledger.PaymentMethod(""))
	require.False(t, ok)

	_, ok = ActualAmount(100000, ledger.PaymentMethod("cash"))
	require.False(t, ok)
}
