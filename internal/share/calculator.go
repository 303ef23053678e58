// Package share computes partner/company revenue splits and the estimated
// payout shown on entry-creation forms.
package share

import (
	"github.com/atelier-ops/atelier-ops/internal/ledger"
	"github.com/atelier-ops/atelier-ops/internal/shared"
)

// Tax factors as integer ratios: VAT adds 10%, withholding deducts 3.3%.
const (
	vatNumerator           = 110
	vatDenominator         = 100
	withholdingNumerator   = 967
	withholdingDenominator = 1000
)

// Split divides net profit between partner and company. The partner amount
// is rounded half up away from zero; the company amount is the remainder, so
// both halves always reconcile to the net profit exactly.
type Split struct {
	PartnerAmount int64
	CompanyAmount int64
}

// Compute applies a share rate (percent granted to the partner) to a net
// profit. A nil rate means no sharing is configured and both halves are zero.
func Compute(netProfit int64, rate *int) (Split, error) {
	if rate == nil {
		return Split{}, nil
	}
	if *rate < 0 || *rate > 100 {
		return Split{}, shared.NewValidationError("shareRate", "must be between 0 and 100")
	}
	partner := mulDivHalfUp(netProfit, int64(*rate), 100)
	return Split{
		PartnerAmount: partner,
		CompanyAmount: netProfit - partner,
	}, nil
}

// ActualAmount estimates the net payout of an amount under a payment method.
// The second return is false when the method is unknown or empty: the value
// is not computable, which is distinct from zero. Display helper only; it
// never feeds aggregation or settlement totals.
func ActualAmount(amount int64, method ledger.PaymentMethod) (int64, bool) {
	switch method {
	case ledger.PaymentMethodVATIncluded:
		return mulDivHalfUp(amount, vatNumerator, vatDenominator), true
	case ledger.PaymentMethodTaxFree:
		return amount, true
	case ledger.PaymentMethodWithholding:
		return mulDivHalfUp(amount, withholdingNumerator, withholdingDenominator), true
	case ledger.PaymentMethodActualPayment:
		return amount, true
	default:
		return 0, false
	}
}

// mulDivHalfUp computes v*num/den in integer arithmetic, rounding to the
// nearest unit with ties going away from zero. Staying off floats keeps the
// result exact for amounts beyond float64's integer range.
func mulDivHalfUp(v, num, den int64) int64 {
	product := v * num
	q := product / den
	r := product % den
	switch {
	case 2*r >= den:
		q++
	case 2*r <= -den:
		q--
	}
	return q
}
