package settlement

import (
	"github.com/mercurio-pos/api/internal/domain"
	"github.com/mercurio-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Epsilon absorbs rounding noise when reconciling payments against a total.
var Epsilon = decimal.NewFromFloat(0.01)

// CreditUsed returns how much of a customer's store-credit balance is
// consumed against total given the explicit payment entries. Store credit
// always fills the residual gap last: explicit entries are counted first
// and credit covers only what remains, bounded by the balance.
func CreditUsed(credit, total decimal.Decimal, entries []domain.PaymentEntry) decimal.Decimal {
	paidWithoutCredit := decimal.Zero
	for _, e := range entries {
		if e.Instrument != enum.InstrumentCredit {
			paidWithoutCredit = paidWithoutCredit.Add(e.Amount)
		}
	}

	gap := total.Sub(paidWithoutCredit)
	if gap.IsNegative() {
		return decimal.Zero
	}
	if credit.LessThan(gap) {
		return credit
	}
	return gap
}

// TotalPaid sums the explicit entry amounts plus, when applyCredit is set,
// the credit consumed against total.
func TotalPaid(entries []domain.PaymentEntry, credit decimal.Decimal, applyCredit bool, total decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Amount)
	}
	if applyCredit {
		sum = sum.Add(CreditUsed(credit, total, entries))
	}
	return sum
}

// Remaining returns the unpaid portion of total, never negative.
func Remaining(total, totalPaid decimal.Decimal) decimal.Decimal {
	r := total.Sub(totalPaid)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// CanFinalize reports whether checkout is permitted: the remaining balance
// must be within Epsilon of zero and the sale must be backed by at least one
// explicit payment entry or, absent entries, by full credit coverage.
func CanFinalize(total decimal.Decimal, entries []domain.PaymentEntry, credit decimal.Decimal, applyCredit bool) bool {
	// nothing owed: layaway deliveries and pure courtesy sales close
	// without payment
	if total.LessThanOrEqual(Epsilon) {
		return true
	}
	paid := TotalPaid(entries, credit, applyCredit, total)
	if Remaining(total, paid).GreaterThan(Epsilon) {
		return false
	}
	if len(entries) > 0 {
		return true
	}
	return applyCredit && CreditUsed(credit, total, entries).GreaterThanOrEqual(total.Sub(Epsilon))
}
