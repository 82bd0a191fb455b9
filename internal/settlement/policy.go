package settlement

import (
	"github.com/mercurio-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// instrumentRates maps a payment instrument to the rate the seller absorbs
// (commission) and the rate passed on to the customer (surcharge). New
// instruments are added here without touching the calculation code.
type instrumentRates struct {
	Commission decimal.Decimal
	Surcharge  decimal.Decimal
}

var rateTable = map[string]instrumentRates{
	enum.InstrumentCash:     {},
	enum.InstrumentTransfer: {},
	enum.InstrumentCredit:   {},
	enum.InstrumentCard: {
		Commission: decimal.NewFromFloat(0.04),
		Surcharge:  decimal.NewFromFloat(0.03),
	},
}

// Commission returns the seller-absorbed cost of accepting amount on the
// given instrument, rounded to 2 decimal places. Unknown instruments cost
// nothing.
func Commission(instrument string, amount decimal.Decimal) decimal.Decimal {
	r, ok := rateTable[instrument]
	if !ok || r.Commission.IsZero() {
		return decimal.Zero
	}
	return amount.Mul(r.Commission).Round(2)
}

// Surcharge returns the extra amount charged to the customer for paying
// amount on the given instrument, rounded to 2 decimal places.
func Surcharge(instrument string, amount decimal.Decimal) decimal.Decimal {
	r, ok := rateTable[instrument]
	if !ok || r.Surcharge.IsZero() {
		return decimal.Zero
	}
	return amount.Mul(r.Surcharge).Round(2)
}
