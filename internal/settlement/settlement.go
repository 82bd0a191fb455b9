// Package settlement computes the monetary breakdown of a sale: discount
// application, per-instrument commission and surcharge, store-credit
// reconciliation, and profit derivation. Every function is pure; callers
// pass a basket snapshot in and get values out, so the engine can run on
// every UI event.
package settlement

import (
	"github.com/mercurio-pos/api/internal/domain"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// PaymentSpec selects how a sale is being paid. The two modes are mutually
// exclusive: either a single implicit instrument covers the whole total, or
// an explicit list of entries does.
type PaymentSpec struct {
	Instrument string
	Entries    []domain.PaymentEntry
	Multi      bool
}

// SinglePayment builds a PaymentSpec for single-payment mode.
func SinglePayment(instrument string) PaymentSpec {
	return PaymentSpec{Instrument: instrument}
}

// MultiPayment builds a PaymentSpec for multi-payment mode.
func MultiPayment(entries []domain.PaymentEntry) PaymentSpec {
	return PaymentSpec{Entries: entries, Multi: true}
}

// ClampDiscount bounds a requested discount to [0, subtotal] so the
// resulting total can never go negative.
func ClampDiscount(requested, subtotal decimal.Decimal) decimal.Decimal {
	if requested.IsNegative() {
		return decimal.Zero
	}
	if requested.GreaterThan(subtotal) {
		return subtotal
	}
	return requested
}

// NewPaymentEntry builds a payment entry with its commission frozen at the
// moment the entry is added. The commission is a snapshot: removing other
// entries later does not recompute it.
func NewPaymentEntry(instrument string, amount decimal.Decimal) domain.PaymentEntry {
	return domain.PaymentEntry{
		Instrument: instrument,
		Amount:     amount,
		Commission: Commission(instrument, amount),
	}
}

// ComputeTotal settles a basket snapshot into a SaleTotal.
//
// In single-payment mode the commission and surcharge derive from the
// post-discount total; in multi-payment mode the commission is the sum of
// each entry's frozen commission and the surcharge is recomputed from each
// entry's amount. An empty basket yields an all-zero breakdown with a zero
// margin rather than a division by zero.
func ComputeTotal(items []domain.LineItem, discount decimal.Decimal, payment PaymentSpec) domain.SaleTotal {
	subtotal := decimal.Zero
	totalCost := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.TotalRevenue())
		totalCost = totalCost.Add(it.TotalCost())
	}

	applied := ClampDiscount(discount, subtotal)
	total := subtotal.Sub(applied)

	commissions := decimal.Zero
	surcharge := decimal.Zero
	if payment.Multi {
		for _, e := range payment.Entries {
			commissions = commissions.Add(e.Commission)
			surcharge = surcharge.Add(Surcharge(e.Instrument, e.Amount))
		}
	} else {
		commissions = Commission(payment.Instrument, total)
		surcharge = Surcharge(payment.Instrument, total)
	}

	finalTotal := total.Add(surcharge)
	profit := total.Sub(totalCost).Sub(commissions)

	margin := decimal.Zero
	if total.IsPositive() {
		margin = profit.Mul(oneHundred).DivRound(total, 4)
	}

	return domain.SaleTotal{
		Subtotal:          subtotal,
		Discount:          applied,
		Total:             total,
		TotalCost:         totalCost,
		TotalCommissions:  commissions,
		CustomerSurcharge: surcharge,
		FinalTotal:        finalTotal,
		TotalProfit:       profit,
		ProfitMargin:      margin,
	}
}
