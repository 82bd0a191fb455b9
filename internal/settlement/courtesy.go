package settlement

import (
	"github.com/mercurio-pos/api/internal/domain"
	"github.com/shopspring/decimal"
)

// CourtesySummary totals the side-ledger of gifted items. Courtesy items
// never enter the priced subtotal; their cost only adjusts realized profit.
type CourtesySummary struct {
	TotalValue decimal.Decimal
	TotalCost  decimal.Decimal
}

// SummarizeCourtesy sums value and cost across the gifted items.
func SummarizeCourtesy(items []domain.CourtesyItem) CourtesySummary {
	s := CourtesySummary{TotalValue: decimal.Zero, TotalCost: decimal.Zero}
	for _, it := range items {
		s.TotalValue = s.TotalValue.Add(it.TotalValue)
		s.TotalCost = s.TotalCost.Add(it.TotalCost)
	}
	return s
}

// NewCourtesyItem captures a gift's unit price and cost at gifting time.
func NewCourtesyItem(p domain.Product, quantity int32, reason string) domain.CourtesyItem {
	qty := decimal.NewFromInt32(quantity)
	return domain.CourtesyItem{
		ProductID:   p.ID,
		ProductName: p.Name,
		Quantity:    quantity,
		UnitPrice:   p.Price,
		UnitCost:    p.Cost,
		TotalValue:  p.Price.Mul(qty),
		TotalCost:   p.Cost.Mul(qty),
		Reason:      reason,
	}
}

// RealTotalCost is the sale's cost including gifted cost.
func RealTotalCost(totalCost, courtesyCost decimal.Decimal) decimal.Decimal {
	return totalCost.Add(courtesyCost)
}

// RealProfit is the sale's profit after subtracting gifted cost.
func RealProfit(totalProfit, courtesyCost decimal.Decimal) decimal.Decimal {
	return totalProfit.Sub(courtesyCost)
}

// EffectiveProfit returns the profit figure reporting should use: the
// courtesy-adjusted real profit when gifts are present, the nominal profit
// otherwise.
func EffectiveProfit(s domain.Sale) decimal.Decimal {
	if s.HasCourtesy() && s.RealProfit != nil {
		return *s.RealProfit
	}
	return s.TotalProfit
}

// EffectiveCost returns the cost figure reporting should use, mirroring
// EffectiveProfit.
func EffectiveCost(s domain.Sale) decimal.Decimal {
	if s.HasCourtesy() && s.RealTotalCost != nil {
		return *s.RealTotalCost
	}
	return s.TotalCost
}
