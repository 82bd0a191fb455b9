package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a sellable item as read from the catalog collaborator.
type Product struct {
	ID        uuid.UUID
	Name      string
	Category  string
	Reference string
	Serial    string
	Cost      decimal.Decimal
	Price     decimal.Decimal
	Stock     int32
	CreatedAt time.Time
}

// Customer is a buyer with an optional store-credit balance.
// Credit is only ever consumed by the settlement core, never increased.
type Customer struct {
	ID        uuid.UUID
	Name      string
	Phone     string
	Credit    decimal.Decimal
	CreatedAt time.Time
}

// UserAccount is an operator login. Password is a bcrypt hash.
type UserAccount struct {
	ID        uuid.UUID
	Email     string
	Name      string
	Password  string
	Role      string
	CreatedAt time.Time
}

// LineItem is one priced basket line. Quantity is always > 0; cost and
// price are unit values captured when the item was added.
type LineItem struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    int32
	UnitCost    decimal.Decimal
	UnitPrice   decimal.Decimal
	Category    string
	Reference   string
	Serial      string
}

// TotalCost returns quantity times unit cost.
func (li LineItem) TotalCost() decimal.Decimal {
	return li.UnitCost.Mul(decimal.NewFromInt32(li.Quantity))
}

// TotalRevenue returns quantity times unit price.
func (li LineItem) TotalRevenue() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt32(li.Quantity))
}

// Profit returns TotalRevenue - TotalCost.
func (li LineItem) Profit() decimal.Decimal {
	return li.TotalRevenue().Sub(li.TotalCost())
}

// PaymentEntry is one payment in multi-payment mode. Commission is the
// seller-absorbed cost for this entry, frozen when the entry is added.
type PaymentEntry struct {
	Instrument string
	Amount     decimal.Decimal
	Commission decimal.Decimal
}

// CourtesyItem is a gift attached to a sale. It never contributes revenue;
// value and cost are captured at the moment of gifting.
type CourtesyItem struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    int32
	UnitPrice   decimal.Decimal
	UnitCost    decimal.Decimal
	TotalValue  decimal.Decimal
	TotalCost   decimal.Decimal
	Reason      string
}

// SaleTotal is the computed settlement breakdown for a basket snapshot.
type SaleTotal struct {
	Subtotal          decimal.Decimal
	Discount          decimal.Decimal
	Total             decimal.Decimal
	TotalCost         decimal.Decimal
	TotalCommissions  decimal.Decimal
	CustomerSurcharge decimal.Decimal
	FinalTotal        decimal.Decimal
	TotalProfit       decimal.Decimal
	ProfitMargin      decimal.Decimal
}

// Sale is a finalized, persisted sale record as read back for aggregation.
// RealProfit and RealTotalCost are set only when courtesy items are present.
type Sale struct {
	ID                uuid.UUID
	Type              string
	CustomerID        uuid.UUID
	Items             []LineItem
	Payments          []PaymentEntry
	CourtesyItems     []CourtesyItem
	Subtotal          decimal.Decimal
	Discount          decimal.Decimal
	Total             decimal.Decimal
	TotalCost         decimal.Decimal
	TotalCommissions  decimal.Decimal
	CustomerSurcharge decimal.Decimal
	FinalTotal        decimal.Decimal
	TotalProfit       decimal.Decimal
	ProfitMargin      decimal.Decimal
	CreditApplied     decimal.Decimal
	RealProfit        *decimal.Decimal
	RealTotalCost     *decimal.Decimal
	CreatedAt         time.Time
	CreatedBy         uuid.UUID
}

// HasCourtesy reports whether the sale carries gifted items.
func (s Sale) HasCourtesy() bool {
	return len(s.CourtesyItems) > 0
}
