// Package basket models the in-progress sale as an immutable value struct.
// Every transition validates its input against the state and the product
// snapshot, then returns a new state; the input state is never mutated, so
// the UI layer can keep, compare, and discard snapshots freely.
package basket

import (
	"errors"

	"github.com/google/uuid"
	"github.com/mercurio-pos/api/internal/domain"
	"github.com/mercurio-pos/api/internal/enum"
	"github.com/mercurio-pos/api/internal/settlement"
	"github.com/shopspring/decimal"
)

// Errors returned by basket transitions.
var (
	ErrInvalidQuantity     = errors.New("quantity must be > 0")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidInstrument   = errors.New("invalid payment instrument")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrPaymentModeConflict = errors.New("single and multi payment modes are mutually exclusive")
	ErrIndexOutOfRange     = errors.New("index out of range")
	ErrCustomerRequired    = errors.New("customer selection required to apply store credit")
)

// State is the operator's in-progress sale: the priced basket, the chosen
// discount, the payment entries, and the courtesy side-ledger.
type State struct {
	Items        []domain.LineItem
	Discount     decimal.Decimal
	Instrument   string
	MultiPayment bool
	Payments     []domain.PaymentEntry
	Courtesy     []domain.CourtesyItem
	CustomerID   uuid.UUID
	ApplyCredit  bool
}

// New returns an empty basket paying cash in single-payment mode.
func New() State {
	return State{Instrument: enum.InstrumentCash}
}

// AddItem appends (or merges into an existing line for) the product.
// The combined line quantity must not exceed the product's stock snapshot.
func (s State) AddItem(p domain.Product, quantity int32) (State, error) {
	if quantity <= 0 {
		return s, ErrInvalidQuantity
	}

	items := append([]domain.LineItem(nil), s.Items...)
	merged := false
	for i, it := range items {
		if it.ProductID == p.ID {
			if it.Quantity+quantity > p.Stock {
				return s, ErrInsufficientStock
			}
			it.Quantity += quantity
			items[i] = it
			merged = true
			break
		}
	}
	if !merged {
		if quantity > p.Stock {
			return s, ErrInsufficientStock
		}
		items = append(items, domain.LineItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    quantity,
			UnitCost:    p.Cost,
			UnitPrice:   p.Price,
			Category:    p.Category,
			Reference:   p.Reference,
			Serial:      p.Serial,
		})
	}

	s.Items = items
	return s, nil
}

// RemoveItem drops the line at index.
func (s State) RemoveItem(index int) (State, error) {
	if index < 0 || index >= len(s.Items) {
		return s, ErrIndexOutOfRange
	}
	items := append([]domain.LineItem(nil), s.Items[:index]...)
	items = append(items, s.Items[index+1:]...)
	s.Items = items
	return s, nil
}

// SetDiscount records the requested discount. The value is clamped to
// [0, subtotal] at settlement time rather than rejected here.
func (s State) SetDiscount(d decimal.Decimal) State {
	s.Discount = d
	return s
}

// SetInstrument selects the implicit instrument for single-payment mode.
func (s State) SetInstrument(instrument string) (State, error) {
	if s.MultiPayment {
		return s, ErrPaymentModeConflict
	}
	if !enum.ValidInstrument(instrument) {
		return s, ErrInvalidInstrument
	}
	s.Instrument = instrument
	return s, nil
}

// EnableMultiPayment switches to explicit payment entries, discarding the
// implicit instrument.
func (s State) EnableMultiPayment() State {
	s.MultiPayment = true
	s.Instrument = ""
	return s
}

// AddPayment appends an explicit payment entry with its commission frozen
// at add time.
func (s State) AddPayment(instrument string, amount decimal.Decimal) (State, error) {
	if !s.MultiPayment {
		return s, ErrPaymentModeConflict
	}
	if !enum.ValidInstrument(instrument) {
		return s, ErrInvalidInstrument
	}
	if !amount.IsPositive() {
		return s, ErrInvalidAmount
	}
	payments := append([]domain.PaymentEntry(nil), s.Payments...)
	payments = append(payments, settlement.NewPaymentEntry(instrument, amount))
	s.Payments = payments
	return s, nil
}

// RemovePayment drops the entry at index. Commissions of the remaining
// entries keep their add-time snapshots.
func (s State) RemovePayment(index int) (State, error) {
	if index < 0 || index >= len(s.Payments) {
		return s, ErrIndexOutOfRange
	}
	payments := append([]domain.PaymentEntry(nil), s.Payments[:index]...)
	payments = append(payments, s.Payments[index+1:]...)
	s.Payments = payments
	return s, nil
}

// AddCourtesy attaches a gift. Stock is re-checked here independently of
// the priced basket's own checks.
func (s State) AddCourtesy(p domain.Product, quantity int32, reason string) (State, error) {
	if quantity <= 0 {
		return s, ErrInvalidQuantity
	}
	if quantity > p.Stock {
		return s, ErrInsufficientStock
	}
	courtesy := append([]domain.CourtesyItem(nil), s.Courtesy...)
	courtesy = append(courtesy, settlement.NewCourtesyItem(p, quantity, reason))
	s.Courtesy = courtesy
	return s, nil
}

// RemoveCourtesy drops the gift at index.
func (s State) RemoveCourtesy(index int) (State, error) {
	if index < 0 || index >= len(s.Courtesy) {
		return s, ErrIndexOutOfRange
	}
	courtesy := append([]domain.CourtesyItem(nil), s.Courtesy[:index]...)
	courtesy = append(courtesy, s.Courtesy[index+1:]...)
	s.Courtesy = courtesy
	return s, nil
}

// SetCustomer selects the customer the sale belongs to.
func (s State) SetCustomer(id uuid.UUID) State {
	s.CustomerID = id
	return s
}

// SetApplyCredit toggles store-credit consumption. A customer must be
// selected first, otherwise there is no balance to draw from.
func (s State) SetApplyCredit(apply bool) (State, error) {
	if apply && s.CustomerID == uuid.Nil {
		return s, ErrCustomerRequired
	}
	s.ApplyCredit = apply
	return s, nil
}

// PaymentSpec returns the settlement payment descriptor for this state.
func (s State) PaymentSpec() settlement.PaymentSpec {
	if s.MultiPayment {
		return settlement.MultiPayment(s.Payments)
	}
	return settlement.SinglePayment(s.Instrument)
}

// Totals settles the current snapshot.
func (s State) Totals() domain.SaleTotal {
	return settlement.ComputeTotal(s.Items, s.Discount, s.PaymentSpec())
}
