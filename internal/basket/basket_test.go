package basket

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/mercurio-pos/api/internal/domain"
	"github.com/mercurio-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func product(price, cost string, stock int32) domain.Product {
	return domain.Product{
		ID:    uuid.New(),
		Name:  "usb cable",
		Price: dec(price),
		Cost:  dec(cost),
		Stock: stock,
	}
}

func TestAddItem_StockChecks(t *testing.T) {
	p := product("100000", "60000", 3)
	s := New()

	s, err := s.AddItem(p, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Merging past the stock snapshot is rejected.
	if _, err := s.AddItem(p, 2); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got: %v", err)
	}

	// Merging within it accumulates onto the same line.
	s, err = s.AddItem(p, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Items) != 1 || s.Items[0].Quantity != 3 {
		t.Fatalf("expected one line with qty 3, got %+v", s.Items)
	}
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	s := New()
	if _, err := s.AddItem(product("1000", "500", 10), 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got: %v", err)
	}
	if _, err := s.AddItem(product("1000", "500", 10), -1); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got: %v", err)
	}
}

func TestTransitions_DoNotMutateInput(t *testing.T) {
	p := product("100000", "60000", 10)
	base := New()
	base, err := base.AddItem(p, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	next, err := base.AddItem(p, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if base.Items[0].Quantity != 1 {
		t.Fatalf("input state mutated: qty became %d", base.Items[0].Quantity)
	}
	if next.Items[0].Quantity != 3 {
		t.Fatalf("next state wrong: qty %d", next.Items[0].Quantity)
	}
}

func TestRemoveItem(t *testing.T) {
	a := product("1000", "500", 10)
	b := product("2000", "900", 10)
	s := New()
	s, _ = s.AddItem(a, 1)
	s, _ = s.AddItem(b, 1)

	s, err := s.RemoveItem(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Items) != 1 || s.Items[0].ProductID != b.ID {
		t.Fatalf("expected only second item to remain, got %+v", s.Items)
	}

	if _, err := s.RemoveItem(5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got: %v", err)
	}
}

func TestPaymentModes_AreExclusive(t *testing.T) {
	s := New()

	// Single mode rejects explicit entries.
	if _, err := s.AddPayment(enum.InstrumentCash, dec("1000")); !errors.Is(err, ErrPaymentModeConflict) {
		t.Fatalf("expected ErrPaymentModeConflict, got: %v", err)
	}

	// Multi mode rejects switching the implicit instrument.
	s = s.EnableMultiPayment()
	if _, err := s.SetInstrument(enum.InstrumentCard); !errors.Is(err, ErrPaymentModeConflict) {
		t.Fatalf("expected ErrPaymentModeConflict, got: %v", err)
	}
}

func TestAddPayment_Validation(t *testing.T) {
	s := New().EnableMultiPayment()

	if _, err := s.AddPayment("CHEQUE", dec("1000")); !errors.Is(err, ErrInvalidInstrument) {
		t.Fatalf("expected ErrInvalidInstrument, got: %v", err)
	}
	if _, err := s.AddPayment(enum.InstrumentCash, decimal.Zero); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got: %v", err)
	}

	s, err := s.AddPayment(enum.InstrumentCard, dec("50000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Payments[0].Commission.Equal(dec("2000")) {
		t.Fatalf("expected frozen commission 2000, got %s", s.Payments[0].Commission)
	}
}

func TestRemovePayment_KeepsFrozenCommissions(t *testing.T) {
	s := New().EnableMultiPayment()
	s, _ = s.AddPayment(enum.InstrumentCard, dec("50000"))
	s, _ = s.AddPayment(enum.InstrumentCash, dec("100000"))

	s, err := s.RemovePayment(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Payments) != 1 {
		t.Fatalf("expected one payment, got %d", len(s.Payments))
	}
	// Snapshot commission survives unrelated removals.
	if !s.Payments[0].Commission.Equal(dec("2000")) {
		t.Fatalf("expected commission 2000, got %s", s.Payments[0].Commission)
	}
}

func TestAddCourtesy_StockAndNeutrality(t *testing.T) {
	p := product("100000", "60000", 5)
	gift := product("5000", "2000", 1)

	s := New()
	s, _ = s.AddItem(p, 2)
	before := s.Totals()

	if _, err := s.AddCourtesy(gift, 2, ""); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got: %v", err)
	}

	s, err := s.AddCourtesy(gift, 1, "opening gift")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after := s.Totals()
	if !after.Subtotal.Equal(before.Subtotal) || !after.Total.Equal(before.Total) {
		t.Fatalf("courtesy changed priced totals: before %+v after %+v", before, after)
	}
}

func TestSetApplyCredit_RequiresCustomer(t *testing.T) {
	s := New()
	if _, err := s.SetApplyCredit(true); !errors.Is(err, ErrCustomerRequired) {
		t.Fatalf("expected ErrCustomerRequired, got: %v", err)
	}

	s = s.SetCustomer(uuid.New())
	s, err := s.SetApplyCredit(true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.ApplyCredit {
		t.Fatal("expected ApplyCredit set")
	}
}

func TestTotals_UsesActiveMode(t *testing.T) {
	p := product("100000", "60000", 10)

	single := New()
	single, _ = single.AddItem(p, 2)
	single, _ = single.SetInstrument(enum.InstrumentCard)
	got := single.Totals()
	if !got.TotalCommissions.Equal(dec("8000")) {
		t.Fatalf("single mode: expected commission 8000, got %s", got.TotalCommissions)
	}

	multi := New().EnableMultiPayment()
	multi, _ = multi.AddItem(p, 2)
	multi, _ = multi.AddPayment(enum.InstrumentCash, dec("150000"))
	multi, _ = multi.AddPayment(enum.InstrumentCard, dec("50000"))
	got = multi.Totals()
	if !got.TotalCommissions.Equal(dec("2000")) {
		t.Fatalf("multi mode: expected commission 2000, got %s", got.TotalCommissions)
	}
}
