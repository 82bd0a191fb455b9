package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercurio-pos/api/internal/domain"
	"github.com/mercurio-pos/api/internal/enum"
	"github.com/mercurio-pos/api/internal/store/memory"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func assertEq(t *testing.T, name string, got, want decimal.Decimal) {
	t.Helper()
	if !got.Equal(want) {
		t.Fatalf("%s = %s, want %s", name, got, want)
	}
}

type recordingNotifier struct {
	sales []domain.Sale
}

func (n *recordingNotifier) SaleFinalized(s domain.Sale) {
	n.sales = append(n.sales, s)
}

type fixture struct {
	svc      *SaleService
	store    *memory.Store
	notifier *recordingNotifier
	ring     domain.Product
	chain    domain.Product
	customer domain.Customer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := memory.New()
	ctx := context.Background()

	ring, err := mem.CreateProduct(ctx, domain.Product{
		Name: "Anillo Oro", Category: "Anillos",
		Cost: dec("30000"), Price: dec("50000"), Stock: 10,
	})
	if err != nil {
		t.Fatalf("seed ring: %v", err)
	}
	chain, err := mem.CreateProduct(ctx, domain.Product{
		Name: "Cadena Plata", Category: "Cadenas",
		Cost: dec("40000"), Price: dec("50000"), Stock: 3,
	})
	if err != nil {
		t.Fatalf("seed chain: %v", err)
	}
	customer, err := mem.CreateCustomer(ctx, domain.Customer{
		Name: "Laura", Phone: "3001234567", Credit: dec("20000"),
	})
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	notifier := &recordingNotifier{}
	now := func() time.Time { return time.Date(2026, 2, 10, 15, 0, 0, 0, time.UTC) }
	return &fixture{
		svc:      NewSaleService(mem, notifier, now),
		store:    mem,
		notifier: notifier,
		ring:     ring,
		chain:    chain,
		customer: customer,
	}
}

func TestFinalize_CashSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sale, err := f.svc.Finalize(ctx, FinalizeSaleRequest{
		SaleType:   enum.SaleTypeRegular,
		Instrument: enum.InstrumentCash,
		Items:      []SaleItemRequest{{ProductID: f.ring.ID.String(), Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	assertEq(t, "FinalTotal", sale.FinalTotal, dec("100000"))
	assertEq(t, "TotalCommissions", sale.TotalCommissions, decimal.Zero)
	if len(sale.Payments) != 1 || sale.Payments[0].Instrument != enum.InstrumentCash {
		t.Fatalf("payments = %+v", sale.Payments)
	}
	assertEq(t, "payment amount", sale.Payments[0].Amount, dec("100000"))

	p, err := f.store.GetProduct(ctx, f.ring.ID)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if p.Stock != 8 {
		t.Fatalf("stock = %d, want 8", p.Stock)
	}
	if len(f.notifier.sales) != 1 || f.notifier.sales[0].ID != sale.ID {
		t.Fatalf("notifier not called with the created sale")
	}
}

func TestFinalize_CardSingleCarriesCommission(t *testing.T) {
	f := newFixture(t)

	sale, err := f.svc.Finalize(context.Background(), FinalizeSaleRequest{
		SaleType:   enum.SaleTypeRegular,
		Instrument: enum.InstrumentCard,
		Items:      []SaleItemRequest{{ProductID: f.ring.ID.String(), Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	assertEq(t, "TotalCommissions", sale.TotalCommissions, dec("8000"))
	assertEq(t, "CustomerSurcharge", sale.CustomerSurcharge, dec("6000"))
	assertEq(t, "FinalTotal", sale.FinalTotal, dec("206000"))
	assertEq(t, "TotalProfit", sale.TotalProfit, dec("72000"))
	if len(sale.Payments) != 1 {
		t.Fatalf("payments = %+v", sale.Payments)
	}
	assertEq(t, "payment amount", sale.Payments[0].Amount, dec("206000"))
	assertEq(t, "payment commission", sale.Payments[0].Commission, dec("8000"))
}

func TestFinalize_MultiPaymentUnderpaid(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Finalize(context.Background(), FinalizeSaleRequest{
		SaleType:     enum.SaleTypeRegular,
		MultiPayment: true,
		Items:        []SaleItemRequest{{ProductID: f.ring.ID.String(), Quantity: 2}},
		Payments: []PaymentRequest{
			{Instrument: enum.InstrumentCash, Amount: "60000"},
		},
	})
	if !errors.Is(err, ErrPaymentShort) {
		t.Fatalf("err = %v, want ErrPaymentShort", err)
	}

	// failed finalization must not touch stock
	p, _ := f.store.GetProduct(context.Background(), f.ring.ID)
	if p.Stock != 10 {
		t.Fatalf("stock = %d, want 10", p.Stock)
	}
}

func TestFinalize_MultiPaymentWithCredit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sale, err := f.svc.Finalize(ctx, FinalizeSaleRequest{
		SaleType:     enum.SaleTypeRegular,
		CustomerID:   f.customer.ID.String(),
		MultiPayment: true,
		ApplyCredit:  true,
		Items:        []SaleItemRequest{{ProductID: f.ring.ID.String(), Quantity: 2}},
		Payments: []PaymentRequest{
			{Instrument: enum.InstrumentCash, Amount: "85000"},
		},
	})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	assertEq(t, "CreditApplied", sale.CreditApplied, dec("15000"))

	c, err := f.store.GetCustomer(ctx, f.customer.ID)
	if err != nil {
		t.Fatalf("GetCustomer: %v", err)
	}
	assertEq(t, "remaining credit", c.Credit, dec("5000"))
}

func TestFinalize_SingleModeCreditFillsFirst(t *testing.T) {
	f := newFixture(t)

	sale, err := f.svc.Finalize(context.Background(), FinalizeSaleRequest{
		SaleType:    enum.SaleTypeRegular,
		CustomerID:  f.customer.ID.String(),
		Instrument:  enum.InstrumentCash,
		ApplyCredit: true,
		Items:       []SaleItemRequest{{ProductID: f.ring.ID.String(), Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	assertEq(t, "CreditApplied", sale.CreditApplied, dec("20000"))
	if len(sale.Payments) != 1 {
		t.Fatalf("payments = %+v", sale.Payments)
	}
	assertEq(t, "cash portion", sale.Payments[0].Amount, dec("30000"))
}

func TestFinalize_CourtesySetsRealFigures(t *testing.T) {
	f := newFixture(t)

	sale, err := f.svc.Finalize(context.Background(), FinalizeSaleRequest{
		SaleType:   enum.SaleTypeRegular,
		Instrument: enum.InstrumentCash,
		Items:      []SaleItemRequest{{ProductID: f.ring.ID.String(), Quantity: 2}},
		Courtesy:   []CourtesyRequest{{ProductID: f.chain.ID.String(), Quantity: 1, Reason: "aniversario"}},
	})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	// gift revenue stays out of the totals
	assertEq(t, "Total", sale.Total, dec("100000"))
	if sale.RealProfit == nil || sale.RealTotalCost == nil {
		t.Fatal("real figures not set")
	}
	assertEq(t, "RealTotalCost", *sale.RealTotalCost, dec("100000"))
	assertEq(t, "RealProfit", *sale.RealProfit, dec("0"))

	p, _ := f.store.GetProduct(context.Background(), f.chain.ID)
	if p.Stock != 2 {
		t.Fatalf("gift stock = %d, want 2", p.Stock)
	}
}

func TestFinalize_LayawayDeliveryWithoutPayment(t *testing.T) {
	f := newFixture(t)

	sale, err := f.svc.Finalize(context.Background(), FinalizeSaleRequest{
		SaleType: enum.SaleTypeLayawayDelivery,
		Courtesy: []CourtesyRequest{{ProductID: f.chain.ID.String(), Quantity: 1, Reason: "entrega"}},
	})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	assertEq(t, "FinalTotal", sale.FinalTotal, decimal.Zero)
	if len(sale.Payments) != 0 {
		t.Fatalf("payments = %+v", sale.Payments)
	}
}

func TestFinalize_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  FinalizeSaleRequest
		want error
	}{
		{"unknown sale type", FinalizeSaleRequest{SaleType: "RENTAL"}, ErrInvalidSaleType},
		{"no items", FinalizeSaleRequest{SaleType: enum.SaleTypeRegular}, ErrEmptyItems},
		{"bad product id", FinalizeSaleRequest{
			SaleType: enum.SaleTypeRegular,
			Items:    []SaleItemRequest{{ProductID: "not-a-uuid", Quantity: 1}},
		}, ErrInvalidProductID},
		{"unknown product", FinalizeSaleRequest{
			SaleType: enum.SaleTypeRegular,
			Items:    []SaleItemRequest{{ProductID: uuid.NewString(), Quantity: 1}},
		}, ErrProductNotFound},
		{"bad customer id", FinalizeSaleRequest{
			SaleType:   enum.SaleTypeRegular,
			CustomerID: "nope",
			Items:      []SaleItemRequest{{ProductID: uuid.NewString(), Quantity: 1}},
		}, ErrInvalidCustomerID},
		{"unknown customer", FinalizeSaleRequest{
			SaleType:   enum.SaleTypeRegular,
			CustomerID: uuid.NewString(),
			Items:      []SaleItemRequest{{ProductID: uuid.NewString(), Quantity: 1}},
		}, ErrCustomerNotFound},
		{"bad discount", FinalizeSaleRequest{
			SaleType: enum.SaleTypeRegular,
			Discount: "-5",
			Items:    []SaleItemRequest{{ProductID: f.ring.ID.String(), Quantity: 1}},
		}, ErrInvalidDiscountValue},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.svc.Finalize(ctx, tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestQuote_DoesNotPersist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	totals, err := f.svc.Quote(ctx, FinalizeSaleRequest{
		SaleType:   enum.SaleTypeRegular,
		Instrument: enum.InstrumentCard,
		Items:      []SaleItemRequest{{ProductID: f.ring.ID.String(), Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	assertEq(t, "FinalTotal", totals.FinalTotal, dec("206000"))

	sales, err := f.svc.ListSales(ctx)
	if err != nil {
		t.Fatalf("ListSales: %v", err)
	}
	if len(sales) != 0 {
		t.Fatalf("quote persisted a sale")
	}
	p, _ := f.store.GetProduct(ctx, f.ring.ID)
	if p.Stock != 10 {
		t.Fatalf("quote touched stock")
	}
}
