package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercurio-pos/api/internal/basket"
	"github.com/mercurio-pos/api/internal/domain"
	"github.com/mercurio-pos/api/internal/enum"
	"github.com/mercurio-pos/api/internal/settlement"
	"github.com/mercurio-pos/api/internal/store"
)

// Errors returned by the sale service.
var (
	ErrEmptyItems           = errors.New("items are required")
	ErrInvalidSaleType      = errors.New("invalid sale_type")
	ErrInvalidProductID     = errors.New("invalid product_id")
	ErrInvalidCustomerID    = errors.New("invalid customer_id")
	ErrInvalidDiscountValue = errors.New("invalid discount")
	ErrInvalidPaymentAmount = errors.New("invalid payment amount")
	ErrProductNotFound      = errors.New("product not found")
	ErrCustomerNotFound     = errors.New("customer not found")
	ErrPaymentShort         = errors.New("payments do not cover the total")
)

// SaleStore is the persistence surface Finalize needs. Satisfied by the
// postgres and memory stores.
type SaleStore interface {
	GetProduct(ctx context.Context, id uuid.UUID) (domain.Product, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (domain.Customer, error)
	CreateSale(ctx context.Context, s domain.Sale) (domain.Sale, error)
	GetSale(ctx context.Context, id uuid.UUID) (domain.Sale, error)
	ListSales(ctx context.Context) ([]domain.Sale, error)
}

// SaleNotifier receives finalized sales for fan-out to live listeners.
type SaleNotifier interface {
	SaleFinalized(s domain.Sale)
}

// SaleItemRequest is a single sold line.
type SaleItemRequest struct {
	ProductID string
	Quantity  int32
}

// PaymentRequest is one explicit payment entry in multi-payment mode.
type PaymentRequest struct {
	Instrument string
	Amount     string
}

// CourtesyRequest is a gifted line attached to the sale.
type CourtesyRequest struct {
	ProductID string
	Quantity  int32
	Reason    string
}

// FinalizeSaleRequest is the validated input for closing a sale. Discount
// and payment amounts arrive as strings and are parsed here.
type FinalizeSaleRequest struct {
	SaleType     string
	CustomerID   string
	Discount     string
	Instrument   string
	MultiPayment bool
	Payments     []PaymentRequest
	Items        []SaleItemRequest
	Courtesy     []CourtesyRequest
	ApplyCredit  bool
	CreatedBy    uuid.UUID
}

// SaleService owns checkout: it rebuilds the basket from the request,
// settles it, reconciles payments, and persists the sale atomically.
type SaleService struct {
	store    SaleStore
	notifier SaleNotifier
	now      func() time.Time
}

// NewSaleService creates a SaleService. notifier may be nil; now defaults
// to time.Now.
func NewSaleService(st SaleStore, notifier SaleNotifier, now func() time.Time) *SaleService {
	if now == nil {
		now = time.Now
	}
	return &SaleService{store: st, notifier: notifier, now: now}
}

// Quote settles the request without persisting anything. The breakdown it
// returns is exactly what Finalize would record.
func (s *SaleService) Quote(ctx context.Context, req FinalizeSaleRequest) (domain.SaleTotal, error) {
	b, _, err := s.buildBasket(ctx, req)
	if err != nil {
		return domain.SaleTotal{}, err
	}
	return b.Totals(), nil
}

// Finalize validates, settles, reconciles, and persists the sale. The
// stock decrements and the credit deduction commit atomically with the
// sale row; listeners are notified after the commit.
func (s *SaleService) Finalize(ctx context.Context, req FinalizeSaleRequest) (domain.Sale, error) {
	b, customer, err := s.buildBasket(ctx, req)
	if err != nil {
		return domain.Sale{}, err
	}

	totals := b.Totals()

	var credit decimal.Decimal
	if customer != nil {
		credit = customer.Credit
	}

	var creditApplied decimal.Decimal
	payments := b.Payments

	if b.MultiPayment {
		if !settlement.CanFinalize(totals.FinalTotal, b.Payments, credit, b.ApplyCredit) {
			return domain.Sale{}, ErrPaymentShort
		}
		if b.ApplyCredit {
			creditApplied = settlement.CreditUsed(credit, totals.FinalTotal, b.Payments)
		}
	} else {
		// single mode settles the whole balance with one instrument;
		// credit fills first and the instrument covers the rest
		if b.ApplyCredit {
			creditApplied = settlement.CreditUsed(credit, totals.FinalTotal, nil)
		}
		owed := totals.FinalTotal.Sub(creditApplied)
		if owed.IsPositive() {
			payments = []domain.PaymentEntry{{
				Instrument: b.Instrument,
				Amount:     owed,
				Commission: totals.TotalCommissions,
			}}
		} else {
			payments = nil
		}
	}

	sale := domain.Sale{
		ID:                uuid.New(),
		Type:              req.SaleType,
		CustomerID:        b.CustomerID,
		Items:             b.Items,
		Payments:          payments,
		CourtesyItems:     b.Courtesy,
		Subtotal:          totals.Subtotal,
		Discount:          totals.Discount,
		Total:             totals.Total,
		TotalCost:         totals.TotalCost,
		TotalCommissions:  totals.TotalCommissions,
		CustomerSurcharge: totals.CustomerSurcharge,
		FinalTotal:        totals.FinalTotal,
		TotalProfit:       totals.TotalProfit,
		ProfitMargin:      totals.ProfitMargin,
		CreditApplied:     creditApplied,
		CreatedAt:         s.now(),
		CreatedBy:         req.CreatedBy,
	}

	if len(b.Courtesy) > 0 {
		summary := settlement.SummarizeCourtesy(b.Courtesy)
		realCost := settlement.RealTotalCost(totals.TotalCost, summary.TotalCost)
		realProfit := settlement.RealProfit(totals.TotalProfit, summary.TotalCost)
		sale.RealTotalCost = &realCost
		sale.RealProfit = &realProfit
	}

	created, err := s.store.CreateSale(ctx, sale)
	if err != nil {
		return domain.Sale{}, fmt.Errorf("create sale: %w", err)
	}

	if s.notifier != nil {
		s.notifier.SaleFinalized(created)
	}
	return created, nil
}

// GetSale returns one persisted sale.
func (s *SaleService) GetSale(ctx context.Context, id uuid.UUID) (domain.Sale, error) {
	return s.store.GetSale(ctx, id)
}

// ListSales returns the full sale history in chronological order.
func (s *SaleService) ListSales(ctx context.Context) ([]domain.Sale, error) {
	return s.store.ListSales(ctx)
}

// buildBasket replays the request through the basket transitions so every
// Finalize and Quote passes the same validation the register UI does.
func (s *SaleService) buildBasket(ctx context.Context, req FinalizeSaleRequest) (basket.State, *domain.Customer, error) {
	if !enum.ValidSaleType(req.SaleType) {
		return basket.State{}, nil, ErrInvalidSaleType
	}
	if len(req.Items) == 0 && len(req.Courtesy) == 0 && req.SaleType != enum.SaleTypeLayawayDelivery {
		return basket.State{}, nil, ErrEmptyItems
	}

	b := basket.New()

	var customer *domain.Customer
	if req.CustomerID != "" {
		cid, err := uuid.Parse(req.CustomerID)
		if err != nil {
			return basket.State{}, nil, ErrInvalidCustomerID
		}
		c, err := s.store.GetCustomer(ctx, cid)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return basket.State{}, nil, ErrCustomerNotFound
			}
			return basket.State{}, nil, fmt.Errorf("get customer: %w", err)
		}
		customer = &c
		b = b.SetCustomer(cid)
	}

	for i, item := range req.Items {
		p, err := s.loadProduct(ctx, item.ProductID)
		if err != nil {
			return basket.State{}, nil, fmt.Errorf("item[%d]: %w", i, err)
		}
		b, err = b.AddItem(p, item.Quantity)
		if err != nil {
			return basket.State{}, nil, fmt.Errorf("item[%d]: %w", i, err)
		}
	}

	if req.Discount != "" {
		d, err := decimal.NewFromString(req.Discount)
		if err != nil || d.IsNegative() {
			return basket.State{}, nil, ErrInvalidDiscountValue
		}
		b = b.SetDiscount(d)
	}

	if req.MultiPayment {
		b = b.EnableMultiPayment()
		for i, pay := range req.Payments {
			amount, err := decimal.NewFromString(pay.Amount)
			if err != nil {
				return basket.State{}, nil, fmt.Errorf("payment[%d]: %w", i, ErrInvalidPaymentAmount)
			}
			b, err = b.AddPayment(pay.Instrument, amount)
			if err != nil {
				return basket.State{}, nil, fmt.Errorf("payment[%d]: %w", i, err)
			}
		}
	} else if req.Instrument != "" {
		var err error
		b, err = b.SetInstrument(req.Instrument)
		if err != nil {
			return basket.State{}, nil, err
		}
	}

	for i, gift := range req.Courtesy {
		p, err := s.loadProduct(ctx, gift.ProductID)
		if err != nil {
			return basket.State{}, nil, fmt.Errorf("courtesy[%d]: %w", i, err)
		}
		b, err = b.AddCourtesy(p, gift.Quantity, gift.Reason)
		if err != nil {
			return basket.State{}, nil, fmt.Errorf("courtesy[%d]: %w", i, err)
		}
	}

	if req.ApplyCredit {
		var err error
		b, err = b.SetApplyCredit(true)
		if err != nil {
			return basket.State{}, nil, err
		}
	}

	return b, customer, nil
}

func (s *SaleService) loadProduct(ctx context.Context, rawID string) (domain.Product, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return domain.Product{}, ErrInvalidProductID
	}
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Product{}, ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}
