package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mercurio-pos/api/internal/basket"
	"github.com/mercurio-pos/api/internal/domain"
	"github.com/mercurio-pos/api/internal/middleware"
	"github.com/mercurio-pos/api/internal/service"
	"github.com/mercurio-pos/api/internal/store"
)

// SaleService is the checkout surface the handler needs. Satisfied by
// *service.SaleService.
type SaleService interface {
	Quote(ctx context.Context, req service.FinalizeSaleRequest) (domain.SaleTotal, error)
	Finalize(ctx context.Context, req service.FinalizeSaleRequest) (domain.Sale, error)
	GetSale(ctx context.Context, id uuid.UUID) (domain.Sale, error)
	ListSales(ctx context.Context) ([]domain.Sale, error)
}

// SaleHandler handles checkout endpoints.
type SaleHandler struct {
	svc SaleService
}

// NewSaleHandler creates a new SaleHandler.
func NewSaleHandler(svc SaleService) *SaleHandler {
	return &SaleHandler{svc: svc}
}

// RegisterRoutes registers sale endpoints on the given Chi router.
// Expected to be mounted at /sales.
func (h *SaleHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/", h.Finalize)
	r.Post("/quote", h.Quote)
}

// --- Request / Response types ---

type saleItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
}

type salePaymentRequest struct {
	Instrument string `json:"instrument"`
	Amount     string `json:"amount"`
}

type saleCourtesyRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
	Reason    string `json:"reason"`
}

type finalizeSaleRequest struct {
	SaleType     string                `json:"sale_type"`
	CustomerID   string                `json:"customer_id"`
	Discount     string                `json:"discount"`
	Instrument   string                `json:"instrument"`
	MultiPayment bool                  `json:"multi_payment"`
	Payments     []salePaymentRequest  `json:"payments"`
	Items        []saleItemRequest     `json:"items"`
	Courtesy     []saleCourtesyRequest `json:"courtesy_items"`
	ApplyCredit  bool                  `json:"apply_credit"`
}

type saleTotalResponse struct {
	Subtotal          string `json:"subtotal"`
	Discount          string `json:"discount"`
	Total             string `json:"total"`
	TotalCost         string `json:"total_cost"`
	TotalCommissions  string `json:"total_commissions"`
	CustomerSurcharge string `json:"customer_surcharge"`
	FinalTotal        string `json:"final_total"`
	TotalProfit       string `json:"total_profit"`
	ProfitMargin      string `json:"profit_margin"`
}

type saleLineItemResponse struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int32     `json:"quantity"`
	UnitCost    string    `json:"unit_cost"`
	UnitPrice   string    `json:"unit_price"`
}

type salePaymentResponse struct {
	Instrument string `json:"instrument"`
	Amount     string `json:"amount"`
	Commission string `json:"commission"`
}

type saleCourtesyResponse struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int32     `json:"quantity"`
	TotalValue  string    `json:"total_value"`
	TotalCost   string    `json:"total_cost"`
	Reason      string    `json:"reason"`
}

type saleResponse struct {
	ID            uuid.UUID              `json:"id"`
	SaleType      string                 `json:"sale_type"`
	CustomerID    *uuid.UUID             `json:"customer_id,omitempty"`
	Items         []saleLineItemResponse `json:"items"`
	Payments      []salePaymentResponse  `json:"payments"`
	CourtesyItems []saleCourtesyResponse `json:"courtesy_items"`
	Totals        saleTotalResponse      `json:"totals"`
	CreditApplied string                 `json:"credit_applied"`
	RealProfit    *string                `json:"real_profit,omitempty"`
	RealTotalCost *string                `json:"real_total_cost,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	CreatedBy     uuid.UUID              `json:"created_by"`
}

func toSaleTotalResponse(t domain.SaleTotal) saleTotalResponse {
	return saleTotalResponse{
		Subtotal:          t.Subtotal.StringFixed(2),
		Discount:          t.Discount.StringFixed(2),
		Total:             t.Total.StringFixed(2),
		TotalCost:         t.TotalCost.StringFixed(2),
		TotalCommissions:  t.TotalCommissions.StringFixed(2),
		CustomerSurcharge: t.CustomerSurcharge.StringFixed(2),
		FinalTotal:        t.FinalTotal.StringFixed(2),
		TotalProfit:       t.TotalProfit.StringFixed(2),
		ProfitMargin:      t.ProfitMargin.String(),
	}
}

func toSaleResponse(s domain.Sale) saleResponse {
	resp := saleResponse{
		ID:       s.ID,
		SaleType: s.Type,
		Totals: toSaleTotalResponse(domain.SaleTotal{
			Subtotal:          s.Subtotal,
			Discount:          s.Discount,
			Total:             s.Total,
			TotalCost:         s.TotalCost,
			TotalCommissions:  s.TotalCommissions,
			CustomerSurcharge: s.CustomerSurcharge,
			FinalTotal:        s.FinalTotal,
			TotalProfit:       s.TotalProfit,
			ProfitMargin:      s.ProfitMargin,
		}),
		CreditApplied: s.CreditApplied.StringFixed(2),
		CreatedAt:     s.CreatedAt,
		CreatedBy:     s.CreatedBy,
	}

	if s.CustomerID != uuid.Nil {
		id := s.CustomerID
		resp.CustomerID = &id
	}
	if s.RealProfit != nil {
		v := s.RealProfit.StringFixed(2)
		resp.RealProfit = &v
	}
	if s.RealTotalCost != nil {
		v := s.RealTotalCost.StringFixed(2)
		resp.RealTotalCost = &v
	}

	resp.Items = make([]saleLineItemResponse, 0, len(s.Items))
	for _, it := range s.Items {
		resp.Items = append(resp.Items, saleLineItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitCost:    it.UnitCost.StringFixed(2),
			UnitPrice:   it.UnitPrice.StringFixed(2),
		})
	}
	resp.Payments = make([]salePaymentResponse, 0, len(s.Payments))
	for _, p := range s.Payments {
		resp.Payments = append(resp.Payments, salePaymentResponse{
			Instrument: p.Instrument,
			Amount:     p.Amount.StringFixed(2),
			Commission: p.Commission.StringFixed(2),
		})
	}
	resp.CourtesyItems = make([]saleCourtesyResponse, 0, len(s.CourtesyItems))
	for _, ci := range s.CourtesyItems {
		resp.CourtesyItems = append(resp.CourtesyItems, saleCourtesyResponse{
			ProductID:   ci.ProductID,
			ProductName: ci.ProductName,
			Quantity:    ci.Quantity,
			TotalValue:  ci.TotalValue.StringFixed(2),
			TotalCost:   ci.TotalCost.StringFixed(2),
			Reason:      ci.Reason,
		})
	}
	return resp
}

func toServiceRequest(req finalizeSaleRequest, createdBy uuid.UUID) service.FinalizeSaleRequest {
	out := service.FinalizeSaleRequest{
		SaleType:     req.SaleType,
		CustomerID:   req.CustomerID,
		Discount:     req.Discount,
		Instrument:   req.Instrument,
		MultiPayment: req.MultiPayment,
		ApplyCredit:  req.ApplyCredit,
		CreatedBy:    createdBy,
	}
	for _, it := range req.Items {
		out.Items = append(out.Items, service.SaleItemRequest{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	for _, p := range req.Payments {
		out.Payments = append(out.Payments, service.PaymentRequest{Instrument: p.Instrument, Amount: p.Amount})
	}
	for _, ci := range req.Courtesy {
		out.Courtesy = append(out.Courtesy, service.CourtesyRequest{ProductID: ci.ProductID, Quantity: ci.Quantity, Reason: ci.Reason})
	}
	return out
}

// --- Handlers ---

// Quote settles the request without persisting and returns the breakdown.
func (h *SaleHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req finalizeSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	totals, err := h.svc.Quote(r.Context(), toServiceRequest(req, userIDFromContext(r)))
	if err != nil {
		writeSaleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleTotalResponse(totals))
}

// Finalize closes the sale: settles, reconciles payments, and persists.
func (h *SaleHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	var req finalizeSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	sale, err := h.svc.Finalize(r.Context(), toServiceRequest(req, userIDFromContext(r)))
	if err != nil {
		writeSaleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSaleResponse(sale))
}

// List returns the persisted sale history.
func (h *SaleHandler) List(w http.ResponseWriter, r *http.Request) {
	sales, err := h.svc.ListSales(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]saleResponse, 0, len(sales))
	for _, s := range sales {
		resp = append(resp, toSaleResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns one sale by ID.
func (h *SaleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid sale id"})
		return
	}

	sale, err := h.svc.GetSale(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "sale not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toSaleResponse(sale))
}

// --- Helpers ---

func userIDFromContext(r *http.Request) uuid.UUID {
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		return claims.UserID
	}
	return uuid.Nil
}

// writeSaleError maps settlement and validation failures to statuses:
// malformed input is 400, missing references are 404, stock/credit
// contention is 409, and an unreconciled payment set is 422.
func writeSaleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrCustomerNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrPaymentShort):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, basket.ErrInsufficientStock),
		errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, store.ErrInsufficientCredit):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrEmptyItems),
		errors.Is(err, service.ErrInvalidSaleType),
		errors.Is(err, service.ErrInvalidProductID),
		errors.Is(err, service.ErrInvalidCustomerID),
		errors.Is(err, service.ErrInvalidDiscountValue),
		errors.Is(err, service.ErrInvalidPaymentAmount),
		errors.Is(err, basket.ErrInvalidQuantity),
		errors.Is(err, basket.ErrInvalidInstrument),
		errors.Is(err, basket.ErrInvalidAmount),
		errors.Is(err, basket.ErrPaymentModeConflict),
		errors.Is(err, basket.ErrCustomerRequired):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
