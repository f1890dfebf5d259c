package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_pos/internal/domain"
	"github.com/fjod/go_pos/internal/pricing"
)

// ReportsAPI is the read side of the sales API used for history and the
// end-of-day cut.
type ReportsAPI interface {
	ListSales(ctx context.Context, f domain.SalesFilter) ([]domain.Sale, error)
	DailyCut(ctx context.Context, storeID string) (*domain.DailyCut, error)
	Stores(ctx context.Context) ([]domain.Ref, error)
}

type ReportHandler struct {
	api     ReportsAPI
	timeout time.Duration
}

func NewReportHandler(api ReportsAPI, timeout time.Duration) *ReportHandler {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ReportHandler{api: api, timeout: timeout}
}

type SalesResponseDTO struct {
	Sales     []domain.Sale         `json:"sales"`
	Breakdown []pricing.MethodShare `json:"breakdown"`
}

type DailyCutResponseDTO struct {
	Cut          *domain.DailyCut      `json:"cut"`
	Breakdown    []pricing.MethodShare `json:"breakdown"`
	ExpectedCash float64               `json:"expected_cash"`
}

type ReconcileRequestDTO struct {
	StoreID      string   `json:"store_id"`
	CountedCash  *float64 `json:"counted_cash"`
	Observations string   `json:"observations"`
}

type ReconcileResponseDTO struct {
	StoreID        string                     `json:"store_id"`
	Date           time.Time                  `json:"date"`
	Reconciliation pricing.CashReconciliation `json:"reconciliation"`
	Observations   string                     `json:"observations,omitempty"`
}

func (h *ReportHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	sales, err := h.api.ListSales(ctx, domain.SalesFilter{
		Search:   q.Get("search"),
		DateFrom: q.Get("date_from"),
		DateTo:   q.Get("date_to"),
		StoreID:  q.Get("store_id"),
	})
	if err != nil {
		handleError(w, err)
		return
	}
	if sales == nil {
		sales = []domain.Sale{}
	}

	breakdown, err := pricing.PaymentMethodBreakdown(sales)
	if err != nil {
		respondError(w, http.StatusBadGateway, "unexpected_payment_method", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, SalesResponseDTO{Sales: sales, Breakdown: breakdown})
}

func (h *ReportHandler) DailyCut(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cut, err := h.api.DailyCut(ctx, r.URL.Query().Get("store_id"))
	if err != nil {
		handleError(w, err)
		return
	}
	breakdown, err := pricing.ShareOfTotals(cut.PaymentMethods)
	if err != nil {
		respondError(w, http.StatusBadGateway, "unexpected_payment_method", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, DailyCutResponseDTO{
		Cut:          cut,
		Breakdown:    breakdown,
		ExpectedCash: pricing.ExpectedCash(cut.PaymentMethods),
	})
}

// Reconcile compares the cash counted in the drawer with the cash sales the
// API recorded today.
func (h *ReportHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ReconcileRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.CountedCash == nil {
		respondError(w, http.StatusBadRequest, "invalid_counted_cash", "counted_cash is required")
		return
	}
	if *req.CountedCash < 0 {
		respondError(w, http.StatusBadRequest, "invalid_counted_cash", "counted_cash must not be negative")
		return
	}

	cut, err := h.api.DailyCut(ctx, req.StoreID)
	if err != nil {
		handleError(w, err)
		return
	}
	storeID := cut.Store.ID
	if storeID == "" {
		storeID = req.StoreID
	}

	respondJSON(w, http.StatusOK, ReconcileResponseDTO{
		StoreID:        storeID,
		Date:           cut.Date,
		Reconciliation: pricing.ReconcileCash(pricing.ExpectedCash(cut.PaymentMethods), *req.CountedCash),
		Observations:   req.Observations,
	})
}

func (h *ReportHandler) Stores(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	stores, err := h.api.Stores(ctx)
	if err != nil {
		handleError(w, err)
		return
	}
	if stores == nil {
		stores = []domain.Ref{}
	}
	respondJSON(w, http.StatusOK, stores)
}
