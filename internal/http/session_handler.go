package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_pos/internal/domain"
	"github.com/fjod/go_pos/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const defaultTimeout = 30 * time.Second

type SessionHandler struct {
	registry  *service.Registry
	storeName string
	timeout   time.Duration
	log       *slog.Logger
}

func NewSessionHandler(registry *service.Registry, storeName string, timeout time.Duration, log *slog.Logger) *SessionHandler {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &SessionHandler{
		registry:  registry,
		storeName: storeName,
		timeout:   timeout,
		log:       log,
	}
}

type CreateSessionRequestDTO struct {
	StoreID               string `json:"store_id"`
	StoreName             string `json:"store_name"`
	RequiresExplicitStore bool   `json:"requires_explicit_store"`
}

// ItemRequestDTO adds one unit when quantity is absent.
type ItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Quantity  *int   `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type SearchRequestDTO struct {
	Query     string `json:"query"`
	Immediate bool   `json:"immediate"`
}

// PricingRequestDTO changes only the fields present in the body.
type PricingRequestDTO struct {
	DiscountMode  *string          `json:"discount_mode"`
	DiscountValue *decimal.Decimal `json:"discount_value"`
	IncludeTax    *bool            `json:"include_tax"`
	TaxPercentage *decimal.Decimal `json:"tax_percentage"`
	PaymentMethod *string          `json:"payment_method"`
	StoreID       *string          `json:"store_id"`
}

type SubmitRequestDTO struct {
	Notes string `json:"notes"`
}

type SubmitResponseDTO struct {
	Sale    *domain.Sale     `json:"sale"`
	Session service.Snapshot `json:"session"`
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequestDTO
	if err := decodeOptional(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if !req.RequiresExplicitStore && strings.TrimSpace(req.StoreID) == "" {
		respondError(w, http.StatusBadRequest, "store_required", "store_id is required unless requires_explicit_store is set")
		return
	}
	storeName := req.StoreName
	if storeName == "" {
		storeName = h.storeName
	}

	s := h.registry.Open(service.SessionOptions{
		StoreID:               strings.TrimSpace(req.StoreID),
		StoreName:             storeName,
		RequiresExplicitStore: req.RequiresExplicitStore,
	})
	h.respondSnapshot(w, http.StatusCreated, s)
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respondSnapshot(w, http.StatusOK, s)
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.CloseSession(chi.URLParam(r, "id")); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search runs a catalog lookup for the session. By default the query is
// debounced and the handler answers 202; poll SearchResults for the outcome.
func (h *SessionHandler) Search(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	sr := s.Searcher()
	if sr == nil {
		respondError(w, http.StatusServiceUnavailable, "search_unavailable", "catalog search is not configured")
		return
	}

	var req SearchRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.Immediate {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		sr.Search(ctx, req.Query)
		respondJSON(w, http.StatusOK, sr.Results())
		return
	}

	sr.Query(r.Context(), req.Query)
	respondJSON(w, http.StatusAccepted, sr.Results())
}

func (h *SessionHandler) SearchResults(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	sr := s.Searcher()
	if sr == nil {
		respondError(w, http.StatusServiceUnavailable, "search_unavailable", "catalog search is not configured")
		return
	}
	respondJSON(w, http.StatusOK, sr.Results())
}

func (h *SessionHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	h.addLine(w, r, (*service.SaleSession).AddItemByID)
}

func (h *SessionHandler) AddFreebie(w http.ResponseWriter, r *http.Request) {
	h.addLine(w, r, (*service.SaleSession).AddFreebieByID)
}

func (h *SessionHandler) addLine(w http.ResponseWriter, r *http.Request, add func(*service.SaleSession, string, int) error) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req ItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	if err := add(s, req.ProductID, quantity); err != nil {
		handleError(w, err)
		return
	}
	h.respondSnapshot(w, http.StatusCreated, s)
}

func (h *SessionHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := s.UpdateQuantity(chi.URLParam(r, "product_id"), req.Quantity); err != nil {
		handleError(w, err)
		return
	}
	h.respondSnapshot(w, http.StatusOK, s)
}

func (h *SessionHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.RemoveItem(chi.URLParam(r, "product_id")); err != nil {
		handleError(w, err)
		return
	}
	h.respondSnapshot(w, http.StatusOK, s)
}

func (h *SessionHandler) RemoveFreebie(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.RemoveFreebie(chi.URLParam(r, "product_id")); err != nil {
		handleError(w, err)
		return
	}
	h.respondSnapshot(w, http.StatusOK, s)
}

func (h *SessionHandler) UpdatePricing(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req PricingRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	u := service.PricingUpdate{
		DiscountValue: req.DiscountValue,
		IncludeTax:    req.IncludeTax,
		TaxPercentage: req.TaxPercentage,
		StoreID:       req.StoreID,
	}
	if req.DiscountMode != nil {
		mode, err := domain.ParseDiscountMode(*req.DiscountMode)
		if err != nil {
			handleError(w, err)
			return
		}
		u.DiscountMode = &mode
	}
	if req.PaymentMethod != nil {
		method, err := domain.ParsePaymentMethod(*req.PaymentMethod)
		if err != nil {
			handleError(w, err)
			return
		}
		u.PaymentMethod = &method
	}

	if err := s.UpdatePricing(u); err != nil {
		handleError(w, err)
		return
	}
	h.respondSnapshot(w, http.StatusOK, s)
}

func (h *SessionHandler) Clear(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Clear(); err != nil {
		handleError(w, err)
		return
	}
	h.respondSnapshot(w, http.StatusOK, s)
}

func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req SubmitRequestDTO
	if err := decodeOptional(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	sale, err := s.Submit(ctx, req.Notes)
	if err != nil {
		h.log.WarnContext(ctx, "submit rejected",
			"session_id", s.ID(), "request_id", getRequestID(r.Context()), "error", err)
		handleError(w, err)
		return
	}

	snap, err := s.Snapshot()
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, SubmitResponseDTO{Sale: sale, Session: snap})
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*service.SaleSession, bool) {
	s, err := h.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return nil, false
	}
	return s, true
}

func (h *SessionHandler) respondSnapshot(w http.ResponseWriter, status int, s *service.SaleSession) {
	snap, err := s.Snapshot()
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, status, snap)
}

// decodeOptional decodes a JSON body that may be absent.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
