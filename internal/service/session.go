package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/go_pos/internal/catalog"
	"github.com/fjod/go_pos/internal/domain"
	"github.com/fjod/go_pos/internal/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SalesAPI is the part of the remote API a session submits to.
type SalesAPI interface {
	CreateSale(ctx context.Context, req domain.SaleRequest) (*domain.Sale, error)
}

// ReceiptNotifier is told about every sale the API accepted.
type ReceiptNotifier interface {
	SaleCompleted(ctx context.Context, receipt domain.Receipt) error
}

type SessionOptions struct {
	// StoreID preselects the store for single-store operators.
	StoreID string
	// RequiresExplicitStore marks multi-store operators, who must pick a store
	// for every sale; Clear forgets their selection.
	RequiresExplicitStore bool
	StoreName             string
	Notifier              ReceiptNotifier
	Logger                *slog.Logger
}

// SaleSession owns one cashier's cart, pricing inputs and submission state.
type SaleSession struct {
	id   string
	api  SalesAPI
	opts SessionOptions
	log  *slog.Logger

	mu       sync.Mutex
	cart     *domain.Cart
	pricing  domain.PricingContext
	status   domain.SessionStatus
	known    map[string]domain.Product
	lastUsed time.Time

	searcher *catalog.Searcher
}

func NewSaleSession(api SalesAPI, opts SessionOptions) *SaleSession {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &SaleSession{
		id:       uuid.NewString(),
		api:      api,
		opts:     opts,
		cart:     domain.NewCart(),
		status:   domain.SessionEmpty,
		known:    make(map[string]domain.Product),
		lastUsed: time.Now(),
	}
	s.log = log.With("session_id", s.id)
	s.pricing = s.defaultPricing()
	return s
}

// Snapshot is a consistent read of the session.
type Snapshot struct {
	ID       string                `json:"id"`
	Status   domain.SessionStatus  `json:"status"`
	Items    []domain.CartLineItem `json:"items"`
	Freebies []domain.CartLineItem `json:"freebies"`
	Pricing  domain.PricingContext `json:"pricing"`
	Totals   pricing.Totals        `json:"totals"`
}

// PricingUpdate changes only the fields that are set.
type PricingUpdate struct {
	DiscountMode  *domain.DiscountMode
	DiscountValue *decimal.Decimal
	IncludeTax    *bool
	TaxPercentage *decimal.Decimal
	PaymentMethod *domain.PaymentMethod
	StoreID       *string
}

func (s *SaleSession) ID() string {
	return s.id
}

func (s *SaleSession) Status() domain.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Remember records products seen through catalog lookup so they can later
// be added by id.
func (s *SaleSession) Remember(products []domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range products {
		s.known[p.ID] = p
	}
}

func (s *SaleSession) AddItem(p domain.Product, quantity int) error {
	return s.mutate(func() error {
		return s.cart.AddItem(p, quantity)
	})
}

// AddItemByID adds a product previously returned by a search.
func (s *SaleSession) AddItemByID(productID string, quantity int) error {
	return s.mutate(func() error {
		p, ok := s.known[productID]
		if !ok {
			return ErrProductNotFound
		}
		return s.cart.AddItem(p, quantity)
	})
}

func (s *SaleSession) UpdateQuantity(productID string, quantity int) error {
	return s.mutate(func() error {
		s.cart.UpdateQuantity(productID, quantity)
		return nil
	})
}

func (s *SaleSession) RemoveItem(productID string) error {
	return s.mutate(func() error {
		s.cart.RemoveItem(productID)
		return nil
	})
}

func (s *SaleSession) AddFreebie(p domain.Product, quantity int) error {
	return s.mutate(func() error {
		return s.cart.AddFreebie(p, quantity)
	})
}

func (s *SaleSession) AddFreebieByID(productID string, quantity int) error {
	return s.mutate(func() error {
		p, ok := s.known[productID]
		if !ok {
			return ErrProductNotFound
		}
		return s.cart.AddFreebie(p, quantity)
	})
}

func (s *SaleSession) RemoveFreebie(productID string) error {
	return s.mutate(func() error {
		s.cart.RemoveFreebie(productID)
		return nil
	})
}

// UpdatePricing applies u atomically; an invalid update leaves pricing unchanged.
func (s *SaleSession) UpdatePricing(u PricingUpdate) error {
	return s.mutate(func() error {
		pc := s.pricing
		if u.DiscountMode != nil {
			pc.DiscountMode = *u.DiscountMode
		}
		if u.DiscountValue != nil {
			pc.DiscountValue = *u.DiscountValue
		}
		if u.IncludeTax != nil {
			pc.IncludeTax = *u.IncludeTax
		}
		if u.TaxPercentage != nil {
			pc.TaxPercentage = *u.TaxPercentage
		}
		if u.PaymentMethod != nil {
			pc.PaymentMethod = *u.PaymentMethod
		}
		if u.StoreID != nil {
			pc.StoreID = *u.StoreID
		}
		if err := pc.Validate(); err != nil {
			return err
		}
		s.pricing = pc
		return nil
	})
}

func (s *SaleSession) SelectStore(storeID string) error {
	return s.UpdatePricing(PricingUpdate{StoreID: &storeID})
}

// Clear empties the cart and restores default pricing.
func (s *SaleSession) Clear() error {
	return s.mutate(func() error {
		s.resetLocked()
		return nil
	})
}

func (s *SaleSession) Totals() (pricing.Totals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pricing.Calculate(s.cart.Items(), s.pricing)
}

func (s *SaleSession) Snapshot() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.cart.Items()
	totals, err := pricing.Calculate(items, s.pricing)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		ID:       s.id,
		Status:   s.status,
		Items:    nonNil(items),
		Freebies: nonNil(s.cart.Freebies()),
		Pricing:  s.pricing,
		Totals:   totals,
	}, nil
}

// Searcher returns the session's debounced catalog searcher, if attached.
func (s *SaleSession) Searcher() *catalog.Searcher {
	return s.searcher
}

func (s *SaleSession) attachSearcher(svc *catalog.Service) {
	s.searcher = svc.NewSearcher(s.Remember)
}

// Close releases the session's background resources.
func (s *SaleSession) Close() {
	if s.searcher != nil {
		s.searcher.Close()
	}
}

func (s *SaleSession) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

// expirable reports whether the session has been idle for ttl and has no
// submission in flight.
func (s *SaleSession) expirable(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.status.IsTransient() && now.Sub(s.lastUsed) >= ttl
}

// mutate runs fn under the session lock unless a submission is in flight,
// then moves the status to match the cart contents.
func (s *SaleSession) mutate(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == domain.SessionSubmitting {
		return ErrSubmissionInFlight
	}
	s.lastUsed = time.Now()
	if err := fn(); err != nil {
		return err
	}
	return s.transitionLocked(s.restingStatusLocked())
}

func (s *SaleSession) restingStatusLocked() domain.SessionStatus {
	if s.cart.IsEmpty() {
		return domain.SessionEmpty
	}
	return domain.SessionBuilding
}

func (s *SaleSession) transitionLocked(to domain.SessionStatus) error {
	if !domain.CanTransitionTo(s.status, to) {
		return IllegalTransitionError
	}
	s.status = to
	return nil
}

func (s *SaleSession) resetLocked() {
	s.cart.Reset()
	s.pricing = s.defaultPricing()
}

func (s *SaleSession) defaultPricing() domain.PricingContext {
	pc := domain.DefaultPricingContext()
	if !s.opts.RequiresExplicitStore {
		pc.StoreID = s.opts.StoreID
	}
	return pc
}

func nonNil(lines []domain.CartLineItem) []domain.CartLineItem {
	if lines == nil {
		return []domain.CartLineItem{}
	}
	return lines
}
