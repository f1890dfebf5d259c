package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_pos/internal/domain"
	"github.com/fjod/go_pos/internal/pricing"
	"github.com/fjod/go_pos/internal/salesapi"
)

// Submit sends the cart to the sales API. Only one submission per session
// may be in flight. On success the session is cleared; on failure the cart
// and pricing are left exactly as they were.
func (s *SaleSession) Submit(ctx context.Context, notes string) (*domain.Sale, error) {
	s.mu.Lock()
	if s.status == domain.SessionSubmitting {
		s.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	if !s.cart.HasItems() {
		s.mu.Unlock()
		return nil, ErrEmptyCart
	}
	pc := s.pricing
	if pc.StoreID == "" {
		s.mu.Unlock()
		return nil, ErrStoreRequired
	}

	items := s.cart.Items()
	freebies := s.cart.Freebies()
	totals, err := pricing.Calculate(items, pc)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if err := s.transitionLocked(domain.SessionSubmitting); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.lastUsed = time.Now()
	s.mu.Unlock()

	req := buildSaleRequest(items, freebies, totals, pc, notes)
	sale, err := s.api.CreateSale(ctx, req)

	s.mu.Lock()
	if err != nil {
		_ = s.transitionLocked(domain.SessionBuilding)
		s.mu.Unlock()

		msg := salesapi.Message(err)
		if msg == "" {
			msg = GenericSubmissionMessage
		}
		s.log.ErrorContext(ctx, "sale submission failed", "store_id", pc.StoreID, "error", err)
		return nil, &SubmissionError{Message: msg, Err: err}
	}
	if sale == nil {
		sale = &domain.Sale{}
	}
	s.resetLocked()
	_ = s.transitionLocked(domain.SessionEmpty)
	s.mu.Unlock()

	s.log.InfoContext(ctx, "sale submitted", "sale_id", sale.ID, "store_id", pc.StoreID, "total", totals.Total.String())

	if s.opts.Notifier != nil {
		receipt := domain.Receipt{
			SaleID:        sale.ID,
			StoreID:       pc.StoreID,
			StoreName:     s.opts.StoreName,
			Items:         items,
			Freebies:      freebies,
			Subtotal:      totals.Subtotal,
			Discount:      totals.DiscountAmount,
			Tax:           totals.TaxAmount,
			Total:         totals.Total,
			PaymentMethod: pc.PaymentMethod,
			Notes:         req.Notes,
			CompletedAt:   time.Now(),
		}
		if err := s.opts.Notifier.SaleCompleted(context.WithoutCancel(ctx), receipt); err != nil {
			s.log.WarnContext(ctx, "receipt notification failed", "sale_id", sale.ID, "error", err)
		}
	}
	return sale, nil
}

// buildSaleRequest flattens priced lines and freebies into one item list and
// attaches the computed discount and tax amounts.
func buildSaleRequest(items, freebies []domain.CartLineItem, totals pricing.Totals, pc domain.PricingContext, notes string) domain.SaleRequest {
	lines := make([]domain.SaleRequestItem, 0, len(items)+len(freebies))
	for _, li := range items {
		lines = append(lines, domain.SaleRequestItem{
			Product:   li.ProductID,
			Quantity:  li.Quantity,
			UnitPrice: li.UnitPrice.InexactFloat64(),
		})
	}
	for _, li := range freebies {
		lines = append(lines, domain.SaleRequestItem{
			Product:  li.ProductID,
			Quantity: li.Quantity,
		})
	}

	return domain.SaleRequest{
		Store:         pc.StoreID,
		Items:         lines,
		Discount:      totals.DiscountAmount.InexactFloat64(),
		Tax:           totals.TaxAmount.InexactFloat64(),
		PaymentMethod: pc.PaymentMethod,
		Notes:         saleNotes(notes, len(freebies)),
	}
}

func saleNotes(notes string, freebieLines int) string {
	notes = strings.TrimSpace(notes)
	if freebieLines == 0 {
		return notes
	}
	generated := fmt.Sprintf("Incluye %d ñapa(s)", freebieLines)
	if notes == "" {
		return generated
	}
	return notes + " - " + generated
}
