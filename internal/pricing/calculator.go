// Package pricing derives sale totals from cart lines and a pricing context,
// and aggregates finalized sales for the daily cash cut.
package pricing

import (
	"fmt"

	"github.com/fjod/go_pos/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Totals are derived on every read and never stored.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	Total          decimal.Decimal `json:"total"`
}

// Calculate applies the discount to the subtotal and then the tax to the
// discounted base. Discounts are not clamped: a discount larger than the
// subtotal yields a negative total.
func Calculate(items []domain.CartLineItem, pc domain.PricingContext) (Totals, error) {
	subtotal := decimal.Zero
	for _, li := range items {
		subtotal = subtotal.Add(li.Subtotal)
	}

	var discount decimal.Decimal
	switch pc.DiscountMode {
	case domain.DiscountPercentage:
		discount = subtotal.Mul(pc.DiscountValue).Div(hundred)
	case domain.DiscountFixed:
		discount = pc.DiscountValue
	default:
		return Totals{}, fmt.Errorf("%w: %q", domain.ErrUnknownDiscountMode, pc.DiscountMode)
	}

	tax := decimal.Zero
	if pc.IncludeTax {
		tax = subtotal.Sub(discount).Mul(pc.TaxPercentage).Div(hundred)
	}

	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxAmount:      tax,
		Total:          subtotal.Sub(discount).Add(tax),
	}, nil
}
