package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type DiscountMode string

const (
	DiscountPercentage DiscountMode = "percentage"
	DiscountFixed      DiscountMode = "fixed"
)

func ParseDiscountMode(s string) (DiscountMode, error) {
	switch m := DiscountMode(s); m {
	case DiscountPercentage, DiscountFixed:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDiscountMode, s)
	}
}

func (m DiscountMode) String() string {
	return string(m)
}

// PaymentMethod is one of the tender tokens understood by the sales API.
type PaymentMethod string

const (
	PaymentCash             PaymentMethod = "efectivo"
	PaymentNequi            PaymentMethod = "nequi"
	PaymentDaviplata        PaymentMethod = "daviplata"
	PaymentLlaveBancolombia PaymentMethod = "llave_bancolombia"
	PaymentCard             PaymentMethod = "tarjeta"
	PaymentTransfer         PaymentMethod = "transferencia"
)

// PaymentMethods lists every recognized method in reporting order.
var PaymentMethods = []PaymentMethod{
	PaymentCash,
	PaymentNequi,
	PaymentDaviplata,
	PaymentLlaveBancolombia,
	PaymentCard,
	PaymentTransfer,
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	for _, m := range PaymentMethods {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, s)
}

func (m PaymentMethod) String() string {
	return string(m)
}

const DefaultTaxPercentage = 16

// PricingContext holds the per-sale inputs the calculator applies to the cart.
type PricingContext struct {
	DiscountMode  DiscountMode    `json:"discount_mode"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	IncludeTax    bool            `json:"include_tax"`
	TaxPercentage decimal.Decimal `json:"tax_percentage"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	StoreID       string          `json:"store_id,omitempty"`
}

func DefaultPricingContext() PricingContext {
	return PricingContext{
		DiscountMode:  DiscountPercentage,
		DiscountValue: decimal.Zero,
		TaxPercentage: decimal.NewFromInt(DefaultTaxPercentage),
		PaymentMethod: PaymentCash,
	}
}

// Validate rejects unknown tokens and negative amounts. Percentages above 100
// and fixed discounts larger than the subtotal are accepted as-is.
func (pc PricingContext) Validate() error {
	if _, err := ParseDiscountMode(string(pc.DiscountMode)); err != nil {
		return err
	}
	if _, err := ParsePaymentMethod(string(pc.PaymentMethod)); err != nil {
		return err
	}
	if pc.DiscountValue.IsNegative() || pc.TaxPercentage.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}
