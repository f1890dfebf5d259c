package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Receipt describes a sale the API accepted, with the line names and money
// amounts the cashier saw when submitting it.
type Receipt struct {
	SaleID        string          `json:"sale_id"`
	StoreID       string          `json:"store_id"`
	StoreName     string          `json:"store_name,omitempty"`
	Items         []CartLineItem  `json:"items"`
	Freebies      []CartLineItem  `json:"freebies,omitempty"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Notes         string          `json:"notes,omitempty"`
	CompletedAt   time.Time       `json:"completed_at"`
}
