package domain

import "github.com/shopspring/decimal"

// Product is a catalog entry as returned by the products search endpoint.
type Product struct {
	ID       string          `json:"_id"`
	Name     string          `json:"name"`
	SKU      string          `json:"sku"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	Stock    *int            `json:"stock,omitempty"`
}
