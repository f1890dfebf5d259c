package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// Ref is a reference to an API entity that may arrive either as a bare id
// string or as a populated object.
type Ref struct {
	ID   string `json:"_id"`
	Name string `json:"name,omitempty"`
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = Ref{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = Ref{ID: id}
		return nil
	}
	type plain Ref
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Ref(p)
	return nil
}

type SaleItem struct {
	Product  Ref     `json:"product"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Subtotal float64 `json:"subtotal"`
}

// Sale is a finalized record owned by the sales API.
type Sale struct {
	ID            string     `json:"_id"`
	Store         Ref        `json:"store"`
	User          Ref        `json:"user"`
	Items         []SaleItem `json:"items"`
	Subtotal      float64    `json:"subtotal"`
	Discount      float64    `json:"discount"`
	Tax           float64    `json:"tax"`
	Total         float64    `json:"total"`
	PaymentMethod string     `json:"paymentMethod"`
	Status        string     `json:"status,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type SaleRequestItem struct {
	Product   string  `json:"product"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// SaleRequest is the POST /sales body. Discount and Tax are money amounts
// already computed by the calculator, never percentages.
type SaleRequest struct {
	Store         string            `json:"store"`
	Items         []SaleRequestItem `json:"items"`
	Discount      float64           `json:"discount"`
	Tax           float64           `json:"tax"`
	PaymentMethod PaymentMethod     `json:"paymentMethod"`
	Notes         string            `json:"notes,omitempty"`
}

type PaymentMethodTotal struct {
	Method string  `json:"method"`
	Total  float64 `json:"total"`
	Count  int     `json:"count"`
}

type DailyCutSummary struct {
	TotalSales   int     `json:"totalSales"`
	TotalRevenue float64 `json:"totalRevenue"`
}

// DailyCut is the end-of-day report for one store.
type DailyCut struct {
	Date           time.Time            `json:"date"`
	Store          Ref                  `json:"store"`
	Summary        DailyCutSummary      `json:"summary"`
	PaymentMethods []PaymentMethodTotal `json:"paymentMethods"`
}

// SalesFilter narrows a sales history listing.
type SalesFilter struct {
	Search   string
	DateFrom string
	DateTo   string
	StoreID  string
}
