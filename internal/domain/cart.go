package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLineItem is a product snapshot held by the cart. Name and unit price are
// copied when the line is created and do not follow later catalog changes.
// Freebies use the same shape with UnitPrice and Subtotal pinned to zero.
type CartLineItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	AddedAt   time.Time       `json:"added_at"`
}

func (li *CartLineItem) setQuantity(quantity int) {
	li.Quantity = quantity
	li.Subtotal = li.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// Cart holds priced line items and freebies, each keyed by product id.
// Every stored line has quantity >= 1.
type Cart struct {
	items    []CartLineItem
	freebies []CartLineItem
}

func NewCart() *Cart {
	return &Cart{}
}

// AddItem appends the product or, when already present, sums the quantity.
func (c *Cart) AddItem(p Product, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if p.Price.IsNegative() {
		return ErrNegativePrice
	}
	c.items = addLine(c.items, p, p.Price, quantity)
	return nil
}

// UpdateQuantity replaces the quantity of a line; quantity <= 0 removes it.
func (c *Cart) UpdateQuantity(productID string, quantity int) {
	if quantity <= 0 {
		c.RemoveItem(productID)
		return
	}
	if i := indexOf(c.items, productID); i >= 0 {
		c.items[i].setQuantity(quantity)
	}
}

func (c *Cart) RemoveItem(productID string) {
	c.items = removeLine(c.items, productID)
}

// AddFreebie adds a zero-price give-away line regardless of the catalog price.
func (c *Cart) AddFreebie(p Product, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	c.freebies = addLine(c.freebies, p, decimal.Zero, quantity)
	return nil
}

func (c *Cart) RemoveFreebie(productID string) {
	c.freebies = removeLine(c.freebies, productID)
}

// Items returns a copy of the priced lines in insertion order.
func (c *Cart) Items() []CartLineItem {
	return append([]CartLineItem(nil), c.items...)
}

// Freebies returns a copy of the freebie lines in insertion order.
func (c *Cart) Freebies() []CartLineItem {
	return append([]CartLineItem(nil), c.freebies...)
}

// HasItems reports whether the cart holds at least one priced line.
// Freebies alone do not make a sellable cart.
func (c *Cart) HasItems() bool {
	return len(c.items) > 0
}

func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0 && len(c.freebies) == 0
}

// Subtotal sums the priced lines. Freebies never contribute.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, li := range c.items {
		sum = sum.Add(li.Subtotal)
	}
	return sum
}

func (c *Cart) Reset() {
	c.items = nil
	c.freebies = nil
}

func addLine(lines []CartLineItem, p Product, unitPrice decimal.Decimal, quantity int) []CartLineItem {
	if i := indexOf(lines, p.ID); i >= 0 {
		lines[i].setQuantity(lines[i].Quantity + quantity)
		return lines
	}
	li := CartLineItem{
		ProductID: p.ID,
		Name:      p.Name,
		SKU:       p.SKU,
		UnitPrice: unitPrice,
		AddedAt:   time.Now(),
	}
	li.setQuantity(quantity)
	return append(lines, li)
}

func removeLine(lines []CartLineItem, productID string) []CartLineItem {
	i := indexOf(lines, productID)
	if i < 0 {
		return lines
	}
	return append(lines[:i], lines[i+1:]...)
}

func indexOf(lines []CartLineItem, productID string) int {
	for i := range lines {
		if lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}
