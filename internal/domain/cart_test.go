package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(id string, price int64) Product {
	return Product{ID: id, Name: "product " + id, SKU: "SKU-" + id, Price: decimal.NewFromInt(price)}
}

func TestAddItem_MergesDuplicateProduct(t *testing.T) {
	for _, tc := range []struct{ q1, q2 int }{{1, 1}, {2, 5}, {10, 3}} {
		cart := NewCart()
		p := product("A", 50)

		require.NoError(t, cart.AddItem(p, tc.q1))
		require.NoError(t, cart.AddItem(p, tc.q2))

		items := cart.Items()
		require.Len(t, items, 1)
		assert.Equal(t, tc.q1+tc.q2, items[0].Quantity)
		assert.True(t, decimal.NewFromInt(int64((tc.q1+tc.q2)*50)).Equal(items[0].Subtotal))
	}
}

func TestAddItem_RejectsNonPositiveQuantity(t *testing.T) {
	cart := NewCart()

	assert.ErrorIs(t, cart.AddItem(product("A", 10), 0), ErrInvalidQuantity)
	assert.ErrorIs(t, cart.AddItem(product("A", 10), -3), ErrInvalidQuantity)
	assert.True(t, cart.IsEmpty())
}

func TestAddItem_RejectsNegativePrice(t *testing.T) {
	cart := NewCart()
	err := cart.AddItem(product("A", -1), 1)
	assert.ErrorIs(t, err, ErrNegativePrice)
	assert.True(t, cart.IsEmpty())
}

func TestAddItem_SnapshotsPrice(t *testing.T) {
	cart := NewCart()
	p := product("A", 20)
	require.NoError(t, cart.AddItem(p, 1))

	// a later catalog price must not leak into the existing line
	p.Price = decimal.NewFromInt(99)
	require.NoError(t, cart.AddItem(p, 1))

	items := cart.Items()
	require.Len(t, items, 1)
	assert.True(t, decimal.NewFromInt(20).Equal(items[0].UnitPrice))
	assert.True(t, decimal.NewFromInt(40).Equal(items[0].Subtotal))
}

func TestUpdateQuantity_ZeroOrNegativeRemoves(t *testing.T) {
	for _, q := range []int{0, -5} {
		cart := NewCart()
		require.NoError(t, cart.AddItem(product("A", 10), 2))
		require.NoError(t, cart.AddItem(product("B", 10), 1))

		cart.UpdateQuantity("A", q)

		items := cart.Items()
		require.Len(t, items, 1)
		assert.Equal(t, "B", items[0].ProductID)
	}
}

func TestUpdateQuantity_OnlyTouchesTargetLine(t *testing.T) {
	cart := NewCart()
	require.NoError(t, cart.AddItem(product("A", 10), 2))
	require.NoError(t, cart.AddItem(product("B", 7), 3))

	cart.UpdateQuantity("A", 5)

	items := cart.Items()
	assert.True(t, decimal.NewFromInt(50).Equal(items[0].Subtotal))
	assert.True(t, decimal.NewFromInt(21).Equal(items[1].Subtotal))
}

func TestUpdateQuantity_UnknownProductIsNoop(t *testing.T) {
	cart := NewCart()
	require.NoError(t, cart.AddItem(product("A", 10), 2))

	cart.UpdateQuantity("missing", 4)
	cart.RemoveItem("missing")

	require.Len(t, cart.Items(), 1)
	assert.Equal(t, 2, cart.Items()[0].Quantity)
}

func TestFreebies_ArePricedAtZeroAndMerge(t *testing.T) {
	cart := NewCart()
	require.NoError(t, cart.AddItem(product("A", 50), 1))
	before := cart.Subtotal()

	require.NoError(t, cart.AddFreebie(product("C", 300), 1))
	require.NoError(t, cart.AddFreebie(product("C", 300), 2))

	freebies := cart.Freebies()
	require.Len(t, freebies, 1)
	assert.Equal(t, 3, freebies[0].Quantity)
	assert.True(t, freebies[0].UnitPrice.IsZero())
	assert.True(t, freebies[0].Subtotal.IsZero())
	assert.True(t, before.Equal(cart.Subtotal()))

	cart.RemoveFreebie("C")
	assert.Empty(t, cart.Freebies())
}

func TestHasItems_FreebiesAloneAreNotSellable(t *testing.T) {
	cart := NewCart()
	require.NoError(t, cart.AddFreebie(product("C", 5), 1))

	assert.False(t, cart.HasItems())
	assert.False(t, cart.IsEmpty())
}

func TestItems_ReturnsCopy(t *testing.T) {
	cart := NewCart()
	require.NoError(t, cart.AddItem(product("A", 10), 1))

	items := cart.Items()
	items[0].Quantity = 42

	assert.Equal(t, 1, cart.Items()[0].Quantity)
}

func TestRef_UnmarshalStringOrObject(t *testing.T) {
	var sale Sale
	body := `{"_id":"s1","store":"store-1","user":{"_id":"u1","name":"Ana"},"items":[],"total":10,"paymentMethod":"nequi"}`
	require.NoError(t, json.Unmarshal([]byte(body), &sale))

	assert.Equal(t, "store-1", sale.Store.ID)
	assert.Equal(t, "u1", sale.User.ID)
	assert.Equal(t, "Ana", sale.User.Name)
}
