package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestCartAddMergesSameVariant(t *testing.T) {
	cart, err := Cart{}.Add(CartItem{VariantID: "v1", Quantity: 1, UnitPrice: decimal.NewFromInt(12)})
	require.NoError(t, err)
	cart, err = cart.Add(CartItem{VariantID: "v2", Quantity: 2, UnitPrice: decimal.NewFromInt(5)})
	require.NoError(t, err)
	cart, err = cart.Add(CartItem{VariantID: " v1 ", Quantity: 3, UnitPrice: decimal.NewFromInt(12)})
	require.NoError(t, err)

	require.Len(t, cart.Items, 2)
	require.Equal(t, "v1", cart.Items[0].VariantID)
	require.Equal(t, 4, cart.Items[0].Quantity)
	require.Equal(t, 6, cart.ItemCount())
}

func TestCartAddRejectsInvalidItems(t *testing.T) {
	cases := map[string]CartItem{
		"missing variant": {Quantity: 1},
		"zero quantity":   {VariantID: "v1"},
		"negative price":  {VariantID: "v1", Quantity: 1, UnitPrice: decimal.NewFromInt(-1)},
	}
	for name, item := range cases {
		t.Run(name, func(t *testing.T) {
			cart, err := Cart{}.Add(item)
			require.True(t, errors.Is(err, ErrInvalidCartItem), "got %v", err)
			require.True(t, cart.IsEmpty())
		})
	}
}

func TestCartOperationsDoNotMutateReceiver(t *testing.T) {
	original := Cart{Items: []CartItem{
		{VariantID: "a", Quantity: 1},
		{VariantID: "b", Quantity: 2},
	}}

	updated := original.SetQuantity("a", 5)
	require.Equal(t, 1, original.Items[0].Quantity)
	require.Equal(t, 5, updated.Items[0].Quantity)

	removed := original.SetQuantity("b", 0)
	require.Len(t, removed.Items, 1)
	require.Len(t, original.Items, 2)

	_, found := removed.Find("b")
	require.False(t, found)
	item, found := original.Find("b")
	require.True(t, found)
	require.Equal(t, 2, item.Quantity)

	require.Same(t, &original.Items[0], &original.SetQuantity("zzz", 3).Items[0])
	require.True(t, original.Clear().IsEmpty())
}
