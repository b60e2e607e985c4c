package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Cart.Subtotal Tests
// ============================================================================

func TestSubtotal_SingleItem(t *testing.T) {
	c := &Cart{
		Items: []LineItem{
			{UnitPrice: 1999, Quantity: 2},
		},
	}
	assert.Equal(t, int64(3998), c.Subtotal())
}

func TestSubtotal_MultipleItems(t *testing.T) {
	c := &Cart{
		Items: []LineItem{
			{UnitPrice: 1000, Quantity: 2},
			{UnitPrice: 500, Quantity: 3},
			{UnitPrice: 2500, Quantity: 1},
		},
	}
	// 2000 + 1500 + 2500 = 6000
	assert.Equal(t, int64(6000), c.Subtotal())
}

func TestSubtotal_EmptyCart(t *testing.T) {
	c := &Cart{Items: []LineItem{}}
	assert.Equal(t, int64(0), c.Subtotal())
}

func TestSubtotal_NilItems(t *testing.T) {
	c := &Cart{}
	assert.Equal(t, int64(0), c.Subtotal())
}

// ============================================================================
// Cart.ItemCount Tests
// ============================================================================

func TestItemCount_SumsQuantities(t *testing.T) {
	c := &Cart{
		Items: []LineItem{
			{ID: "a", Quantity: 2},
			{ID: "b", Quantity: 3},
		},
	}
	assert.Equal(t, 5, c.ItemCount())
}

func TestItemCount_Empty(t *testing.T) {
	c := &Cart{}
	assert.Equal(t, 0, c.ItemCount())
}

// ============================================================================
// Cart.FindIndex Tests
// ============================================================================

func TestFindIndex_Found(t *testing.T) {
	c := &Cart{
		Items: []LineItem{
			{ID: "a"},
			{ID: "b"},
		},
	}
	assert.Equal(t, 1, c.FindIndex("b"))
}

func TestFindIndex_NotFound(t *testing.T) {
	c := &Cart{Items: []LineItem{{ID: "a"}}}
	assert.Equal(t, -1, c.FindIndex("zzz"))
}

// ============================================================================
// Cart.Snapshot Tests
// ============================================================================

func TestSnapshot_DerivedTotals(t *testing.T) {
	now := time.Now().UTC()
	c := &Cart{
		Items: []LineItem{
			{ID: "a", UnitPrice: 100, Quantity: 2},
			{ID: "b", UnitPrice: 50, Quantity: 1},
		},
		UpdatedAt: now,
	}

	snap := c.Snapshot()

	assert.Equal(t, 3, snap.ItemCount)
	assert.Equal(t, int64(250), snap.Subtotal)
	assert.Equal(t, now, snap.UpdatedAt)
	assert.Len(t, snap.Items, 2)
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	c := &Cart{
		Items: []LineItem{
			{ID: "a", Quantity: 1, Attributes: map[string]string{"size": "M"}},
		},
	}

	snap := c.Snapshot()
	snap.Items[0].Quantity = 99
	snap.Items[0].Attributes["size"] = "XL"

	assert.Equal(t, 1, c.Items[0].Quantity)
	assert.Equal(t, "M", c.Items[0].Attributes["size"])
}

func TestSnapshot_EmptyCartHasNonNilItems(t *testing.T) {
	c := &Cart{}
	snap := c.Snapshot()
	assert.NotNil(t, snap.Items)
	assert.Empty(t, snap.Items)
}

// ============================================================================
// CopyItems Tests
// ============================================================================

func TestCopyItems_Nil(t *testing.T) {
	out := CopyItems(nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestCopyItems_IndependentAttributes(t *testing.T) {
	in := []LineItem{
		{ID: "a", Attributes: map[string]string{"color": "red"}},
	}
	out := CopyItems(in)
	out[0].Attributes["color"] = "blue"

	assert.Equal(t, "red", in[0].Attributes["color"])
}

// ============================================================================
// NormalizeItems Tests
// ============================================================================

func TestNormalizeItems_DropsInvalidEntries(t *testing.T) {
	in := []LineItem{
		{ID: "", Quantity: 1},
		{ID: "a", Quantity: 0},
		{ID: "b", Quantity: -3},
		{ID: "c", Quantity: 2},
	}

	out := NormalizeItems(in)

	require.Len(t, out, 1)
	assert.Equal(t, "c", out[0].ID)
}

func TestNormalizeItems_MergesDuplicateIDs(t *testing.T) {
	in := []LineItem{
		{ID: "a", Name: "first", Quantity: 2},
		{ID: "b", Quantity: 1},
		{ID: "a", Name: "second", Quantity: 3},
	}

	out := NormalizeItems(in)

	require.Len(t, out, 2)
	// First occurrence keeps its metadata and position.
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "first", out[0].Name)
	assert.Equal(t, 5, out[0].Quantity)
	assert.Equal(t, "b", out[1].ID)
}

func TestNormalizeItems_ClampsNegativePrice(t *testing.T) {
	in := []LineItem{
		{ID: "a", UnitPrice: -500, Quantity: 1},
	}

	out := NormalizeItems(in)

	require.Len(t, out, 1)
	assert.Equal(t, int64(0), out[0].UnitPrice)
}

func TestNormalizeItems_Empty(t *testing.T) {
	out := NormalizeItems(nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}
