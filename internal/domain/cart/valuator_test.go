package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakmart/storefront/internal/domain/catalog"
)

func testShipping() ShippingPolicy {
	return ShippingPolicy{
		FlatFee:       decimal.RequireFromString("10.00"),
		FreeThreshold: decimal.RequireFromString("100.00"),
	}
}

func TestPrice_EmptyCart(t *testing.T) {
	v := NewValuator(newCatalogRepo(), testShipping())

	pc, err := v.Price(context.Background(), nil)
	require.NoError(t, err)

	assert.Empty(t, pc.Lines)
	assert.Zero(t, pc.ItemCount)
	assert.True(t, pc.Total.IsZero())
	assert.True(t, pc.Shipping.IsZero(), "empty cart must not charge shipping")
}

func TestPrice_SnapshotPriceWithFreeShipping(t *testing.T) {
	v := NewValuator(newCatalogRepo(newTestProduct("p1", "49.99", 0, 10)), testShipping())

	lines := []Line{{
		ID:        "l1",
		UserID:    "u1",
		ProductID: "p1",
		Quantity:  3,
		UnitPrice: decimal.RequireFromString("49.99"),
	}}

	pc, err := v.Price(context.Background(), lines)
	require.NoError(t, err)
	require.Len(t, pc.Lines, 1)

	assert.Equal(t, 3, pc.ItemCount)
	assert.True(t, pc.Subtotal.Equal(decimal.RequireFromString("149.97")), "got %s", pc.Subtotal)
	assert.True(t, pc.Shipping.IsZero(), "149.97 crosses the free shipping threshold")
	assert.True(t, pc.Total.Equal(decimal.RequireFromString("149.97")))
}

func TestPrice_FlatShippingBelowThreshold(t *testing.T) {
	v := NewValuator(newCatalogRepo(newTestProduct("p1", "20.00", 0, 10)), testShipping())

	lines := []Line{{
		ID:        "l1",
		UserID:    "u1",
		ProductID: "p1",
		Quantity:  2,
		UnitPrice: decimal.RequireFromString("20.00"),
	}}

	pc, err := v.Price(context.Background(), lines)
	require.NoError(t, err)

	assert.True(t, pc.Subtotal.Equal(decimal.RequireFromString("40.00")))
	assert.True(t, pc.Shipping.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, pc.Total.Equal(decimal.RequireFromString("50.00")))
}

func TestPrice_UsesSnapshotNotCurrentPrice(t *testing.T) {
	// Catalog list price went up after the line was added; totals keep the
	// snapshot, MRP and savings reflect the current list price.
	v := NewValuator(newCatalogRepo(newTestProduct("p1", "30.00", 0, 10)), testShipping())

	lines := []Line{{
		ID:        "l1",
		UserID:    "u1",
		ProductID: "p1",
		Quantity:  2,
		UnitPrice: decimal.RequireFromString("25.00"),
	}}

	pc, err := v.Price(context.Background(), lines)
	require.NoError(t, err)
	require.Len(t, pc.Lines, 1)

	pl := pc.Lines[0]
	assert.True(t, pl.Amount.Equal(decimal.RequireFromString("50.00")))
	assert.True(t, pl.MRPAmount.Equal(decimal.RequireFromString("60.00")))
	assert.True(t, pl.Discount.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, pc.MRPTotal.Equal(decimal.RequireFromString("60.00")))
	assert.True(t, pc.Subtotal.Equal(decimal.RequireFromString("50.00")))
}

func TestPrice_FlagsUnavailableLine(t *testing.T) {
	inactive := newTestProduct("p2", "9.99", 0, 5)
	inactive.Active = false
	v := NewValuator(newCatalogRepo(newTestProduct("p1", "20.00", 0, 10), inactive), testShipping())

	lines := []Line{
		{ID: "l1", ProductID: "p1", Quantity: 1, UnitPrice: decimal.RequireFromString("20.00")},
		{ID: "l2", ProductID: "p2", Quantity: 1, UnitPrice: decimal.RequireFromString("9.99")},
		{ID: "l3", ProductID: "gone", Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
	}

	pc, err := v.Price(context.Background(), lines)
	require.NoError(t, err)

	require.Len(t, pc.Lines, 1)
	require.Len(t, pc.Invalid, 2)
	assert.Equal(t, "l2", pc.Invalid[0].Line.ID)
	assert.Equal(t, ReasonUnavailable, pc.Invalid[0].Reason)
	assert.Equal(t, "l3", pc.Invalid[1].Line.ID)
	assert.Equal(t, ReasonUnavailable, pc.Invalid[1].Reason)
	assert.True(t, pc.Subtotal.Equal(decimal.RequireFromString("20.00")),
		"invalid lines must not contribute to totals")
}

func TestPrice_FlagsInsufficientStock(t *testing.T) {
	v := NewValuator(newCatalogRepo(newTestProduct("p1", "20.00", 0, 2)), testShipping())

	lines := []Line{{
		ID:        "l1",
		ProductID: "p1",
		Quantity:  5,
		UnitPrice: decimal.RequireFromString("20.00"),
	}}

	pc, err := v.Price(context.Background(), lines)
	require.NoError(t, err)

	assert.Empty(t, pc.Lines)
	require.Len(t, pc.Invalid, 1)
	assert.Equal(t, ReasonInsufficientStock, pc.Invalid[0].Reason)
	assert.True(t, pc.Total.IsZero())
}

func TestPrice_VariantStockChecked(t *testing.T) {
	p := &catalog.Product{
		ID:          "p1",
		Name:        "Configurable",
		CategoryID:  "cat-1",
		HasVariants: true,
		Active:      true,
		Variants: []catalog.Variant{
			{ID: "v1", Name: "Small", ListPrice: decimal.RequireFromString("5.00"), Stock: 1, Active: true},
			{ID: "v2", Name: "Large", ListPrice: decimal.RequireFromString("8.00"), Stock: 9, Active: true},
		},
	}
	v := NewValuator(newCatalogRepo(p), testShipping())

	lines := []Line{
		{ID: "l1", ProductID: "p1", VariantID: "v1", Quantity: 2, UnitPrice: decimal.RequireFromString("5.00")},
		{ID: "l2", ProductID: "p1", VariantID: "v2", Quantity: 2, UnitPrice: decimal.RequireFromString("8.00")},
	}

	pc, err := v.Price(context.Background(), lines)
	require.NoError(t, err)

	require.Len(t, pc.Lines, 1)
	assert.Equal(t, "l2", pc.Lines[0].Line.ID)
	require.Len(t, pc.Invalid, 1)
	assert.Equal(t, ReasonInsufficientStock, pc.Invalid[0].Reason)
}

func TestShippingPolicy_ExactThreshold(t *testing.T) {
	p := testShipping()

	assert.True(t, p.Cost(decimal.RequireFromString("100.00")).IsZero(),
		"shipping is free at exactly the threshold")
	assert.True(t, p.Cost(decimal.RequireFromString("99.99")).Equal(decimal.RequireFromString("10.00")))
}
