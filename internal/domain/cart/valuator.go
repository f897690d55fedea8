package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/oakmart/storefront/internal/domain/catalog"
	"github.com/oakmart/storefront/internal/money"
)

// Reasons a stored line can be excluded from cart totals. Invalid lines are
// reported back to the caller, never silently dropped.
const (
	ReasonUnavailable       = "unavailable"
	ReasonInsufficientStock = "insufficient_stock"
)

// ShippingPolicy is deployment configuration: a flat fee waived above a
// subtotal threshold. The valuator treats it as opaque.
type ShippingPolicy struct {
	FlatFee       decimal.Decimal
	FreeThreshold decimal.Decimal
}

// Cost returns the shipping cost for a given subtotal.
func (p ShippingPolicy) Cost(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(p.FreeThreshold) {
		return decimal.Zero
	}
	return money.Round(p.FlatFee)
}

// PricedLine is a cart line with derived amounts. The unit price comes from
// the line's stored snapshot; the MRP comes from the current catalog list
// price, so the reported discount reflects what the buyer saves today.
type PricedLine struct {
	Line       Line
	CategoryID string
	UnitPrice  decimal.Decimal
	MRPAmount  decimal.Decimal
	Amount     decimal.Decimal
	Discount   decimal.Decimal
}

// InvalidLine reports a line excluded from totals and why.
type InvalidLine struct {
	Line   Line
	Reason string
}

// PricedCart is the full priced snapshot of a cart.
type PricedCart struct {
	Lines     []PricedLine
	Invalid   []InvalidLine
	ItemCount int
	MRPTotal  decimal.Decimal
	Subtotal  decimal.Decimal
	Discount  decimal.Decimal
	Shipping  decimal.Decimal
	Total     decimal.Decimal
}

// Valuator prices stored cart lines against current catalog state. It does
// not apply coupons or promotional discounts; those are layered on top so
// catalog pricing stays independently auditable.
type Valuator struct {
	catalog  catalog.Repository
	shipping ShippingPolicy
}

// NewValuator creates a Valuator with the given catalog access and shipping
// policy.
func NewValuator(products catalog.Repository, shipping ShippingPolicy) *Valuator {
	return &Valuator{catalog: products, shipping: shipping}
}

// Price re-resolves every line and produces a priced cart snapshot. Lines
// whose product cannot be resolved, or whose quantity exceeds current stock,
// are flagged invalid and excluded from totals.
func (v *Valuator) Price(ctx context.Context, lines []Line) (*PricedCart, error) {
	pc := &PricedCart{
		MRPTotal: decimal.Zero,
		Subtotal: decimal.Zero,
		Discount: decimal.Zero,
		Shipping: decimal.Zero,
		Total:    decimal.Zero,
	}
	if len(lines) == 0 {
		return pc, nil
	}

	ids := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}

	fetched, err := v.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	products := make(map[string]*catalog.Product, len(fetched))
	for i := range fetched {
		products[fetched[i].ID] = &fetched[i]
	}

	for _, l := range lines {
		quote, err := catalog.Resolve(products[l.ProductID], l.VariantID)
		if err != nil {
			pc.Invalid = append(pc.Invalid, InvalidLine{Line: l, Reason: ReasonUnavailable})
			continue
		}
		if quote.Stock < l.Quantity {
			pc.Invalid = append(pc.Invalid, InvalidLine{Line: l, Reason: ReasonInsufficientStock})
			continue
		}

		qty := decimal.NewFromInt(int64(l.Quantity))
		amount := money.Round(l.UnitPrice.Mul(qty))
		mrp := money.Round(quote.ListPrice.Mul(qty))

		pl := PricedLine{
			Line:       l,
			CategoryID: products[l.ProductID].CategoryID,
			UnitPrice:  l.UnitPrice,
			MRPAmount:  mrp,
			Amount:     amount,
			Discount:   money.FloorZero(mrp.Sub(amount)),
		}
		pc.Lines = append(pc.Lines, pl)
		pc.ItemCount += l.Quantity
		pc.MRPTotal = pc.MRPTotal.Add(mrp)
		pc.Subtotal = pc.Subtotal.Add(amount)
		pc.Discount = pc.Discount.Add(pl.Discount)
	}

	pc.Shipping = v.shipping.Cost(pc.Subtotal)
	pc.Total = money.Round(pc.Subtotal.Add(pc.Shipping))
	return pc, nil
}
