package catalog

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/oakmart/storefront/internal/money"
)

// ErrNotSellable is returned by Resolve when the product/selector pair cannot
// be priced: the selector names a missing or inactive variant, a variant was
// requested on a variant-less product, or a variant-bearing product was
// requested without a selector. It signals an invalid selection, not a
// system failure.
var ErrNotSellable = errors.New("product not sellable for selection")

var hundred = decimal.NewFromInt(100)

// Quote is the result of resolving a product/selector pair against current
// catalog state.
type Quote struct {
	// UnitPrice is the list price after the catalog discount, rounded to
	// cents with the shared rounding rule.
	UnitPrice decimal.Decimal
	// ListPrice is the pre-discount price, used for MRP reporting.
	ListPrice decimal.Decimal
	// Stock is the currently available quantity.
	Stock int
	// VariantID is the resolved variant, empty for variant-less products.
	VariantID string
}

// Resolve prices a product, or one of its variants when variantID is given.
// It is a pure read; callers re-invoke it whenever they need current price
// or stock.
func Resolve(p *Product, variantID string) (Quote, error) {
	if p == nil || !p.Active {
		return Quote{}, ErrNotSellable
	}

	if p.HasVariants {
		// A variant-bearing product has no top-level price.
		if variantID == "" {
			return Quote{}, ErrNotSellable
		}
		for i := range p.Variants {
			v := &p.Variants[i]
			if v.ID != variantID {
				continue
			}
			if !v.Active {
				return Quote{}, ErrNotSellable
			}
			return Quote{
				UnitPrice: discountedPrice(v.ListPrice, v.DiscountPercent),
				ListPrice: v.ListPrice,
				Stock:     v.Stock,
				VariantID: v.ID,
			}, nil
		}
		return Quote{}, ErrNotSellable
	}

	if variantID != "" {
		return Quote{}, ErrNotSellable
	}
	return Quote{
		UnitPrice: discountedPrice(p.ListPrice, p.DiscountPercent),
		ListPrice: p.ListPrice,
		Stock:     p.Stock,
	}, nil
}

// discountedPrice applies a whole-percent catalog discount and rounds with
// the shared rule.
func discountedPrice(list decimal.Decimal, percent int) decimal.Decimal {
	if percent <= 0 {
		return money.Round(list)
	}
	factor := hundred.Sub(decimal.NewFromInt(int64(percent))).Div(hundred)
	return money.Round(list.Mul(factor))
}
