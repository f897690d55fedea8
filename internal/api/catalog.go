package api

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/oakmart/storefront/internal/domain/catalog"
)

// ListProducts returns the full catalog with variants.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range products {
				encodeProduct(e, &products[i])
			}
		})
	})
}

// GetProduct returns a single product by ID.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeProduct(e, p)
	})
}

func encodeProduct(e *jx.Encoder, p *catalog.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("category_id", func(e *jx.Encoder) { e.Str(p.CategoryID) })
		e.Field("active", func(e *jx.Encoder) { e.Bool(p.Active) })
		if p.HasVariants {
			e.Field("variants", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for i := range p.Variants {
						encodeVariant(e, &p.Variants[i])
					}
				})
			})
			return
		}
		e.Field("price", func(e *jx.Encoder) { encodeMoney(e, p.ListPrice) })
		e.Field("discount_percent", func(e *jx.Encoder) { e.Int(p.DiscountPercent) })
		e.Field("stock", func(e *jx.Encoder) { e.Int(p.Stock) })
	})
}

func encodeVariant(e *jx.Encoder, v *catalog.Variant) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(v.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(v.Name) })
		e.Field("price", func(e *jx.Encoder) { encodeMoney(e, v.ListPrice) })
		e.Field("discount_percent", func(e *jx.Encoder) { e.Int(v.DiscountPercent) })
		e.Field("stock", func(e *jx.Encoder) { e.Int(v.Stock) })
		e.Field("active", func(e *jx.Encoder) { e.Bool(v.Active) })
	})
}
