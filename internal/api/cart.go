package api

import (
	"io"
	"net/http"

	"github.com/go-faster/jx"

	"github.com/oakmart/storefront/internal/domain/cart"
)

// maxBodySize bounds request bodies for all JSON endpoints.
const maxBodySize = 1 << 20

type addLineRequest struct {
	ProductID string
	VariantID string
	Quantity  int
}

func decodeAddLine(body []byte) (addLineRequest, error) {
	var req addLineRequest
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "product_id":
			req.ProductID, err = d.Str()
		case "variant_id":
			req.VariantID, err = d.Str()
		case "quantity":
			req.Quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

// GetCart returns the priced snapshot of the caller's cart, including lines
// excluded for stock or availability reasons.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	lines, err := h.cartLines.ListByUser(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	priced, err := h.valuator.Price(r.Context(), lines)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodePricedCart(e, priced)
	})
}

// AddCartLine adds a product (or variant) to the caller's cart.
func (h *Handler) AddCartLine(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read body")
		return
	}
	req, err := decodeAddLine(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "product_id required")
		return
	}

	line, err := h.carts.Add(r.Context(), UserIDFromContext(r.Context()), req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeLine(e, line)
	})
}

// UpdateCartLine sets a line's quantity, repricing its snapshot.
func (h *Handler) UpdateCartLine(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read body")
		return
	}

	qty := 0
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		var err error
		qty, err = d.Int()
		return err
	}); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	line, err := h.carts.UpdateQuantity(r.Context(), UserIDFromContext(r.Context()), r.PathValue("lineID"), qty)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeLine(e, line)
	})
}

// RemoveCartLine deletes a single line.
func (h *Handler) RemoveCartLine(w http.ResponseWriter, r *http.Request) {
	err := h.carts.Remove(r.Context(), UserIDFromContext(r.Context()), r.PathValue("lineID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearCart removes every line from the caller's cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), UserIDFromContext(r.Context())); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func encodeLine(e *jx.Encoder, l *cart.Line) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(l.ID) })
		e.Field("product_id", func(e *jx.Encoder) { e.Str(l.ProductID) })
		if l.VariantID != "" {
			e.Field("variant_id", func(e *jx.Encoder) { e.Str(l.VariantID) })
		}
		e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
		e.Field("unit_price", func(e *jx.Encoder) { encodeMoney(e, l.UnitPrice) })
		e.Field("amount", func(e *jx.Encoder) { encodeMoney(e, l.Amount) })
	})
}

func encodePricedCart(e *jx.Encoder, pc *cart.PricedCart) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("lines", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for i := range pc.Lines {
					pl := &pc.Lines[i]
					e.Obj(func(e *jx.Encoder) {
						e.Field("id", func(e *jx.Encoder) { e.Str(pl.Line.ID) })
						e.Field("product_id", func(e *jx.Encoder) { e.Str(pl.Line.ProductID) })
						if pl.Line.VariantID != "" {
							e.Field("variant_id", func(e *jx.Encoder) { e.Str(pl.Line.VariantID) })
						}
						e.Field("quantity", func(e *jx.Encoder) { e.Int(pl.Line.Quantity) })
						e.Field("unit_price", func(e *jx.Encoder) { encodeMoney(e, pl.UnitPrice) })
						e.Field("mrp_amount", func(e *jx.Encoder) { encodeMoney(e, pl.MRPAmount) })
						e.Field("amount", func(e *jx.Encoder) { encodeMoney(e, pl.Amount) })
						e.Field("discount", func(e *jx.Encoder) { encodeMoney(e, pl.Discount) })
					})
				}
			})
		})
		if len(pc.Invalid) > 0 {
			e.Field("invalid_lines", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for i := range pc.Invalid {
						il := &pc.Invalid[i]
						e.Obj(func(e *jx.Encoder) {
							e.Field("id", func(e *jx.Encoder) { e.Str(il.Line.ID) })
							e.Field("product_id", func(e *jx.Encoder) { e.Str(il.Line.ProductID) })
							e.Field("reason", func(e *jx.Encoder) { e.Str(il.Reason) })
						})
					}
				})
			})
		}
		e.Field("item_count", func(e *jx.Encoder) { e.Int(pc.ItemCount) })
		e.Field("mrp_total", func(e *jx.Encoder) { encodeMoney(e, pc.MRPTotal) })
		e.Field("subtotal", func(e *jx.Encoder) { encodeMoney(e, pc.Subtotal) })
		e.Field("discount", func(e *jx.Encoder) { encodeMoney(e, pc.Discount) })
		e.Field("shipping", func(e *jx.Encoder) { encodeMoney(e, pc.Shipping) })
		e.Field("total", func(e *jx.Encoder) { encodeMoney(e, pc.Total) })
	})
}
