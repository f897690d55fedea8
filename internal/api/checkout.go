package api

import (
	"io"
	"net/http"

	"github.com/go-faster/jx"

	"github.com/oakmart/storefront/internal/domain/checkout"
)

// CreateIntent turns the caller's cart into a payment authorization. The
// Idempotency-Key header, when present, is forwarded to the gateway
// unmodified.
func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read body")
		return
	}

	req := checkout.CreateIntentRequest{
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}
	if len(body) > 0 {
		d := jx.DecodeBytes(body)
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "coupon_code":
				req.CouponCode, err = d.Str()
			case "payment_method":
				req.PaymentMethod, err = d.Str()
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
	}

	intent, err := h.checkout.CreateIntent(r.Context(), UserIDFromContext(r.Context()), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("order_id", func(e *jx.Encoder) { e.Str(intent.OrderID) })
			e.Field("reference", func(e *jx.Encoder) { e.Str(intent.Reference) })
			e.Field("client_secret", func(e *jx.Encoder) { e.Str(intent.ClientSecret) })
			e.Field("amount", func(e *jx.Encoder) { encodeMoney(e, intent.Amount) })
			e.Field("amount_minor", func(e *jx.Encoder) { e.Int64(intent.AmountMinor) })
			e.Field("currency", func(e *jx.Encoder) { e.Str(intent.Currency) })
		})
	})
}
