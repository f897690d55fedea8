package api

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/oakmart/storefront/internal/domain/cart"
	"github.com/oakmart/storefront/internal/domain/catalog"
	"github.com/oakmart/storefront/internal/domain/checkout"
	"github.com/oakmart/storefront/internal/domain/promotion"
	"github.com/oakmart/storefront/internal/payment"
)

// writeJSON encodes a response body with jx and writes it with the given
// status.
func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes the uniform error body.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(message) })
		})
	})
}

// respondError maps a domain error onto the HTTP taxonomy: validation
// failures are 400/404/422, state conflicts 409, collaborator
// unavailability 503, everything else an opaque 500.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrNotFound) || errors.Is(err, cart.ErrLineNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrNotSellable):
		writeError(w, http.StatusUnprocessableEntity, "product cannot be purchased with this selection")
	case errors.Is(err, catalog.ErrInsufficientStock):
		writeError(w, http.StatusConflict, stockMessage(err))
	case errors.Is(err, checkout.ErrEmptyCart):
		writeError(w, http.StatusConflict, "cart is empty")
	case errors.Is(err, promotion.ErrCouponUsageLimit) || errors.Is(err, promotion.ErrCouponPerUserLimit):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, promotion.ErrCouponNotFound),
		errors.Is(err, promotion.ErrCouponInactive),
		errors.Is(err, promotion.ErrCouponOutsideWindow),
		errors.Is(err, promotion.ErrCouponMinPurchase):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, payment.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "payment gateway not configured")
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func stockMessage(err error) string {
	var se *checkout.StockError
	if errors.As(err, &se) {
		return se.Error()
	}
	return catalog.ErrInsufficientStock.Error()
}

// money encodes a decimal amount as a JSON number with two fraction digits.
func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.StringFixed(2)))
}
