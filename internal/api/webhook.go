package api

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/oakmart/storefront/internal/payment"
)

// SignatureHeader carries the gateway's webhook signature.
const SignatureHeader = "Gateway-Signature"

// webhookBodyLimit bounds webhook payloads; gateway events are small.
const webhookBodyLimit = 1 << 20

// Webhook receives asynchronous payment-outcome notifications. The body is
// consumed raw; verification runs on the exact bytes the gateway signed.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, webhookBodyLimit))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read body")
		return
	}

	err = h.settlement.Handle(r.Context(), payload, r.Header.Get(SignatureHeader))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("received", func(e *jx.Encoder) { e.Bool(true) })
			})
		})
	case errors.Is(err, payment.ErrSignatureMismatch), errors.Is(err, payment.ErrSignatureExpired):
		// Security-relevant rejection: logged apart from ordinary
		// validation failures since it may indicate spoofing.
		zctx.From(r.Context()).Warn("webhook signature rejected",
			zap.String("remote", r.RemoteAddr), zap.Error(err))
		writeError(w, http.StatusBadRequest, "signature verification failed")
	case errors.Is(err, payment.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "webhook secret not configured")
	default:
		respondError(w, r, err)
	}
}
