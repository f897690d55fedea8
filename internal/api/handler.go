// Package api exposes the storefront HTTP surface. Handlers decode requests,
// delegate to domain services, and map typed domain errors onto the HTTP
// error taxonomy. The webhook route is registered without body-parsing
// middleware so signature verification always sees the raw bytes.
package api

import (
	"net/http"

	"github.com/oakmart/storefront/internal/domain/cart"
	"github.com/oakmart/storefront/internal/domain/catalog"
	"github.com/oakmart/storefront/internal/domain/checkout"
)

// Handler holds the domain services behind the storefront routes.
type Handler struct {
	products   catalog.Repository
	carts      *cart.Service
	cartLines  cart.Repository
	valuator   *cart.Valuator
	checkout   *checkout.Service
	settlement *checkout.Settlement
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products catalog.Repository,
	carts *cart.Service,
	cartLines cart.Repository,
	valuator *cart.Valuator,
	checkoutSvc *checkout.Service,
	settlement *checkout.Settlement,
) *Handler {
	return &Handler{
		products:   products,
		carts:      carts,
		cartLines:  cartLines,
		valuator:   valuator,
		checkout:   checkoutSvc,
		settlement: settlement,
	}
}

// Register mounts all storefront routes on the mux. Authenticated routes are
// wrapped with auth; the webhook endpoint authenticates by signature instead
// and must stay outside the API-key chain.
func (h *Handler) Register(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	authed := func(fn http.HandlerFunc) http.Handler { return auth(fn) }

	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)

	mux.Handle("GET /api/cart", authed(h.GetCart))
	mux.Handle("POST /api/cart", authed(h.AddCartLine))
	mux.Handle("PUT /api/cart/{lineID}", authed(h.UpdateCartLine))
	mux.Handle("DELETE /api/cart/{lineID}", authed(h.RemoveCartLine))
	mux.Handle("DELETE /api/cart", authed(h.ClearCart))

	mux.Handle("POST /api/checkout/create-intent", authed(h.CreateIntent))
	mux.HandleFunc("POST /api/checkout/webhook", h.Webhook)
}
