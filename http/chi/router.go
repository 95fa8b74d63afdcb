// Package chi mounts the checkout preflight API on a chi router.
package chi

import (
	"github.com/go-chi/chi/v5"

	checkouthttp "github.com/csacanam/deramp-checkout-go/http"
)

// Mount registers every checkout API route on the given chi router.
func Mount(r chi.Router, h *checkouthttp.Handler) {
	r.Get("/wallet", h.Wallet)
	r.Get("/network", h.Network)
	r.Get("/balance", h.Balance)
	r.Get("/readiness", h.Readiness)
	r.Post("/connect", h.Connect)
	r.Post("/disconnect", h.Disconnect)
	r.Post("/network/switch", h.SwitchNetwork)
	r.Post("/pay/begin", h.PayBegin)
	r.Post("/pay/confirm", h.PayConfirm)
}
