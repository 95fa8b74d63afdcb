// Package gin mounts the checkout preflight API on a gin router.
package gin

import (
	"github.com/gin-gonic/gin"

	checkouthttp "github.com/csacanam/deramp-checkout-go/http"
)

// Mount registers every checkout API route on the given gin router group.
func Mount(r gin.IRouter, h *checkouthttp.Handler) {
	r.GET("/wallet", gin.WrapF(h.Wallet))
	r.GET("/network", gin.WrapF(h.Network))
	r.GET("/balance", gin.WrapF(h.Balance))
	r.GET("/readiness", gin.WrapF(h.Readiness))
	r.POST("/connect", gin.WrapF(h.Connect))
	r.POST("/disconnect", gin.WrapF(h.Disconnect))
	r.POST("/network/switch", gin.WrapF(h.SwitchNetwork))
	r.POST("/pay/begin", gin.WrapF(h.PayBegin))
	r.POST("/pay/confirm", gin.WrapF(h.PayConfirm))
}
