package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-payments/internal/config"
	"storefront-payments/internal/service"
)

// PaymentReturnHandler handles the buyer's synchronous return from the hosted
// payment page, and the cancellation marker on the checkout path.
type PaymentReturnHandler struct {
	reconcile *service.ReconcileService
	cfg       *config.Config
}

func NewPaymentReturnHandler(reconcile *service.ReconcileService, cfg *config.Config) *PaymentReturnHandler {
	return &PaymentReturnHandler{reconcile: reconcile, cfg: cfg}
}

// Return verifies the redirect and sends the buyer on. Whatever happened, the
// buyer always gets a redirect: to the order-received page once the order is
// authenticated, to the cart otherwise. The cart redirect carries a generic
// failure marker so the storefront can tell the buyer something went wrong;
// failure details never leak into the response.
func (h *PaymentReturnHandler) Return(c *gin.Context) {
	result, err := h.reconcile.VerifyReturn(
		c.Request.Context(),
		c.Query("order_id"),
		c.Query("invoice_id"),
		c.Query("verification_token"),
	)
	if err != nil || result == nil || !result.OrderKnown {
		c.Redirect(http.StatusFound, h.cfg.SiteURL+h.cfg.CartURL+"?notice=payment_failed")
		return
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("%s%s/%d", h.cfg.SiteURL, h.cfg.OrderReceivedURL, result.OrderID))
}

// Cancel handles the payment=canceled marker. It queues the cancellation
// notice and returns the buyer to the storefront checkout; no order state
// changes on this path.
func (h *PaymentReturnHandler) Cancel(c *gin.Context) {
	if c.Query("payment") == "canceled" {
		h.reconcile.QueueCancelNotice(c.Query("order_id"))
	}
	c.Redirect(http.StatusFound, h.cfg.SiteURL+h.cfg.CheckoutPath)
}
