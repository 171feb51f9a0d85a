package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"storefront-payments/internal/models"
	"storefront-payments/internal/service"
)

// CheckoutHandler exposes payment session creation to HTTP clients.
type CheckoutHandler struct {
	service *service.CheckoutService
}

func NewCheckoutHandler(checkout *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{service: checkout}
}

// CreateSession starts a hosted payment session for the requested order and
// returns the redirect URL. The order stays pending until a confirmation
// channel settles it.
func (h *CheckoutHandler) CreateSession(c *gin.Context) {
	if h == nil || h.service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "checkout service unavailable"})
		return
	}

	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.service.CreatePaymentSession(c.Request.Context(), userID, req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *CheckoutHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCheckoutDisabled), errors.Is(err, service.ErrInvalidExchangeRate):
		// Operator misconfiguration stays generic toward the buyer.
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "checkout is currently unavailable"})
	case errors.Is(err, service.ErrOrderNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case service.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	case service.IsUpstreamError(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment processor rejected the session"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create payment session"})
	}
}
