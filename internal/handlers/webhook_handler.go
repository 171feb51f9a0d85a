package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"storefront-payments/internal/models"
	"storefront-payments/internal/payments/astimpay"
	"storefront-payments/internal/service"
	"storefront-payments/pkg/logger"
)

// WebhookHandler receives the processor's asynchronous payment notifications.
// Response classes drive the processor's redelivery: 2xx stops retries, so
// "already processed" must answer 200 while internal failures answer 500.
type WebhookHandler struct {
	reconcile *service.ReconcileService
	apiKey    string
}

func NewWebhookHandler(reconcile *service.ReconcileService, apiKey string) *WebhookHandler {
	return &WebhookHandler{reconcile: reconcile, apiKey: apiKey}
}

// HandleIPN processes one notification delivery.
func (h *WebhookHandler) HandleIPN(c *gin.Context) {
	// Authentication comes first: an unauthenticated caller learns nothing
	// about which orders exist.
	if !astimpay.VerifyWebhookSecret(c.GetHeader(astimpay.APIKeyHeader), h.apiKey) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}

	outcome, err := h.reconcile.ProcessWebhook(req)
	switch {
	case err == nil && outcome == service.OutcomeApplied:
		c.JSON(http.StatusOK, gin.H{"message": "order processed successfully"})
	case err == nil && outcome == service.OutcomeNoop:
		c.JSON(http.StatusOK, gin.H{"message": "payment is still pending"})
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "order already processed"})
	case errors.Is(err, service.ErrAlreadyProcessed):
		c.JSON(http.StatusOK, gin.H{"message": "order already processed"})
	case errors.Is(err, service.ErrUnexpectedStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unexpected payment status"})
	case service.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	default:
		// Ambiguous internal failure: answer with a retry-worthy class so the
		// processor redelivers once storage recovers.
		logger.Error(err, "Webhook processing failed", map[string]interface{}{
			"invoice_id": req.InvoiceID,
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "temporary processing failure"})
	}
}
