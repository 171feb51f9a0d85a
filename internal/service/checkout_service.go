package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"storefront-payments/internal/models"
	"storefront-payments/internal/payments"
	"storefront-payments/internal/repository"
	"storefront-payments/pkg/logger"
)

// CheckoutConfig defines configuration required to create payment sessions.
type CheckoutConfig struct {
	// PublicURL is this service's base URL; return and webhook callbacks are
	// built from it.
	PublicURL string
	// SiteURL and CheckoutPath locate the storefront checkout the buyer is
	// sent back to on cancellation.
	SiteURL      string
	CheckoutPath string

	SettlementCurrency string
	ExchangeRate       string
}

// CheckoutService builds payment-session requests from order data and submits
// them to the processor. Creating a session never mutates order status and
// never reduces stock; those belong to the confirmed pending->paid edge.
type CheckoutService struct {
	orderRepo repository.OrderRepository
	tokenRepo repository.PaymentTokenRepository
	provider  payments.Provider
	config    CheckoutConfig
}

// NewCheckoutService constructs a checkout service instance.
func NewCheckoutService(orderRepo repository.OrderRepository, tokenRepo repository.PaymentTokenRepository, provider payments.Provider, cfg CheckoutConfig) *CheckoutService {
	initMetrics()
	return &CheckoutService{
		orderRepo: orderRepo,
		tokenRepo: tokenRepo,
		provider:  provider,
		config:    normalizeCheckoutConfig(cfg),
	}
}

// Enabled reports whether the checkout flow is ready for use.
func (s *CheckoutService) Enabled() bool {
	if s == nil {
		return false
	}
	return s.orderRepo != nil && s.tokenRepo != nil && s.provider != nil &&
		s.config.PublicURL != "" && s.config.SettlementCurrency != ""
}

// CreatePaymentSession creates a hosted payment session for a pending order
// and returns the redirect URL for the buyer.
func (s *CheckoutService) CreatePaymentSession(ctx context.Context, userID uint, req models.CheckoutRequest) (*models.CheckoutSessionResponse, error) {
	if s == nil || !s.Enabled() {
		return nil, ErrCheckoutDisabled
	}
	if req.OrderID == 0 {
		return nil, newValidationError("order id is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	order, err := s.orderRepo.GetByID(req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, newValidationError("order does not belong to this user")
	}
	if order.Status != models.OrderStatusPending {
		return nil, ErrOrderNotPending
	}

	settlementCents, err := NormalizeAmount(order.TotalCents, order.Currency, s.config.SettlementCurrency, s.config.ExchangeRate)
	if err != nil {
		return nil, err
	}

	token := uuid.NewString()
	if err := s.tokenRepo.Issue(order.ID, token); err != nil {
		return nil, err
	}

	invoiceID := strconv.FormatUint(uint64(order.ID), 10)
	params := payments.SessionParams{
		FullName:  order.BillingName,
		Email:     order.BillingEmail,
		Amount:    FormatCents(settlementCents),
		InvoiceID: invoiceID,
		Metadata: map[string]string{
			"user_id":  strconv.FormatUint(uint64(order.UserID), 10),
			"order_id": invoiceID,
		},
		RedirectURL: s.returnURL(order.ID, invoiceID, token),
		CancelURL:   s.cancelURL(invoiceID),
		WebhookURL:  s.config.PublicURL + "/payment/ipn",
	}

	session, err := s.provider.CreatePaymentSession(ctx, params)
	if err != nil {
		sessionsCreatedTotal.WithLabelValues("error").Inc()
		logger.Error(err, "Failed to create payment session with processor", map[string]interface{}{
			"order_id": order.ID,
			"user_id":  userID,
		})
		return nil, newUpstreamError(err)
	}

	sessionsCreatedTotal.WithLabelValues("ok").Inc()
	logger.Info("Payment session ready", map[string]interface{}{
		"order_id":   order.ID,
		"user_id":    userID,
		"invoice_id": session.InvoiceID,
	})

	return &models.CheckoutSessionResponse{PaymentURL: session.PaymentURL}, nil
}

func (s *CheckoutService) returnURL(orderID uint, invoiceID, token string) string {
	query := url.Values{}
	query.Set("order_id", strconv.FormatUint(uint64(orderID), 10))
	query.Set("invoice_id", invoiceID)
	query.Set("verification_token", token)
	return fmt.Sprintf("%s/payment/return?%s", s.config.PublicURL, query.Encode())
}

// cancelURL routes the buyer through this service's checkout path so the
// cancellation marker can queue its notice before the storefront redirect.
func (s *CheckoutService) cancelURL(invoiceID string) string {
	query := url.Values{}
	query.Set("payment", "canceled")
	query.Set("order_id", invoiceID)
	return s.config.PublicURL + "/checkout?" + query.Encode()
}

func normalizeCheckoutConfig(cfg CheckoutConfig) CheckoutConfig {
	return CheckoutConfig{
		PublicURL:          strings.TrimRight(strings.TrimSpace(cfg.PublicURL), "/"),
		SiteURL:            strings.TrimRight(strings.TrimSpace(cfg.SiteURL), "/"),
		CheckoutPath:       strings.TrimSpace(cfg.CheckoutPath),
		SettlementCurrency: strings.ToUpper(strings.TrimSpace(cfg.SettlementCurrency)),
		ExchangeRate:       strings.TrimSpace(cfg.ExchangeRate),
	}
}
