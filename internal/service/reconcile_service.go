package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"storefront-payments/internal/models"
	"storefront-payments/internal/payments"
	"storefront-payments/internal/repository"
	"storefront-payments/pkg/logger"
)

const defaultStatusQueryTimeout = 10 * time.Second

// ReconcileService resolves the two racing confirmation channels - the
// buyer's synchronous return and the processor's webhook - into order state,
// always through the transition policy.
type ReconcileService struct {
	orderRepo repository.OrderRepository
	tokenRepo repository.PaymentTokenRepository
	provider  payments.Provider
	policy    *TransitionPolicy
	notices   *NoticeService

	statusQueryTimeout time.Duration
}

func NewReconcileService(
	orderRepo repository.OrderRepository,
	tokenRepo repository.PaymentTokenRepository,
	provider payments.Provider,
	policy *TransitionPolicy,
	notices *NoticeService,
) *ReconcileService {
	initMetrics()
	return &ReconcileService{
		orderRepo:          orderRepo,
		tokenRepo:          tokenRepo,
		provider:           provider,
		policy:             policy,
		notices:            notices,
		statusQueryTimeout: defaultStatusQueryTimeout,
	}
}

// ReturnResult tells the handler where the buyer can be redirected.
type ReturnResult struct {
	OrderID    uint
	OrderKnown bool
}

// VerifyReturn authenticates the buyer's return redirect and reconciles the
// order against a fresh authoritative status query. The client-visible URL
// parameters are never trusted for outcome; only for correlation. A non-nil
// error means the request failed closed before the order was authenticated
// and the buyer belongs back on the cart page.
func (s *ReconcileService) VerifyReturn(ctx context.Context, orderIDRaw, invoiceID, token string) (*ReturnResult, error) {
	if s == nil || s.orderRepo == nil || s.tokenRepo == nil || s.provider == nil || s.policy == nil {
		return nil, ErrCheckoutDisabled
	}
	if ctx == nil {
		ctx = context.Background()
	}

	orderIDRaw = strings.TrimSpace(orderIDRaw)
	invoiceID = strings.TrimSpace(invoiceID)
	token = strings.TrimSpace(token)
	if orderIDRaw == "" || invoiceID == "" || token == "" {
		return nil, newValidationError("order_id, invoice_id and verification_token are required")
	}

	orderID64, err := strconv.ParseUint(orderIDRaw, 10, 32)
	if err != nil {
		return nil, newValidationError("order_id must be numeric")
	}
	orderID := uint(orderID64)

	// Invoice id equals order id in this integration; a mismatch is a forged
	// or mangled return.
	if invoiceID != orderIDRaw {
		return nil, newValidationError("invoice_id does not match order_id")
	}

	consumed, err := s.tokenRepo.Consume(orderID, token)
	if err != nil {
		return nil, err
	}
	if !consumed {
		logger.Warn("Payment return failed token verification", map[string]interface{}{
			"order_id": orderID,
		})
		return nil, ErrInvalidToken
	}

	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}

	result := &ReturnResult{OrderID: order.ID, OrderKnown: true}

	queryCtx, cancel := context.WithTimeout(ctx, s.statusQueryTimeout)
	defer cancel()

	details, err := s.provider.VerifyPayment(queryCtx, invoiceID)
	if err != nil {
		// The order is unresolved, not failed: no transition, retryable notice.
		logger.Error(err, "Payment status query failed on return", map[string]interface{}{
			"order_id": order.ID,
		})
		s.notices.Queue(order.ID, "error", "Payment verification failed. Please refresh this page in a moment.")
		return result, nil
	}

	event := ReconciliationEvent{
		OrderID:        order.ID,
		InvoiceID:      invoiceID,
		ReportedStatus: details.Status,
		TransactionID:  details.TransactionID,
		Amount:         details.Amount,
		SenderNumber:   details.SenderNumber,
		PaymentMethod:  details.PaymentMethod,
		Source:         SourceReturn,
	}

	switch details.Status {
	case payments.StatusCompleted:
		outcome, applyErr := s.policy.Apply(order, event)
		switch {
		case applyErr == nil && outcome == OutcomeApplied:
			s.notices.Queue(order.ID, "success", "Payment successful.")
		case applyErr == nil && outcome == OutcomeAlreadySettled:
			s.notices.Queue(order.ID, "success", "Payment already confirmed.")
		case errors.Is(applyErr, ErrTransitionConflict):
			s.notices.Queue(order.ID, "error", "Payment could not be applied to this order.")
		case applyErr != nil:
			s.notices.Queue(order.ID, "error", "Payment verification failed. Please contact support.")
		}
	case payments.StatusPending:
		_, applyErr := s.policy.Apply(order, event)
		if errors.Is(applyErr, ErrTransitionConflict) {
			// The webhook settled the order while the buyer was in flight; a
			// stale pending report must not hide the settled outcome.
			if fresh, readErr := s.orderRepo.GetByID(order.ID); readErr == nil {
				order = fresh
			}
			switch order.Status {
			case models.OrderStatusPaid:
				s.notices.Queue(order.ID, "success", "Payment already confirmed.")
			case models.OrderStatusFailed:
				s.notices.Queue(order.ID, "error", "Payment failed.")
			default:
				s.notices.Queue(order.ID, "notice", "Payment is pending.")
			}
			return result, nil
		}
		if applyErr != nil {
			logger.Error(applyErr, "Failed to reconcile pending status on return", map[string]interface{}{
				"order_id": order.ID,
			})
		}
		s.notices.Queue(order.ID, "notice", "Payment is pending.")
	default:
		s.notices.Queue(order.ID, "error", "Unexpected payment status received.")
	}

	return result, nil
}

// QueueCancelNotice records the buyer-initiated cancellation marker. No order
// mutation happens on this path.
func (s *ReconcileService) QueueCancelNotice(orderIDRaw string) {
	orderID64, err := strconv.ParseUint(strings.TrimSpace(orderIDRaw), 10, 32)
	if err != nil {
		return
	}
	s.notices.Queue(uint(orderID64), "notice", "Your payment has been canceled.")
}

// ProcessWebhook applies one processor notification. Redelivery of a settled
// outcome and stale conflicting events both resolve to ErrAlreadyProcessed so
// the processor stops retrying; genuinely malformed input surfaces as a
// validation error.
func (s *ReconcileService) ProcessWebhook(req models.WebhookRequest) (Outcome, error) {
	if s == nil || s.orderRepo == nil || s.policy == nil {
		return "", ErrCheckoutDisabled
	}

	invoiceID := strings.TrimSpace(req.InvoiceID)
	status := strings.TrimSpace(req.Status)
	if invoiceID == "" || status == "" {
		webhookEventsTotal.WithLabelValues("bad_request").Inc()
		return "", newValidationError("invoice_id and status are required")
	}

	orderID64, err := strconv.ParseUint(invoiceID, 10, 32)
	if err != nil {
		webhookEventsTotal.WithLabelValues("bad_request").Inc()
		return "", newValidationError("invoice_id must be numeric")
	}

	order, err := s.orderRepo.GetByID(uint(orderID64))
	if err != nil {
		webhookEventsTotal.WithLabelValues("not_found").Inc()
		return "", err
	}

	event := ReconciliationEvent{
		OrderID:        order.ID,
		InvoiceID:      invoiceID,
		ReportedStatus: status,
		TransactionID:  req.TransactionID,
		Amount:         req.Amount,
		SenderNumber:   req.SenderNumber,
		PaymentMethod:  req.PaymentMethod,
		Source:         SourceWebhook,
	}

	outcome, err := s.policy.Apply(order, event)
	switch {
	case err == nil:
		webhookEventsTotal.WithLabelValues(string(outcome)).Inc()
		return outcome, nil
	case errors.Is(err, ErrTransitionConflict):
		// The policy already logged the anomaly; acknowledge so the processor
		// does not redeliver an event that can never apply.
		webhookEventsTotal.WithLabelValues("conflict").Inc()
		return "", ErrAlreadyProcessed
	case errors.Is(err, ErrUnexpectedStatus):
		webhookEventsTotal.WithLabelValues("bad_request").Inc()
		return "", err
	default:
		webhookEventsTotal.WithLabelValues("error").Inc()
		return "", err
	}
}
