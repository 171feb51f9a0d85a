package service

import (
	"fmt"
	"time"

	"storefront-payments/internal/models"
	"storefront-payments/internal/payments"
	"storefront-payments/internal/repository"
	"storefront-payments/pkg/logger"
	pkgvalidator "storefront-payments/pkg/validator"
)

// EventSource identifies which confirmation channel produced a reconciliation
// event. Both channels funnel into the same policy.
type EventSource string

const (
	SourceReturn  EventSource = "return"
	SourceWebhook EventSource = "webhook"
)

// ReconciliationEvent is the unit of work the transition policy consumes: an
// externally reported payment outcome for one order, from one channel.
type ReconciliationEvent struct {
	OrderID        uint
	InvoiceID      string
	ReportedStatus string
	TransactionID  string
	Amount         string
	SenderNumber   string
	PaymentMethod  string
	Source         EventSource
}

// Outcome describes how the policy resolved an event.
type Outcome string

const (
	// OutcomeApplied means the order moved to a new status and any completion
	// side effects ran exactly once, in this call.
	OutcomeApplied Outcome = "applied"
	// OutcomeNoop means the event reported still-pending for a pending order.
	OutcomeNoop Outcome = "noop"
	// OutcomeAlreadySettled means the order is already in the state the event
	// targets; redelivery is acknowledged without repeating side effects.
	OutcomeAlreadySettled Outcome = "already_settled"
)

// TransitionPolicy is the single point of truth for order status mutation.
// Status moves monotonically from pending toward a terminal outcome; the
// read-modify-write is serialized with a compare-and-set on the current
// status, so two racing channels resolve to exactly one winner.
type TransitionPolicy struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
}

// NewTransitionPolicy constructs the policy over the order and product stores.
func NewTransitionPolicy(orderRepo repository.OrderRepository, productRepo repository.ProductRepository) *TransitionPolicy {
	initMetrics()
	return &TransitionPolicy{orderRepo: orderRepo, productRepo: productRepo}
}

// targetStatus maps an externally reported payment status onto the order
// state machine.
func targetStatus(reported string) (models.OrderStatus, error) {
	switch reported {
	case payments.StatusCompleted:
		return models.OrderStatusPaid, nil
	case payments.StatusPending:
		return models.OrderStatusPending, nil
	case payments.StatusFailed, payments.StatusError:
		return models.OrderStatusFailed, nil
	default:
		return "", ErrUnexpectedStatus
	}
}

// Apply resolves one reconciliation event against the order's current status.
// It never regresses a terminal order and never repeats the completion side
// effect: only the caller that wins the pending->paid compare-and-set reduces
// stock and records the payment.
func (p *TransitionPolicy) Apply(order *models.Order, event ReconciliationEvent) (Outcome, error) {
	if p == nil || p.orderRepo == nil {
		return "", ErrCheckoutDisabled
	}
	if order == nil {
		return "", newValidationError("order is required")
	}

	target, err := targetStatus(event.ReportedStatus)
	if err != nil {
		transitionsTotal.WithLabelValues(string(order.Status), "unknown", "rejected").Inc()
		return "", err
	}

	current := order.Status

	if target == models.OrderStatusPending {
		if current == models.OrderStatusPending {
			return OutcomeNoop, nil
		}
		p.logAnomaly(order, event, target)
		return "", ErrTransitionConflict
	}

	if current == target {
		transitionsTotal.WithLabelValues(string(current), string(target), "already_settled").Inc()
		return OutcomeAlreadySettled, nil
	}

	if current != models.OrderStatusPending {
		p.logAnomaly(order, event, target)
		return "", ErrTransitionConflict
	}

	applied, err := p.orderRepo.UpdateStatusIf(order.ID, models.OrderStatusPending, target)
	if err != nil {
		return "", err
	}
	if !applied {
		// Lost the race. Re-read to tell a duplicate of the same outcome from
		// a genuine conflict.
		fresh, readErr := p.orderRepo.GetByID(order.ID)
		if readErr != nil {
			return "", readErr
		}
		order.Status = fresh.Status
		if fresh.Status == target {
			transitionsTotal.WithLabelValues("pending", string(target), "already_settled").Inc()
			return OutcomeAlreadySettled, nil
		}
		p.logAnomaly(order, event, target)
		return "", ErrTransitionConflict
	}

	order.Status = target
	transitionsTotal.WithLabelValues("pending", string(target), "applied").Inc()

	if target == models.OrderStatusPaid {
		p.fulfill(order, event)
	} else {
		p.noteFailure(order, event)
	}

	return OutcomeApplied, nil
}

// fulfill runs the payment-complete side effects. It only ever executes in
// the compare-and-set winner.
func (p *TransitionPolicy) fulfill(order *models.Order, event ReconciliationEvent) {
	now := time.Now()
	txID := pkgvalidator.SanitizeString(event.TransactionID)

	if err := p.orderRepo.SetPaymentDetails(order.ID, txID, now); err != nil {
		logger.Error(err, "Failed to record payment details", map[string]interface{}{
			"order_id": order.ID,
		})
	}

	note := fmt.Sprintf(
		"Payment completed via %s. Transaction ID: %s, Amount: %s, Sender: %s, Source: %s",
		pkgvalidator.SanitizeString(event.PaymentMethod),
		txID,
		pkgvalidator.SanitizeString(event.Amount),
		pkgvalidator.SanitizeString(event.SenderNumber),
		event.Source,
	)
	if err := p.orderRepo.AddNote(order.ID, note); err != nil {
		logger.Error(err, "Failed to record payment note", map[string]interface{}{
			"order_id": order.ID,
		})
	}

	if p.productRepo != nil {
		for _, item := range order.Items {
			if err := p.productRepo.ReduceStock(item.ProductID, item.Quantity); err != nil {
				logger.Error(err, "Failed to reduce stock for paid order", map[string]interface{}{
					"order_id":   order.ID,
					"product_id": item.ProductID,
					"quantity":   item.Quantity,
				})
			}
		}
	}

	logger.Info("Order paid", map[string]interface{}{
		"order_id":       order.ID,
		"transaction_id": txID,
		"source":         event.Source,
	})
}

func (p *TransitionPolicy) noteFailure(order *models.Order, event ReconciliationEvent) {
	if err := p.orderRepo.AddNote(order.ID, fmt.Sprintf("Payment failed (reported %s via %s)",
		pkgvalidator.SanitizeString(event.ReportedStatus), event.Source)); err != nil {
		logger.Error(err, "Failed to record failure note", map[string]interface{}{
			"order_id": order.ID,
		})
	}

	logger.Info("Order failed", map[string]interface{}{
		"order_id": order.ID,
		"source":   event.Source,
	})
}

// logAnomaly records a rejected transition. A stale or duplicated event from
// an out-of-order channel must never clobber a settled order silently.
func (p *TransitionPolicy) logAnomaly(order *models.Order, event ReconciliationEvent, target models.OrderStatus) {
	transitionsTotal.WithLabelValues(string(order.Status), string(target), "rejected").Inc()
	logger.Warn("Rejected order status transition", map[string]interface{}{
		"order_id":        order.ID,
		"current_status":  order.Status,
		"target_status":   target,
		"reported_status": event.ReportedStatus,
		"source":          event.Source,
	})
}
