package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"

	"storefront-payments/internal/models"
	"storefront-payments/internal/payments"
)

func newReconcileFixture(t *testing.T, order *models.Order, provider *mockProvider) (*ReconcileService, *mockOrderRepo, *mockTokenRepo, *NoticeService) {
	t.Helper()
	var orderRepo *mockOrderRepo
	if order != nil {
		orderRepo = newMockOrderRepo(order)
	} else {
		orderRepo = newMockOrderRepo()
	}
	tokenRepo := newMockTokenRepo()
	notices := NewNoticeService(nil)
	policy := NewTransitionPolicy(orderRepo, newMockProductRepo(&models.Product{ID: 1, Title: "Widget", PriceCents: 500, Stock: 10}))
	svc := NewReconcileService(orderRepo, tokenRepo, provider, policy, notices)
	return svc, orderRepo, tokenRepo, notices
}

func TestVerifyReturnCompletesPayment(t *testing.T) {
	provider := &mockProvider{}
	svc, orderRepo, tokenRepo, notices := newReconcileFixture(t, pendingOrder(42), provider)
	if err := tokenRepo.Issue(42, "tok-1"); err != nil {
		t.Fatal(err)
	}

	result, err := svc.VerifyReturn(context.Background(), "42", "42", "tok-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OrderKnown || result.OrderID != 42 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if got := orderRepo.status(42); got != models.OrderStatusPaid {
		t.Fatalf("expected paid, got %q", got)
	}

	queued := notices.Drain(42)
	if len(queued) != 1 || queued[0].Type != "success" {
		t.Fatalf("expected one success notice, got %+v", queued)
	}
	// Notices display exactly once.
	if again := notices.Drain(42); len(again) != 0 {
		t.Fatalf("notices redisplayed: %+v", again)
	}
}

func TestVerifyReturnRejectsInvalidTokenBeforeStatusQuery(t *testing.T) {
	provider := &mockProvider{}
	svc, orderRepo, tokenRepo, _ := newReconcileFixture(t, pendingOrder(42), provider)
	if err := tokenRepo.Issue(42, "tok-1"); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.VerifyReturn(context.Background(), "42", "42", "tampered"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if provider.verifyCallCount() != 0 {
		t.Fatal("status query reached the processor despite a bad token")
	}
	if got := orderRepo.status(42); got != models.OrderStatusPending {
		t.Fatalf("order mutated to %q", got)
	}
}

func TestVerifyReturnRejectsReusedToken(t *testing.T) {
	provider := &mockProvider{}
	svc, _, tokenRepo, _ := newReconcileFixture(t, pendingOrder(42), provider)
	if err := tokenRepo.Issue(42, "tok-1"); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.VerifyReturn(context.Background(), "42", "42", "tok-1"); err != nil {
		t.Fatalf("first return: %v", err)
	}
	if _, err := svc.VerifyReturn(context.Background(), "42", "42", "tok-1"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken on reuse, got %v", err)
	}
	if provider.verifyCallCount() != 1 {
		t.Fatalf("expected exactly one status query, got %d", provider.verifyCallCount())
	}
}

func TestVerifyReturnRequiresAllParameters(t *testing.T) {
	provider := &mockProvider{}
	svc, _, _, _ := newReconcileFixture(t, pendingOrder(42), provider)

	cases := [][3]string{
		{"", "42", "tok"},
		{"42", "", "tok"},
		{"42", "42", ""},
		{"abc", "abc", "tok"},
		{"42", "43", "tok"}, // invoice/order mismatch
	}
	for _, tc := range cases {
		if _, err := svc.VerifyReturn(context.Background(), tc[0], tc[1], tc[2]); !IsValidationError(err) {
			t.Fatalf("params %v: expected validation error, got %v", tc, err)
		}
	}
	if provider.verifyCallCount() != 0 {
		t.Fatal("status query ran for malformed returns")
	}
}

func TestVerifyReturnPendingStatusQueuesNotice(t *testing.T) {
	provider := &mockProvider{verifyFn: func(invoiceID string) (*payments.PaymentDetails, error) {
		return &payments.PaymentDetails{InvoiceID: invoiceID, Status: payments.StatusPending}, nil
	}}
	svc, orderRepo, tokenRepo, notices := newReconcileFixture(t, pendingOrder(42), provider)
	if err := tokenRepo.Issue(42, "tok-1"); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.VerifyReturn(context.Background(), "42", "42", "tok-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := orderRepo.status(42); got != models.OrderStatusPending {
		t.Fatalf("pending report transitioned order to %q", got)
	}

	queued := notices.Drain(42)
	if len(queued) != 1 || queued[0].Type != "notice" {
		t.Fatalf("expected one informational notice, got %+v", queued)
	}
}

func TestVerifyReturnStalePendingReportShowsSettledOutcome(t *testing.T) {
	// The webhook already settled the order; the processor's status query is
	// lagging behind and still answers Pending.
	provider := &mockProvider{verifyFn: func(invoiceID string) (*payments.PaymentDetails, error) {
		return &payments.PaymentDetails{InvoiceID: invoiceID, Status: payments.StatusPending}, nil
	}}
	svc, orderRepo, tokenRepo, notices := newReconcileFixture(t, &models.Order{ID: 42, Status: models.OrderStatusPaid}, provider)
	if err := tokenRepo.Issue(42, "tok-1"); err != nil {
		t.Fatal(err)
	}

	result, err := svc.VerifyReturn(context.Background(), "42", "42", "tok-1")
	if err != nil || !result.OrderKnown {
		t.Fatalf("unexpected result %+v, err %v", result, err)
	}
	if got := orderRepo.status(42); got != models.OrderStatusPaid {
		t.Fatalf("stale pending report changed order to %q", got)
	}
	if queued := notices.Drain(42); len(queued) != 1 || queued[0].Type != "success" {
		t.Fatalf("expected the settled outcome notice, got %+v", queued)
	}
}

func TestVerifyReturnUpstreamFailureLeavesOrderUnresolved(t *testing.T) {
	provider := &mockProvider{verifyFn: func(string) (*payments.PaymentDetails, error) {
		return nil, fmt.Errorf("connection reset")
	}}
	svc, orderRepo, tokenRepo, notices := newReconcileFixture(t, pendingOrder(42), provider)
	if err := tokenRepo.Issue(42, "tok-1"); err != nil {
		t.Fatal(err)
	}

	result, err := svc.VerifyReturn(context.Background(), "42", "42", "tok-1")
	if err != nil {
		t.Fatalf("upstream failure must not fail the return: %v", err)
	}
	if !result.OrderKnown {
		t.Fatal("order should still be known for the redirect")
	}
	if got := orderRepo.status(42); got != models.OrderStatusPending {
		t.Fatalf("upstream failure transitioned order to %q", got)
	}
	if queued := notices.Drain(42); len(queued) != 1 || queued[0].Type != "error" {
		t.Fatalf("expected one retryable notice, got %+v", queued)
	}
}

func TestProcessWebhookAppliesCompleted(t *testing.T) {
	svc, orderRepo, _, _ := newReconcileFixture(t, pendingOrder(42), &mockProvider{})

	outcome, err := svc.ProcessWebhook(models.WebhookRequest{
		InvoiceID:     "42",
		Status:        payments.StatusCompleted,
		TransactionID: "TXN-9",
		Amount:        "15.00",
		PaymentMethod: "nagad",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeApplied {
		t.Fatalf("expected OutcomeApplied, got %q", outcome)
	}
	if got := orderRepo.status(42); got != models.OrderStatusPaid {
		t.Fatalf("expected paid, got %q", got)
	}
}

func TestProcessWebhookRedeliveryIsBenign(t *testing.T) {
	svc, orderRepo, _, _ := newReconcileFixture(t, pendingOrder(42), &mockProvider{})
	req := models.WebhookRequest{InvoiceID: "42", Status: payments.StatusCompleted, TransactionID: "TXN-9"}

	if _, err := svc.ProcessWebhook(req); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	outcome, err := svc.ProcessWebhook(req)
	if err != nil {
		t.Fatalf("redelivery must succeed: %v", err)
	}
	if outcome != OutcomeAlreadySettled {
		t.Fatalf("expected OutcomeAlreadySettled, got %q", outcome)
	}
	if orderRepo.noteCount(42) != 1 {
		t.Fatalf("redelivery duplicated the payment note: %d", orderRepo.noteCount(42))
	}
}

func TestProcessWebhookConflictMapsToAlreadyProcessed(t *testing.T) {
	svc, orderRepo, _, _ := newReconcileFixture(t, &models.Order{ID: 42, Status: models.OrderStatusPaid}, &mockProvider{})

	_, err := svc.ProcessWebhook(models.WebhookRequest{InvoiceID: "42", Status: payments.StatusFailed})
	if !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}
	if got := orderRepo.status(42); got != models.OrderStatusPaid {
		t.Fatalf("paid order regressed to %q", got)
	}
}

func TestProcessWebhookUnknownOrder(t *testing.T) {
	svc, _, _, _ := newReconcileFixture(t, nil, &mockProvider{})

	_, err := svc.ProcessWebhook(models.WebhookRequest{InvoiceID: "99", Status: payments.StatusCompleted})
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
}

func TestProcessWebhookValidation(t *testing.T) {
	svc, _, _, _ := newReconcileFixture(t, pendingOrder(42), &mockProvider{})

	cases := []models.WebhookRequest{
		{InvoiceID: "", Status: payments.StatusCompleted},
		{InvoiceID: "42", Status: ""},
		{InvoiceID: "not-a-number", Status: payments.StatusCompleted},
	}
	for _, req := range cases {
		if _, err := svc.ProcessWebhook(req); !IsValidationError(err) {
			t.Fatalf("request %+v: expected validation error, got %v", req, err)
		}
	}
}

func TestProcessWebhookUnexpectedStatus(t *testing.T) {
	svc, orderRepo, _, _ := newReconcileFixture(t, pendingOrder(42), &mockProvider{})

	_, err := svc.ProcessWebhook(models.WebhookRequest{InvoiceID: "42", Status: "Chargeback"})
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("expected ErrUnexpectedStatus, got %v", err)
	}
	if got := orderRepo.status(42); got != models.OrderStatusPending {
		t.Fatalf("unexpected status mutated order to %q", got)
	}
}
