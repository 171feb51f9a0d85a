package astimpay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront-payments/internal/payments"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider, err := NewProvider("test-api-key", server.URL, 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	return provider
}

func TestCreatePaymentSession(t *testing.T) {
	var captured createChargeRequest
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/checkout-v2" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("API-KEY"); got != "test-api-key" {
			t.Errorf("API-KEY header %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(createChargeResponse{
			Status:     true,
			PaymentURL: "https://pay.astimpay.example/session/abc",
		})
	})

	session, err := provider.CreatePaymentSession(context.Background(), payments.SessionParams{
		FullName:    "Jamal Uddin",
		Email:       "jamal@example.com",
		Amount:      "1102.50",
		InvoiceID:   "42",
		Metadata:    map[string]string{"order_id": "42"},
		RedirectURL: "https://pay.shop.example/payment/return?order_id=42",
		CancelURL:   "https://pay.shop.example/checkout?payment=canceled",
		WebhookURL:  "https://pay.shop.example/payment/ipn",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if session.PaymentURL != "https://pay.astimpay.example/session/abc" {
		t.Fatalf("payment URL %q", session.PaymentURL)
	}
	if session.InvoiceID != "42" {
		t.Fatalf("invoice id %q", session.InvoiceID)
	}
	if captured.Amount != "1102.50" || captured.FullName != "Jamal Uddin" {
		t.Fatalf("forwarded charge %+v", captured)
	}
	// The processor must echo this invoice id on the webhook and the return;
	// the whole correlation scheme hangs on it being sent here.
	if captured.InvoiceID != "42" {
		t.Fatalf("charge invoice id %q", captured.InvoiceID)
	}
	if captured.ReturnType != "GET" {
		t.Fatalf("return type %q", captured.ReturnType)
	}
	if captured.WebhookURL != "https://pay.shop.example/payment/ipn" {
		t.Fatalf("webhook URL %q", captured.WebhookURL)
	}
}

func TestCreatePaymentSessionDeclined(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(createChargeResponse{Status: false, Message: "Invalid amount"})
	})

	_, err := provider.CreatePaymentSession(context.Background(), payments.SessionParams{
		Amount:    "0.00",
		InvoiceID: "42",
	})
	if err == nil || !strings.Contains(err.Error(), "Invalid amount") {
		t.Fatalf("expected processor message, got %v", err)
	}
}

func TestCreatePaymentSessionRejectsIncompleteParams(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the processor")
	})

	if _, err := provider.CreatePaymentSession(context.Background(), payments.SessionParams{InvoiceID: "42"}); err == nil {
		t.Fatal("missing amount accepted")
	}
	if _, err := provider.CreatePaymentSession(context.Background(), payments.SessionParams{Amount: "10.00"}); err == nil {
		t.Fatal("missing invoice id accepted")
	}
}

func TestVerifyPayment(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/verify-payment" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("API-KEY"); got != "test-api-key" {
			t.Errorf("API-KEY header %q", got)
		}
		var req verifyPaymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InvoiceID != "42" {
			t.Errorf("verify request %+v, err %v", req, err)
		}
		json.NewEncoder(w).Encode(verifyPaymentResponse{
			Status:        "Completed",
			InvoiceID:     "42",
			TransactionID: "TXN-1",
			Amount:        "1102.50",
			PaymentMethod: "bkash",
			SenderNumber:  "01700000000",
		})
	})

	details, err := provider.VerifyPayment(context.Background(), "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if details.Status != "Completed" || details.TransactionID != "TXN-1" {
		t.Fatalf("details %+v", details)
	}
}

func TestVerifyPaymentUpstreamError(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(verifyPaymentResponse{Message: "Invoice not found"})
	})

	_, err := provider.VerifyPayment(context.Background(), "99")
	if err == nil || !strings.Contains(err.Error(), "Invoice not found") {
		t.Fatalf("expected processor message, got %v", err)
	}
}

func TestVerifyPaymentMissingStatus(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(verifyPaymentResponse{InvoiceID: "42"})
	})

	if _, err := provider.VerifyPayment(context.Background(), "42"); err == nil {
		t.Fatal("empty status accepted")
	}
}

func TestNewProviderValidation(t *testing.T) {
	if _, err := NewProvider("", "https://api.example.com", time.Second); err == nil {
		t.Fatal("empty api key accepted")
	}
	if _, err := NewProvider("key", "  ", time.Second); err == nil {
		t.Fatal("empty base url accepted")
	}
	provider, err := NewProvider("key", "https://api.example.com/", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if provider.apiBaseURL != "https://api.example.com" {
		t.Fatalf("base url %q not normalized", provider.apiBaseURL)
	}
}
