package astimpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"storefront-payments/internal/payments"
)

const (
	createChargePath  = "/api/checkout-v2"
	verifyPaymentPath = "/api/verify-payment"

	// APIKeyHeader carries the merchant API key on outbound calls and the
	// shared secret on inbound webhook deliveries.
	APIKeyHeader = "API-KEY"
)

// Provider implements the payments.Provider interface for the AstimPay hosted
// checkout using direct HTTP calls.
type Provider struct {
	apiKey     string
	apiBaseURL string
	httpClient *http.Client
	userAgent  string
}

// NewProvider constructs an AstimPay provider from the merchant API key and
// the dashboard-supplied API base URL.
func NewProvider(apiKey, apiBaseURL string, timeout time.Duration) (*Provider, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return nil, errors.New("astimpay api key is required")
	}
	base := strings.TrimRight(strings.TrimSpace(apiBaseURL), "/")
	if base == "" {
		return nil, errors.New("astimpay api base url is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Provider{
		apiKey:     key,
		apiBaseURL: base,
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  "storefront-payments/astimpay",
	}, nil
}

type createChargeRequest struct {
	FullName    string            `json:"full_name"`
	Email       string            `json:"email"`
	Amount      string            `json:"amount"`
	InvoiceID   string            `json:"invoice_id"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	RedirectURL string            `json:"redirect_url"`
	ReturnType  string            `json:"return_type"`
	CancelURL   string            `json:"cancel_url"`
	WebhookURL  string            `json:"webhook_url"`
}

type createChargeResponse struct {
	Status     bool   `json:"status"`
	Message    string `json:"message"`
	PaymentURL string `json:"payment_url"`
}

type verifyPaymentRequest struct {
	InvoiceID string `json:"invoice_id"`
}

type verifyPaymentResponse struct {
	Status        string `json:"status"`
	InvoiceID     string `json:"invoice_id"`
	TransactionID string `json:"transaction_id"`
	Amount        string `json:"amount"`
	PaymentMethod string `json:"payment_method"`
	SenderNumber  string `json:"sender_number"`
	Message       string `json:"message"`
}

func (p *Provider) post(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	req.Header.Set(APIKeyHeader, p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", p.userAgent)

	return p.httpClient.Do(req)
}

// CreatePaymentSession creates a hosted checkout session and returns the URL
// the buyer should be redirected to.
func (p *Provider) CreatePaymentSession(ctx context.Context, params payments.SessionParams) (*payments.Session, error) {
	if p == nil {
		return nil, errors.New("astimpay provider is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if strings.TrimSpace(params.Amount) == "" {
		return nil, errors.New("payment amount is required")
	}
	if strings.TrimSpace(params.InvoiceID) == "" {
		return nil, errors.New("invoice id is required")
	}

	body := createChargeRequest{
		FullName:    params.FullName,
		Email:       params.Email,
		Amount:      params.Amount,
		InvoiceID:   params.InvoiceID,
		Metadata:    params.Metadata,
		RedirectURL: params.RedirectURL,
		ReturnType:  "GET",
		CancelURL:   params.CancelURL,
		WebhookURL:  params.WebhookURL,
	}

	resp, err := p.post(ctx, createChargePath, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload createChargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("astimpay response decode failed: %w", err)
	}

	if resp.StatusCode >= 400 || !payload.Status {
		message := strings.TrimSpace(payload.Message)
		if message == "" {
			message = fmt.Sprintf("astimpay returned status %d", resp.StatusCode)
		}
		return nil, errors.New(message)
	}

	if payload.PaymentURL == "" {
		return nil, errors.New("astimpay response missing payment url")
	}

	return &payments.Session{InvoiceID: params.InvoiceID, PaymentURL: payload.PaymentURL}, nil
}

// VerifyPayment queries the authoritative state of a payment session. The
// reported status is never taken from the buyer's return URL.
func (p *Provider) VerifyPayment(ctx context.Context, invoiceID string) (*payments.PaymentDetails, error) {
	if p == nil {
		return nil, errors.New("astimpay provider is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return nil, errors.New("invoice id is required")
	}

	resp, err := p.post(ctx, verifyPaymentPath, verifyPaymentRequest{InvoiceID: invoiceID})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload verifyPaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("astimpay response decode failed: %w", err)
	}

	if resp.StatusCode >= 400 {
		message := strings.TrimSpace(payload.Message)
		if message == "" {
			message = fmt.Sprintf("astimpay returned status %d", resp.StatusCode)
		}
		return nil, errors.New(message)
	}

	if payload.Status == "" {
		return nil, errors.New("astimpay response missing payment status")
	}

	return &payments.PaymentDetails{
		InvoiceID:     payload.InvoiceID,
		Status:        payload.Status,
		TransactionID: payload.TransactionID,
		Amount:        payload.Amount,
		PaymentMethod: payload.PaymentMethod,
		SenderNumber:  payload.SenderNumber,
	}, nil
}
