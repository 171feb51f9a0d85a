package payments

import "context"

// Reported payment statuses a hosted processor can return for a session.
const (
	StatusCompleted = "Completed"
	StatusPending   = "Pending"
	StatusFailed    = "FAILED"
	StatusError     = "ERROR"
)

// SessionParams encapsulates the parameters needed to create a hosted payment
// session. Amount is a fixed 2-decimal string in the settlement currency.
type SessionParams struct {
	FullName    string
	Email       string
	Amount      string
	InvoiceID   string
	Metadata    map[string]string
	RedirectURL string
	CancelURL   string
	WebhookURL  string
}

// Session represents a payment session created by a provider. The buyer is
// redirected to PaymentURL to complete payment on the hosted page.
type Session struct {
	InvoiceID  string
	PaymentURL string
}

// PaymentDetails is the authoritative state of a payment session retrieved
// from the provider, keyed by invoice id.
type PaymentDetails struct {
	InvoiceID     string
	Status        string
	TransactionID string
	Amount        string
	PaymentMethod string
	SenderNumber  string
}

// Provider defines the behaviour required to create and verify hosted payment
// sessions across payment vendors.
type Provider interface {
	CreatePaymentSession(ctx context.Context, params SessionParams) (*Session, error)
	VerifyPayment(ctx context.Context, invoiceID string) (*PaymentDetails, error)
}
