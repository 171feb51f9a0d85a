package models

// OrderLineRequest represents one product line in an order creation request
type OrderLineRequest struct {
	ProductID uint  `json:"product_id" binding:"required"`
	Quantity  int64 `json:"quantity" binding:"required,gt=0"`
}

// CreateOrderRequest represents a request to create a pending order
type CreateOrderRequest struct {
	BillingName  string             `json:"billing_name" binding:"required"`
	BillingEmail string             `json:"billing_email" binding:"required,email"`
	Currency     string             `json:"currency" binding:"required,currency_code"`
	Items        []OrderLineRequest `json:"items" binding:"required,min=1,dive"`
}

// CheckoutRequest represents a request to start a payment session for an order
type CheckoutRequest struct {
	OrderID uint `json:"order_id" binding:"required"`
}

// CheckoutSessionResponse carries the hosted payment page URL back to the client
type CheckoutSessionResponse struct {
	PaymentURL string `json:"payment_url"`
}

// WebhookRequest is the notification body pushed by the payment processor.
// invoice_id and status are the load-bearing fields; the rest is recorded as
// an audit annotation when the order completes.
type WebhookRequest struct {
	InvoiceID     string `json:"invoice_id"`
	Status        string `json:"status"`
	PaymentMethod string `json:"payment_method"`
	TransactionID string `json:"transaction_id"`
	Amount        string `json:"amount"`
	SenderNumber  string `json:"sender_number"`
}

// Notice is a buyer-facing message queued during payment reconciliation and
// shown exactly once on the order-received page.
type Notice struct {
	Type    string `json:"type"` // success, notice, error
	Message string `json:"message"`
}
