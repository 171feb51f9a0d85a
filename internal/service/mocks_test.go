package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"storefront-payments/internal/models"
	"storefront-payments/internal/payments"
)

type mockOrderRepo struct {
	mu     sync.Mutex
	nextID uint
	orders map[uint]*models.Order
	notes  map[uint][]string

	failUpdateStatus error
}

func newMockOrderRepo(orders ...*models.Order) *mockOrderRepo {
	repo := &mockOrderRepo{
		nextID: 1,
		orders: make(map[uint]*models.Order),
		notes:  make(map[uint][]string),
	}
	for _, order := range orders {
		if order.ID == 0 {
			order.ID = repo.nextID
		}
		if order.ID >= repo.nextID {
			repo.nextID = order.ID + 1
		}
		repo.orders[order.ID] = order
	}
	return repo
}

func (m *mockOrderRepo) Create(order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order.ID = m.nextID
	m.nextID++
	clone := *order
	m.orders[order.ID] = &clone
	return nil
}

func (m *mockOrderRepo) GetByID(id uint) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *order
	clone.Items = append([]models.OrderItem(nil), order.Items...)
	return &clone, nil
}

func (m *mockOrderRepo) UpdateStatusIf(id uint, from, to models.OrderStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdateStatus != nil {
		return false, m.failUpdateStatus
	}
	order, ok := m.orders[id]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	return true, nil
}

func (m *mockOrderRepo) SetPaymentDetails(id uint, transactionID string, paidAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	order.TransactionID = transactionID
	order.PaidAt = &paidAt
	return nil
}

func (m *mockOrderRepo) AddNote(orderID uint, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes[orderID] = append(m.notes[orderID], note)
	return nil
}

func (m *mockOrderRepo) ListNotes(orderID uint) ([]models.OrderNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	notes := make([]models.OrderNote, 0, len(m.notes[orderID]))
	for _, note := range m.notes[orderID] {
		notes = append(notes, models.OrderNote{OrderID: orderID, Note: note})
	}
	return notes, nil
}

func (m *mockOrderRepo) status(id uint) models.OrderStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id].Status
}

func (m *mockOrderRepo) noteCount(id uint) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notes[id])
}

type mockProductRepo struct {
	mu       sync.Mutex
	products map[uint]*models.Product
	reduced  map[uint]int64
}

func newMockProductRepo(products ...*models.Product) *mockProductRepo {
	repo := &mockProductRepo{
		products: make(map[uint]*models.Product),
		reduced:  make(map[uint]int64),
	}
	for _, product := range products {
		repo.products[product.ID] = product
	}
	return repo
}

func (m *mockProductRepo) GetByID(id uint) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *product
	return &clone, nil
}

func (m *mockProductRepo) GetByIDs(ids []uint) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if product, ok := m.products[id]; ok {
			result = append(result, *product)
		}
	}
	return result, nil
}

func (m *mockProductRepo) ReduceStock(id uint, quantity int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.products[id]
	if !ok || product.Stock < quantity {
		return gorm.ErrRecordNotFound
	}
	product.Stock -= quantity
	m.reduced[id] += quantity
	return nil
}

func (m *mockProductRepo) reducedBy(id uint) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reduced[id]
}

type issuedToken struct {
	orderID uint
	used    bool
}

type mockTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*issuedToken
}

func newMockTokenRepo() *mockTokenRepo {
	return &mockTokenRepo{tokens: make(map[string]*issuedToken)}
}

func (m *mockTokenRepo) Issue(orderID uint, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tokens[token]; exists {
		return fmt.Errorf("token already issued")
	}
	m.tokens[token] = &issuedToken{orderID: orderID}
	return nil
}

func (m *mockTokenRepo) Consume(orderID uint, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	issued, ok := m.tokens[token]
	if !ok || issued.orderID != orderID || issued.used {
		return false, nil
	}
	issued.used = true
	return true, nil
}

func (m *mockTokenRepo) issuedFor(orderID uint) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, issued := range m.tokens {
		if issued.orderID == orderID {
			return token
		}
	}
	return ""
}

type mockProvider struct {
	mu          sync.Mutex
	createCalls int
	verifyCalls int

	createFn func(params payments.SessionParams) (*payments.Session, error)
	verifyFn func(invoiceID string) (*payments.PaymentDetails, error)

	lastParams payments.SessionParams
}

func (m *mockProvider) CreatePaymentSession(ctx context.Context, params payments.SessionParams) (*payments.Session, error) {
	m.mu.Lock()
	m.createCalls++
	m.lastParams = params
	fn := m.createFn
	m.mu.Unlock()
	if fn != nil {
		return fn(params)
	}
	return &payments.Session{InvoiceID: params.InvoiceID, PaymentURL: "https://pay.example.com/session"}, nil
}

func (m *mockProvider) VerifyPayment(ctx context.Context, invoiceID string) (*payments.PaymentDetails, error) {
	m.mu.Lock()
	m.verifyCalls++
	fn := m.verifyFn
	m.mu.Unlock()
	if fn != nil {
		return fn(invoiceID)
	}
	return &payments.PaymentDetails{InvoiceID: invoiceID, Status: payments.StatusCompleted}, nil
}

func (m *mockProvider) verifyCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verifyCalls
}
