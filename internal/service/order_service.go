package service

import (
	"strings"

	"storefront-payments/internal/models"
	"storefront-payments/internal/repository"
	"storefront-payments/pkg/cache"
	"storefront-payments/pkg/logger"
	pkgvalidator "storefront-payments/pkg/validator"
)

// OrderService owns order creation and lookup. Orders are created pending;
// every later status change goes through the transition policy.
type OrderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	cache       *cache.Cache
}

func NewOrderService(orderRepo repository.OrderRepository, productRepo repository.ProductRepository, c *cache.Cache) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		cache:       c,
	}
}

// Create builds a pending order from product line items, pricing the total
// from the stored product prices rather than client-supplied amounts.
func (s *OrderService) Create(userID uint, req models.CreateOrderRequest) (*models.Order, error) {
	if s == nil || s.orderRepo == nil || s.productRepo == nil {
		return nil, ErrCheckoutDisabled
	}
	if userID == 0 {
		return nil, newValidationError("user id is required")
	}
	if len(req.Items) == 0 {
		return nil, newValidationError("at least one order line is required")
	}
	if !pkgvalidator.ValidateEmail(strings.TrimSpace(req.BillingEmail)) {
		return nil, newValidationError("billing email is invalid")
	}

	ids := make([]uint, 0, len(req.Items))
	quantities := make(map[uint]int64, len(req.Items))
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, newValidationError("line quantity must be greater than zero")
		}
		if _, seen := quantities[line.ProductID]; seen {
			return nil, newValidationError("duplicate product in order lines")
		}
		ids = append(ids, line.ProductID)
		quantities[line.ProductID] = line.Quantity
	}

	products, err := s.productRepo.GetByIDs(ids)
	if err != nil {
		return nil, err
	}
	if len(products) != len(ids) {
		return nil, newValidationError("one or more products do not exist")
	}

	var totalCents int64
	items := make([]models.OrderItem, 0, len(products))
	for _, product := range products {
		quantity := quantities[product.ID]
		if product.Stock < quantity {
			return nil, ErrInsufficientStock
		}
		totalCents += product.PriceCents * quantity
		items = append(items, models.OrderItem{
			ProductID:      product.ID,
			Title:          product.Title,
			Quantity:       quantity,
			UnitPriceCents: product.PriceCents,
		})
	}
	if totalCents <= 0 {
		return nil, newValidationError("order total must be greater than zero")
	}

	order := &models.Order{
		UserID:       userID,
		Status:       models.OrderStatusPending,
		TotalCents:   totalCents,
		Currency:     strings.ToUpper(strings.TrimSpace(req.Currency)),
		BillingName:  pkgvalidator.SanitizeString(req.BillingName),
		BillingEmail: strings.TrimSpace(req.BillingEmail),
		Items:        items,
	}

	if err := s.orderRepo.Create(order); err != nil {
		return nil, err
	}

	logger.Info("Order created", map[string]interface{}{
		"order_id":    order.ID,
		"user_id":     userID,
		"total_cents": totalCents,
		"currency":    order.Currency,
	})

	return order, nil
}

// Get returns an order with its line items, serving repeat status polls from
// cache when one is configured.
func (s *OrderService) Get(id uint) (*models.Order, error) {
	if s == nil || s.orderRepo == nil {
		return nil, ErrCheckoutDisabled
	}

	if s.cache.Enabled() {
		var cached models.Order
		if err := s.cache.GetCachedOrder(id, &cached); err == nil && cached.ID == id {
			// Pending orders change under reconciliation; only settled ones
			// are safe to serve stale.
			if cached.Status.Terminal() {
				return &cached, nil
			}
		}
	}

	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if s.cache.Enabled() && order.Status.Terminal() {
		if err := s.cache.CacheOrder(order.ID, order); err != nil {
			logger.Debug("Failed to cache order", map[string]interface{}{
				"order_id": order.ID,
			})
		}
	}

	return order, nil
}
