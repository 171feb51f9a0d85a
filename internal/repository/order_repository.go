package repository

import (
	"time"

	"gorm.io/gorm"

	"storefront-payments/internal/models"
)

type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	// UpdateStatusIf applies a compare-and-set on the order status: the update
	// only lands when the current status still equals from. Returns false when
	// another writer won the race.
	UpdateStatusIf(id uint, from, to models.OrderStatus) (bool, error)
	SetPaymentDetails(id uint, transactionID string, paidAt time.Time) error
	AddNote(orderID uint, note string) error
	ListNotes(orderID uint) ([]models.OrderNote, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

func (r *orderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.Preload("Items").First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) UpdateStatusIf(id uint, from, to models.OrderStatus) (bool, error) {
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *orderRepository) SetPaymentDetails(id uint, transactionID string, paidAt time.Time) error {
	return r.db.Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"transaction_id": transactionID,
			"paid_at":        paidAt,
		}).Error
}

func (r *orderRepository) AddNote(orderID uint, note string) error {
	return r.db.Create(&models.OrderNote{OrderID: orderID, Note: note}).Error
}

func (r *orderRepository) ListNotes(orderID uint) ([]models.OrderNote, error) {
	var notes []models.OrderNote
	err := r.db.Where("order_id = ?", orderID).Order("created_at ASC").Find(&notes).Error
	return notes, err
}
