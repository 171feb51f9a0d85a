package repository

import (
	"gorm.io/gorm"

	"storefront-payments/internal/models"
)

type PaymentTokenRepository interface {
	// Issue mints a fresh single-use token bound to one order.
	Issue(orderID uint, token string) error
	// Consume marks the token used. The flip from unused to used is a
	// compare-and-set, so a replayed token validates at most once.
	Consume(orderID uint, token string) (bool, error)
}

type paymentTokenRepository struct {
	db *gorm.DB
}

func NewPaymentTokenRepository(db *gorm.DB) PaymentTokenRepository {
	return &paymentTokenRepository{db: db}
}

func (r *paymentTokenRepository) Issue(orderID uint, token string) error {
	return r.db.Create(&models.PaymentToken{OrderID: orderID, Token: token}).Error
}

func (r *paymentTokenRepository) Consume(orderID uint, token string) (bool, error) {
	result := r.db.Model(&models.PaymentToken{}).
		Where("order_id = ? AND token = ? AND used = ?", orderID, token, false).
		Update("used", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
