package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"storefront-payments/internal/models"
	"storefront-payments/internal/service"
)

// OrderHandler exposes order creation, lookup and queued notices to HTTP clients.
type OrderHandler struct {
	orders  *service.OrderService
	notices *service.NoticeService
}

func NewOrderHandler(orders *service.OrderService, notices *service.NoticeService) *OrderHandler {
	return &OrderHandler{orders: orders, notices: notices}
}

// Create registers a new pending order for the authenticated user.
func (h *OrderHandler) Create(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.Create(userID, req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// GetByID returns the order with its items and current status.
func (h *OrderHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	order, err := h.orders.Get(uint(id))
	if err != nil {
		h.writeError(c, err)
		return
	}

	if order.UserID != c.GetUint("user_id") {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}

	c.JSON(http.StatusOK, order)
}

// GetNotices pops the queued payment notices for the order. Each notice is
// returned exactly once; a page refresh gets an empty list.
func (h *OrderHandler) GetNotices(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notices": h.notices.Drain(uint(id))})
}

func (h *OrderHandler) writeError(c *gin.Context, err error) {
	switch {
	case service.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInsufficientStock):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process order"})
	}
}
