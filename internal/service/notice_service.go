package service

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"storefront-payments/internal/models"
	"storefront-payments/pkg/cache"
	"storefront-payments/pkg/logger"
)

const noticeTTL = 30 * time.Minute

// NoticeService queues buyer-facing messages produced during payment
// reconciliation for one-shot display on the order-received page. Notices are
// kept in Redis when available so they survive across instances; otherwise an
// in-process queue serves single-node deployments.
type NoticeService struct {
	cache *cache.Cache

	mu     sync.Mutex
	memory map[uint][]models.Notice
}

func NewNoticeService(c *cache.Cache) *NoticeService {
	return &NoticeService{
		cache:  c,
		memory: make(map[uint][]models.Notice),
	}
}

func noticeKey(orderID uint) string {
	return fmt.Sprintf("notices:order:%d", orderID)
}

// Queue appends a notice for the order. noticeType is one of success, notice,
// error.
func (s *NoticeService) Queue(orderID uint, noticeType, message string) {
	if s == nil {
		return
	}
	notice := models.Notice{Type: noticeType, Message: message}

	if s.cache.Enabled() {
		if err := s.cache.PushList(noticeKey(orderID), notice, noticeTTL); err == nil {
			return
		} else {
			logger.Warn("Falling back to in-memory notice queue", map[string]interface{}{
				"order_id": orderID,
				"reason":   err.Error(),
			})
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.memory[orderID] = append(s.memory[orderID], notice)
}

// Drain returns all queued notices for the order and removes them, so a page
// refresh does not show them again.
func (s *NoticeService) Drain(orderID uint) []models.Notice {
	if s == nil {
		return nil
	}

	notices := []models.Notice{}

	if s.cache.Enabled() {
		if raw, err := s.cache.DrainList(noticeKey(orderID)); err == nil {
			for _, item := range raw {
				var notice models.Notice
				if err := json.Unmarshal([]byte(item), &notice); err == nil {
					notices = append(notices, notice)
				}
			}
		}
	}

	s.mu.Lock()
	if local, ok := s.memory[orderID]; ok {
		notices = append(notices, local...)
		delete(s.memory, orderID)
	}
	s.mu.Unlock()

	return notices
}
