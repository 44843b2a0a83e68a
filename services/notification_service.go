package services

import (
	"encoding/json"
	"errors"
	"log"
	"strconv"

	"github.com/creativetemmy/pair2pass-sub000/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

// Notify inserts an in-app notification. Failures are logged and swallowed:
// no lifecycle transition is ever blocked by a notification insert.
func (s *NotificationService) Notify(userID string, typ models.NotificationType, title, message string, data map[string]any) {
	payload := "{}"
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			payload = string(b)
		}
	}

	n := models.Notification{
		ID:      uuid.NewString(),
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Message: message,
		Data:    payload,
	}
	if err := s.DB.Create(&n).Error; err != nil {
		log.Printf("⚠️ Failed to insert %s notification for %s: %v", typ, userID, err)
	}
}

// --- Handlers ---

// ListNotifications returns the user's notifications, newest first.
// Query params: unread=true, limit=N (default 50).
func (s *NotificationService) ListNotifications(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	limit := 50
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= 200 {
		limit = l
	}

	query := s.DB.Where("user_id = ?", userID)
	if c.Query("unread") == "true" {
		query = query.Where("read = ?", false)
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC").Limit(limit).Find(&notifications).Error; err != nil {
		log.Printf("DB Error fetching notifications: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch notifications"})
	}

	return c.JSON(notifications)
}

// GetNotificationCounts returns total and unread counts for badge polling.
func (s *NotificationService) GetNotificationCounts(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var totalCount, unreadCount int64
	if err := s.DB.Model(&models.Notification{}).Where("user_id = ?", userID).Count(&totalCount).Error; err != nil {
		log.Printf("DB Error counting notifications: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error counting notifications"})
	}
	if err := s.DB.Model(&models.Notification{}).Where("user_id = ? AND read = ?", userID, false).Count(&unreadCount).Error; err != nil {
		log.Printf("DB Error counting unread notifications: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error counting notifications"})
	}

	return c.JSON(fiber.Map{
		"total_count":  totalCount,
		"unread_count": unreadCount,
	})
}

// MarkNotificationRead marks one notification as read (idempotent).
func (s *NotificationService) MarkNotificationRead(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	notifID := c.Params("id")

	if _, err := uuid.Parse(notifID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid notification ID"})
	}

	var n models.Notification
	if err := s.DB.Where("id = ? AND user_id = ?", notifID, userID).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Notification not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if !n.Read {
		n.Read = true
		if err := s.DB.Save(&n).Error; err != nil {
			log.Printf("Failed to mark notification read: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to mark as read"})
		}
	}

	return c.JSON(fiber.Map{"message": "OK", "notification_id": n.ID, "read": true})
}

// MarkAllNotificationsRead marks every unread notification as read.
func (s *NotificationService) MarkAllNotificationsRead(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	result := s.DB.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)

	if result.Error != nil {
		log.Printf("Bulk mark read failed: %v", result.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update notifications"})
	}

	return c.JSON(fiber.Map{
		"message":      "OK",
		"marked_count": result.RowsAffected,
	})
}
