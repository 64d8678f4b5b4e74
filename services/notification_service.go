package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/yeremiapane/line-order/kds"
	"github.com/yeremiapane/line-order/models"
	"github.com/yeremiapane/line-order/utils"
	"gorm.io/gorm"
)

// NotificationService sends order updates to customers over LINE and keeps
// a log of every attempt.
type NotificationService struct {
	db        *gorm.DB
	messenger Messenger
	events    Broadcaster
}

func NewNotificationService(db *gorm.DB, messenger Messenger, events Broadcaster) *NotificationService {
	return &NotificationService{db: db, messenger: messenger, events: broadcasterOrNoop(events)}
}

func orderStatusMessage(order *models.SalesOrder, label string) string {
	return fmt.Sprintf("ออเดอร์ %s ของคุณ\nสถานะ: %s\nยอดรวม: %s\nวันส่ง: %s",
		order.Name, label, utils.FormatTHB(order.GrandTotal), order.DeliveryDate.Format("02/01/2006"))
}

// NotifySalesOrder pushes the order's current status to the customer.
func (s *NotificationService) NotifySalesOrder(ctx context.Context, orderName string, actorID *uint) (string, error) {
	order, err := loadOrder(s.db.WithContext(ctx), orderName)
	if err != nil {
		return "", err
	}
	label, err := order.Status.Label()
	if err != nil {
		return "", err
	}

	var profile models.LineProfile
	err = s.db.WithContext(ctx).
		Where("customer_id = ? AND followed = ?", order.CustomerID, true).
		Limit(1).Find(&profile).Error
	if err != nil {
		return "", fmt.Errorf("find LINE profile: %w", err)
	}
	if profile.ID == 0 {
		return "", utils.NewBusinessError("Customer %s has no linked LINE account", order.Customer.CustomerName)
	}
	if s.messenger == nil {
		return "", utils.NewBusinessError("LINE messaging is not configured")
	}

	text := orderStatusMessage(order, label)
	record := models.Notification{
		Reference:    uuid.NewString(),
		SalesOrderID: &order.ID,
		LineUserID:   profile.LineUserID,
		Title:        "Order " + order.Name,
		Message:      text,
		Status:       models.NotificationSent,
		SentBy:       actorID,
	}

	sendErr := s.messenger.PushMessage(ctx, profile.LineUserID, TextMessage(text))
	if sendErr != nil {
		record.Status = models.NotificationFailed
		record.Error = sendErr.Error()
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		utils.ErrorLogger.WithError(err).Error("Failed to store notification")
	}

	if sendErr != nil {
		utils.ErrorLogger.WithError(sendErr).WithField("sales_order", order.Name).Error("Customer notification failed")
		if utils.KindOf(sendErr) == utils.KindInternal {
			return "", utils.NewBusinessError("Failed to notify customer: %v", sendErr)
		}
		return "", sendErr
	}

	s.events.Broadcast(kds.EventCustomerNotified, map[string]interface{}{
		"sales_order": order.Name,
		"reference":   record.Reference,
	})
	return fmt.Sprintf("Notified %s about %s", profile.DisplayName, order.Name), nil
}

// List returns the most recent notifications, newest first.
func (s *NotificationService) List(ctx context.Context, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var notifications []models.Notification
	err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&notifications).Error
	return notifications, err
}
