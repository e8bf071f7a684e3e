package notification

import (
	"context"
	"go-order-api/src/infrastructure/log"
)

// NotificationRequest represents a notification to be sent
type NotificationRequest struct {
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	Recipient   string `json:"recipient"`
	Message     string `json:"message"`
	MessageType string `json:"messageType"` // "confirmation", "update", "deletion"
}

// NotificationService defines the interface for sending notifications
type NotificationService interface {
	SendNotification(ctx context.Context, request NotificationRequest) error
}

// NotificationServiceImpl implements the NotificationService interface
type NotificationServiceImpl struct {
	logger log.Logger
	// In a real implementation, you would have an email client here.
}

// NewNotificationService creates a new notification service instance
func NewNotificationService(logger log.Logger) NotificationService {
	return &NotificationServiceImpl{
		logger: logger,
	}
}

// SendNotification delivers the notification. Delivery is currently a log
// line; the email integration plugs in here.
func (n *NotificationServiceImpl) SendNotification(ctx context.Context, request NotificationRequest) error {
	n.logger.InfoWithExtra(ctx, "EMAIL NOTIFICATION", map[string]any{
		"OrderId":     request.OrderID,
		"OrderNumber": request.OrderNumber,
		"Recipient":   request.Recipient,
		"MessageType": request.MessageType,
		"Message":     request.Message,
	})
	return nil
}
