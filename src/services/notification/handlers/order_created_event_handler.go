package handlers

import (
	"context"
	"encoding/json"
	"time"

	"go-order-api/src/infrastructure/log"
	rabbitmq "go-order-api/src/infrastructure/rabbitmq"
	"go-order-api/src/services/events"
	"go-order-api/src/services/notification"
)

// OrderCreatedEventHandler sends an order confirmation whenever an
// order.created event arrives, then publishes notification.sent.
type OrderCreatedEventHandler struct {
	rabbitMQService     *rabbitmq.RabbitMQServiceImpl
	notificationService notification.NotificationService
	logger              log.Logger
}

func NewOrderCreatedEventHandler(
	rabbit *rabbitmq.RabbitMQServiceImpl,
	notificationService notification.NotificationService,
	logger log.Logger,
) *OrderCreatedEventHandler {
	return &OrderCreatedEventHandler{
		rabbitMQService:     rabbit,
		notificationService: notificationService,
		logger:              logger,
	}
}

// Handle processes an order.created message
func (h *OrderCreatedEventHandler) Handle(ctx context.Context, msgBody []byte) {
	var event events.OrderEvent
	if err := json.Unmarshal(msgBody, &event); err != nil {
		h.logger.Exception(ctx, "Failed to unmarshal OrderEvent", err)
		return
	}

	request := notification.NotificationRequest{
		OrderID:     event.OrderID,
		OrderNumber: event.OrderNumber,
		Recipient:   event.Customer,
		Message:     "Your order " + event.OrderNumber + " has been received. Total: " + event.TotalAmount,
		MessageType: "confirmation",
	}
	if err := h.notificationService.SendNotification(ctx, request); err != nil {
		h.logger.Exception(ctx, "Failed to send order confirmation", err)
		return
	}

	notificationEvent := events.NotificationSentEvent{
		OrderID:   event.OrderID,
		Message:   "Order confirmation sent for " + event.OrderNumber,
		Version:   1,
		TimeStamp: time.Now().UTC(),
	}

	notificationJSON, err := json.Marshal(&notificationEvent)
	if err != nil {
		h.logger.Exception(ctx, "Failed to marshal NotificationSentEvent", err)
		return
	}

	if err := h.rabbitMQService.Publish(events.NotificationSent, notificationJSON); err != nil {
		h.logger.Exception(ctx, "Failed to publish NotificationSentEvent", err)
		return
	}

	h.logger.Info(ctx, "Order confirmation sent for order: "+event.OrderID)
}
