package events

import (
	"errors"
	"time"
)

const (
	// Event types
	OrderCreated     = "order.created"
	OrderUpdated     = "order.updated"
	OrderDeleted     = "order.deleted"
	NotificationSent = "notification.sent"

	// Event status enums for the order_events collection
	EventStatusPending   = "pending"
	EventStatusFailed    = "failed"
	EventStatusCompleted = "completed"
	EventStatusReplaying = "replaying"
)

// OrderEvent is published on order.created and order.updated.
type OrderEvent struct {
	OrderID     string    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	Customer    string    `json:"customerName"`
	Status      string    `json:"status"`
	TotalAmount string    `json:"totalAmount"`
	Version     int       `json:"version"`
	TimeStamp   time.Time `json:"timestamp"`
}

func (e *OrderEvent) Validate() error {
	if e.OrderID == "" || e.OrderNumber == "" {
		return errors.New("missing required fields in OrderEvent")
	}
	return nil
}

// OrderDeletedEvent is published when an order and its items are removed.
type OrderDeletedEvent struct {
	OrderID   string    `json:"orderId"`
	Version   int       `json:"version"`
	TimeStamp time.Time `json:"timestamp"`
}

func (e *OrderDeletedEvent) Validate() error {
	if e.OrderID == "" {
		return errors.New("missing required fields in OrderDeletedEvent")
	}
	return nil
}

type NotificationSentEvent struct {
	OrderID   string    `json:"orderId"`
	Message   string    `json:"message"`
	Version   int       `json:"version"`
	TimeStamp time.Time `json:"timestamp"`
}

func (e *NotificationSentEvent) Validate() error {
	if e.OrderID == "" || e.Message == "" {
		return errors.New("missing required fields in NotificationSentEvent")
	}
	return nil
}
