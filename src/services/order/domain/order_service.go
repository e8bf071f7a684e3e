package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go-order-api/src/apperrors"
	"go-order-api/src/infrastructure/log"
	"go-order-api/src/services/events"
	"go-order-api/src/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderRepository is the persistence boundary for the order aggregate.
// Implementations return apperrors.NotFoundError for unknown ids.
type OrderRepository interface {
	GetByID(ctx context.Context, id string) (*Order, error)
	Search(ctx context.Context, filter ListFilter) ([]*Order, error)
	Insert(ctx context.Context, order *Order) error
	Update(ctx context.Context, order *Order) error
	Delete(ctx context.Context, id string) error
}

// ProductRepository resolves and stores catalog products. FindByName returns
// (nil, nil) on a miss; Insert returns apperrors.ConflictError when another
// writer already took the name.
type ProductRepository interface {
	FindByName(ctx context.Context, name string) (*Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	Insert(ctx context.Context, product *Product) error
}

// FailedEvent is a lifecycle event whose publish failed and which waits in
// storage for a replay.
type FailedEvent struct {
	ID        string
	OrderID   string
	Topic     string
	EventData []byte
	Status    string
	CreatedAt time.Time
}

// OrderEventRepository stores events that could not be published.
type OrderEventRepository interface {
	StoreFailedEvent(ctx context.Context, orderID, topic string, eventData []byte) error
	GetUnreplayedEvents(ctx context.Context, limit int) ([]FailedEvent, error)
	MarkEventAsReplaying(ctx context.Context, eventID string) error
	MarkEventAsCompleted(ctx context.Context, eventID string) error
	MarkEventAsFailed(ctx context.Context, eventID string) error
}

// TxRunner executes fn inside one transaction; fn returning an error rolls
// everything back.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher publishes a message under a routing key.
type EventPublisher interface {
	Publish(topic string, body []byte) error
}

// ProductPayload is the embedded product descriptor of an item payload.
type ProductPayload struct {
	Name        string
	Description string
	Price       *decimal.Decimal
}

// OrderItemPayload describes one requested line. Quantity defaults to 1 and
// PriceAtPurchase to the product descriptor's price.
type OrderItemPayload struct {
	Quantity        *int
	PriceAtPurchase *decimal.Decimal
	Product         *ProductPayload
}

// OrderPayload carries create/update input. Nil fields are absent: create
// applies defaults, update leaves the current value untouched. A nil Items
// slice on update keeps the existing item set.
type OrderPayload struct {
	OrderNumber  *string
	CustomerName *string
	OrderDate    *time.Time
	Description  *string
	Status       *string
	Items        []OrderItemPayload
	HasItems     bool
}

// ListQuery carries the raw list filters from the query string.
type ListQuery struct {
	OrderDate string
	Search    string
}

// ListFilter is the parsed form handed to the repository.
type ListFilter struct {
	DayStart *time.Time
	DayEnd   *time.Time
	Search   string
}

type OrderService interface {
	Create(ctx context.Context, payload OrderPayload) (*Order, error)
	Update(ctx context.Context, id string, payload OrderPayload) (*Order, error)
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, query ListQuery) ([]*Order, error)
	Delete(ctx context.Context, id string) error
	ReplayFailedEvents(ctx context.Context) error
}

type orderService struct {
	logger    log.Logger
	orders    OrderRepository
	products  ProductRepository
	eventRepo OrderEventRepository
	tx        TxRunner
	publisher EventPublisher
}

func NewOrderService(
	logger log.Logger,
	orders OrderRepository,
	products ProductRepository,
	eventRepo OrderEventRepository,
	tx TxRunner,
	publisher EventPublisher,
) OrderService {
	return &orderService{
		logger:    logger,
		orders:    orders,
		products:  products,
		eventRepo: eventRepo,
		tx:        tx,
		publisher: publisher,
	}
}

// Create assembles a new order from the payload, resolving each referenced
// product by name and creating missing ones. The whole assembly is validated
// before anything is written, and order plus new products commit in one
// transaction.
func (s *orderService) Create(ctx context.Context, payload OrderPayload) (*Order, error) {
	if len(payload.Items) == 0 {
		s.logger.Warn(ctx, "Rejected order creation without items")
		return nil, apperrors.NewValidationError("an order must contain at least one item")
	}

	order := &Order{
		ID:           uuid.NewString(),
		OrderNumber:  NewOrderNumber(),
		CustomerName: "",
		OrderDate:    time.Now().UTC(),
		Status:       StatusPending,
	}
	if payload.OrderNumber != nil {
		order.OrderNumber = *payload.OrderNumber
	}
	if payload.CustomerName != nil {
		order.CustomerName = *payload.CustomerName
	}
	if payload.OrderDate != nil {
		order.OrderDate = *payload.OrderDate
	}
	if payload.Description != nil {
		order.Description = *payload.Description
	}
	if payload.Status != nil {
		order.Status = Status(*payload.Status)
	}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		items, err := s.buildItems(ctx, payload.Items)
		if err != nil {
			return err
		}
		for _, item := range items {
			order.AddItem(item)
		}

		if violations := order.Validate(); violations != nil {
			return apperrors.NewValidationErrorWithViolations("order validation failed", violations)
		}

		return s.orders.Insert(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoWithExtra(ctx, "Order created", map[string]any{"OrderId": order.ID, "OrderNumber": order.OrderNumber})
	s.publishOrderEvent(ctx, events.OrderCreated, order)
	return order, nil
}

// Update applies a partial payload to an existing order. A present item list
// replaces the previous one wholesale, using the same product resolution as
// Create. Validation runs before commit; on failure the transaction rolls
// back and the previous item set survives.
func (s *orderService) Update(ctx context.Context, id string, payload OrderPayload) (*Order, error) {
	var order *Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if payload.OrderNumber != nil {
			order.OrderNumber = *payload.OrderNumber
		}
		if payload.CustomerName != nil {
			order.CustomerName = *payload.CustomerName
		}
		if payload.OrderDate != nil {
			order.OrderDate = *payload.OrderDate
		}
		if payload.Description != nil {
			order.Description = *payload.Description
		}
		if payload.Status != nil {
			order.Status = Status(*payload.Status)
		}

		if payload.HasItems {
			items, err := s.buildItems(ctx, payload.Items)
			if err != nil {
				return err
			}
			order.ReplaceItems(items)
		}

		if violations := order.Validate(); violations != nil {
			return apperrors.NewValidationErrorWithViolations("order validation failed", violations)
		}

		return s.orders.Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoWithExtra(ctx, "Order updated", map[string]any{"OrderId": order.ID})
	s.publishOrderEvent(ctx, events.OrderUpdated, order)
	return order, nil
}

func (s *orderService) Get(ctx context.Context, id string) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

// List returns orders matching the query, newest order date first. An exact
// day filter matches the whole day inclusive; an unparsable date is logged
// and ignored rather than failing the request. The search term is a
// case-insensitive substring match on order number or customer name.
func (s *orderService) List(ctx context.Context, query ListQuery) ([]*Order, error) {
	filter := ListFilter{Search: query.Search}

	if query.OrderDate != "" {
		day, err := time.Parse("2006-01-02", query.OrderDate)
		if err != nil {
			s.logger.WarnWithExtra(ctx, "Ignoring unparsable order date filter", map[string]any{
				"OrderDate": query.OrderDate,
				"Error":     err.Error(),
			})
		} else {
			start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
			end := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 0, time.UTC)
			filter.DayStart = &start
			filter.DayEnd = &end
		}
	}

	return s.orders.Search(ctx, filter)
}

// Delete removes an order and, through exclusive ownership, all of its
// items. Referenced products stay.
func (s *orderService) Delete(ctx context.Context, id string) error {
	if err := s.orders.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.InfoWithExtra(ctx, "Order deleted", map[string]any{"OrderId": id})

	event := events.OrderDeletedEvent{
		OrderID:   id,
		Version:   1,
		TimeStamp: time.Now().UTC(),
	}
	if body, err := json.Marshal(&event); err == nil {
		s.publish(ctx, events.OrderDeleted, id, body)
	}
	return nil
}

// buildItems resolves every item payload against the catalog and constructs
// the order items. Requires an embedded product descriptor with a non-empty
// name and a price.
func (s *orderService) buildItems(ctx context.Context, payloads []OrderItemPayload) ([]*OrderItem, error) {
	items := make([]*OrderItem, 0, len(payloads))
	for _, itemPayload := range payloads {
		descriptor := itemPayload.Product
		if descriptor == nil || descriptor.Name == "" || descriptor.Price == nil {
			return nil, apperrors.NewValidationError("product name and price are required for every item")
		}

		product, err := s.resolveProduct(ctx, descriptor)
		if err != nil {
			return nil, err
		}

		quantity := 1
		if itemPayload.Quantity != nil {
			quantity = *itemPayload.Quantity
		}
		priceAtPurchase := *descriptor.Price
		if itemPayload.PriceAtPurchase != nil {
			priceAtPurchase = *itemPayload.PriceAtPurchase
		}

		items = append(items, &OrderItem{
			ID:              uuid.NewString(),
			Product:         product,
			Quantity:        quantity,
			PriceAtPurchase: priceAtPurchase,
		})
	}
	return items, nil
}

// resolveProduct reuses an existing product by exact name or creates a new
// one. An existing product's price is never updated here: priceAtPurchase
// already captures the transaction price. Losing the duplicate-name race
// falls back to the winner's row.
func (s *orderService) resolveProduct(ctx context.Context, descriptor *ProductPayload) (*Product, error) {
	existing, err := s.products.FindByName(ctx, descriptor.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	product := &Product{
		ID:          uuid.NewString(),
		Name:        descriptor.Name,
		Description: descriptor.Description,
		Price:       *descriptor.Price,
	}
	if violations := validation.Apply(product.ValidationRules()); violations != nil {
		return nil, apperrors.NewValidationErrorWithViolations("product validation failed", violations)
	}

	err = s.products.Insert(ctx, product)
	if apperrors.IsConflictError(err) {
		winner, findErr := s.products.FindByName(ctx, descriptor.Name)
		if findErr != nil {
			return nil, findErr
		}
		if winner != nil {
			return winner, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

// publishOrderEvent publishes an order lifecycle event after a successful
// commit. Publishing is best effort: a failure is stored for replay, never
// surfaced to the caller.
func (s *orderService) publishOrderEvent(ctx context.Context, topic string, order *Order) {
	event := events.OrderEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Customer:    order.CustomerName,
		Status:      string(order.Status),
		TotalAmount: order.TotalAmountString(),
		Version:     1,
		TimeStamp:   time.Now().UTC(),
	}
	if err := event.Validate(); err != nil {
		s.logger.Exception(ctx, "Order event validation failed", err)
		return
	}

	body, err := json.Marshal(&event)
	if err != nil {
		s.logger.Exception(ctx, "Failed to marshal order event", err)
		return
	}

	s.publish(ctx, topic, order.ID, body)
}

func (s *orderService) publish(ctx context.Context, topic, orderID string, body []byte) {
	const maxRetries = 2
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err = s.publisher.Publish(topic, body)
		if err == nil {
			return
		}
		s.logger.Warn(ctx, fmt.Sprintf("Publish %s failed for order %s, attempt %d/%d: %v",
			topic, orderID, attempt, maxRetries, err))
		if attempt < maxRetries {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}

	s.logger.Exception(ctx, fmt.Sprintf("Storing %s event for order %s for later replay", topic, orderID), err)
	if storeErr := s.eventRepo.StoreFailedEvent(ctx, orderID, topic, body); storeErr != nil {
		s.logger.Exception(ctx, "Failed to store unpublished event", storeErr)
	}
}

// ReplayFailedEvents republishes stored events whose original publish
// failed, marking each one completed or failed again.
func (s *orderService) ReplayFailedEvents(ctx context.Context) error {
	const batchSize = 100
	const maxRetries = 3

	failed, err := s.eventRepo.GetUnreplayedEvents(ctx, batchSize)
	if err != nil {
		s.logger.Exception(ctx, "Failed to fetch unreplayed events", err)
		return fmt.Errorf("failed to fetch unreplayed events: %w", err)
	}

	if len(failed) == 0 {
		s.logger.Info(ctx, "No events to replay")
		return nil
	}

	s.logger.Info(ctx, fmt.Sprintf("Starting replay of %d failed events", len(failed)))

	successCount := 0
	failureCount := 0

	for _, evt := range failed {
		if err := s.eventRepo.MarkEventAsReplaying(ctx, evt.ID); err != nil {
			s.logger.Warn(ctx, fmt.Sprintf("Failed to mark event %s as replaying: %v", evt.ID, err))
		}

		var pubErr error
		for attempt := 1; attempt <= maxRetries; attempt++ {
			pubErr = s.publisher.Publish(evt.Topic, evt.EventData)
			if pubErr == nil {
				break
			}
			s.logger.Warn(ctx, fmt.Sprintf("Replay publish failed for event %s, attempt %d/%d: %v",
				evt.ID, attempt, maxRetries, pubErr))
			time.Sleep(time.Duration(attempt) * time.Second)
		}

		if pubErr == nil {
			if err := s.eventRepo.MarkEventAsCompleted(ctx, evt.ID); err != nil {
				s.logger.Warn(ctx, fmt.Sprintf("Failed to mark event %s as completed: %v", evt.ID, err))
			} else {
				successCount++
			}
		} else {
			s.logger.Exception(ctx, fmt.Sprintf("Replay failed for event %s after %d retries", evt.ID, maxRetries), pubErr)
			if err := s.eventRepo.MarkEventAsFailed(ctx, evt.ID); err != nil {
				s.logger.Warn(ctx, fmt.Sprintf("Failed to mark event %s as failed: %v", evt.ID, err))
			}
			failureCount++
		}
	}

	s.logger.Info(ctx, fmt.Sprintf("Replay completed: %d successful, %d failed", successCount, failureCount))

	if failureCount > 0 {
		return fmt.Errorf("replay completed with %d failures out of %d events", failureCount, len(failed))
	}
	return nil
}
