package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-order-api/src/apperrors"
	"go-order-api/src/infrastructure/log"

	"github.com/shopspring/decimal"
)

type fakeOrderRepository struct {
	orders  map[string]*Order
	filters []ListFilter
}

func newFakeOrderRepository() *fakeOrderRepository {
	return &fakeOrderRepository{orders: map[string]*Order{}}
}

// cloneOrder mimics rehydration from storage so that in-memory mutations of a
// fetched aggregate never leak into the stored copy.
func cloneOrder(order *Order) *Order {
	clone := &Order{
		ID:           order.ID,
		OrderNumber:  order.OrderNumber,
		CustomerName: order.CustomerName,
		OrderDate:    order.OrderDate,
		Description:  order.Description,
		Status:       order.Status,
	}
	items := make([]*OrderItem, 0, len(order.Items()))
	for _, item := range order.Items() {
		itemCopy := *item
		if item.Product != nil {
			productCopy := *item.Product
			itemCopy.Product = &productCopy
		}
		items = append(items, &itemCopy)
	}
	clone.ReplaceItems(items)
	return clone
}

func (r *fakeOrderRepository) GetByID(_ context.Context, id string) (*Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("order", id)
	}
	return cloneOrder(order), nil
}

func (r *fakeOrderRepository) Search(_ context.Context, filter ListFilter) ([]*Order, error) {
	r.filters = append(r.filters, filter)
	results := make([]*Order, 0, len(r.orders))
	for _, order := range r.orders {
		results = append(results, cloneOrder(order))
	}
	return results, nil
}

func (r *fakeOrderRepository) Insert(_ context.Context, order *Order) error {
	if _, exists := r.orders[order.ID]; exists {
		return apperrors.NewConflictError("order", order.ID)
	}
	r.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *fakeOrderRepository) Update(_ context.Context, order *Order) error {
	if _, exists := r.orders[order.ID]; !exists {
		return apperrors.NewNotFoundError("order", order.ID)
	}
	r.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *fakeOrderRepository) Delete(_ context.Context, id string) error {
	if _, exists := r.orders[id]; !exists {
		return apperrors.NewNotFoundError("order", id)
	}
	delete(r.orders, id)
	return nil
}

type fakeProductRepository struct {
	byName map[string]*Product
	// conflictNames simulates losing the unique-index race: Insert refuses
	// the name and registers the winner other writers would have committed.
	conflictNames map[string]*Product
	inserted      int
}

func newFakeProductRepository() *fakeProductRepository {
	return &fakeProductRepository{
		byName:        map[string]*Product{},
		conflictNames: map[string]*Product{},
	}
}

func (r *fakeProductRepository) FindByName(_ context.Context, name string) (*Product, error) {
	product, ok := r.byName[name]
	if !ok {
		return nil, nil
	}
	copied := *product
	return &copied, nil
}

func (r *fakeProductRepository) GetByID(_ context.Context, id string) (*Product, error) {
	for _, product := range r.byName {
		if product.ID == id {
			copied := *product
			return &copied, nil
		}
	}
	return nil, apperrors.NewNotFoundError("product", id)
}

func (r *fakeProductRepository) Insert(_ context.Context, product *Product) error {
	if winner, ok := r.conflictNames[product.Name]; ok {
		r.byName[product.Name] = winner
		return apperrors.NewConflictError("product", product.Name)
	}
	if _, exists := r.byName[product.Name]; exists {
		return apperrors.NewConflictError("product", product.Name)
	}
	copied := *product
	r.byName[product.Name] = &copied
	r.inserted++
	return nil
}

type fakeEventRepository struct {
	stored   []FailedEvent
	statuses map[string]string
}

func newFakeEventRepository() *fakeEventRepository {
	return &fakeEventRepository{statuses: map[string]string{}}
}

func (r *fakeEventRepository) StoreFailedEvent(_ context.Context, orderID, topic string, eventData []byte) error {
	id := topic + "/" + orderID
	r.stored = append(r.stored, FailedEvent{
		ID:        id,
		OrderID:   orderID,
		Topic:     topic,
		EventData: eventData,
		Status:    "failed",
		CreatedAt: time.Now().UTC(),
	})
	r.statuses[id] = "failed"
	return nil
}

func (r *fakeEventRepository) GetUnreplayedEvents(_ context.Context, limit int) ([]FailedEvent, error) {
	events := make([]FailedEvent, 0, len(r.stored))
	for _, evt := range r.stored {
		if status := r.statuses[evt.ID]; status == "failed" || status == "pending" {
			events = append(events, evt)
		}
		if len(events) == limit {
			break
		}
	}
	return events, nil
}

func (r *fakeEventRepository) MarkEventAsReplaying(_ context.Context, eventID string) error {
	r.statuses[eventID] = "replaying"
	return nil
}

func (r *fakeEventRepository) MarkEventAsCompleted(_ context.Context, eventID string) error {
	r.statuses[eventID] = "completed"
	return nil
}

func (r *fakeEventRepository) MarkEventAsFailed(_ context.Context, eventID string) error {
	r.statuses[eventID] = "failed"
	return nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakePublisher struct {
	published map[string][][]byte
	failures  int
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{published: map[string][][]byte{}}
}

func (p *fakePublisher) Publish(topic string, body []byte) error {
	if p.failures > 0 {
		p.failures--
		return errors.New("broker unavailable")
	}
	p.published[topic] = append(p.published[topic], body)
	return nil
}

type serviceFixture struct {
	service   OrderService
	orders    *fakeOrderRepository
	products  *fakeProductRepository
	eventRepo *fakeEventRepository
	publisher *fakePublisher
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		orders:    newFakeOrderRepository(),
		products:  newFakeProductRepository(),
		eventRepo: newFakeEventRepository(),
		publisher: newFakePublisher(),
	}
	f.service = NewOrderService(log.NewLogger(), f.orders, f.products, f.eventRepo, fakeTxRunner{}, f.publisher)
	return f
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func decPtr(d decimal.Decimal) *decimal.Decimal { return &d }

func widgetPayload(t *testing.T, quantity int) OrderItemPayload {
	t.Helper()
	return OrderItemPayload{
		Quantity: intPtr(quantity),
		Product:  &ProductPayload{Name: "Widget", Price: decPtr(dec(t, "9.99"))},
	}
}

func TestCreateOrder(t *testing.T) {
	t.Run("happy path derives the total and publishes", func(t *testing.T) {
		f := newServiceFixture()

		order, err := f.service.Create(context.Background(), OrderPayload{
			CustomerName: strPtr("Bob"),
			Items:        []OrderItemPayload{widgetPayload(t, 2)},
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		if got := order.TotalAmountString(); got != "19.98" {
			t.Errorf("total = %s, want 19.98", got)
		}
		if order.Status != StatusPending {
			t.Errorf("status = %s, want Pending", order.Status)
		}
		if order.OrderNumber == "" {
			t.Error("order number was not generated")
		}
		if _, persisted := f.orders.orders[order.ID]; !persisted {
			t.Error("order was not persisted")
		}
		if f.products.inserted != 1 {
			t.Errorf("product inserts = %d, want 1", f.products.inserted)
		}
		if len(f.publisher.published["order.created"]) != 1 {
			t.Errorf("order.created events = %d, want 1", len(f.publisher.published["order.created"]))
		}
	})

	t.Run("zero items is rejected before any write", func(t *testing.T) {
		f := newServiceFixture()

		_, err := f.service.Create(context.Background(), OrderPayload{CustomerName: strPtr("Bob")})
		if !apperrors.IsValidationError(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if len(f.orders.orders) != 0 || f.products.inserted != 0 {
			t.Error("rejected order left writes behind")
		}
		if len(f.publisher.published) != 0 {
			t.Error("rejected order published an event")
		}
	})

	t.Run("existing product is reused by name", func(t *testing.T) {
		f := newServiceFixture()
		f.products.byName["Widget"] = &Product{ID: "p-existing", Name: "Widget", Price: dec(t, "7.50")}

		order, err := f.service.Create(context.Background(), OrderPayload{
			CustomerName: strPtr("Bob"),
			Items:        []OrderItemPayload{widgetPayload(t, 1)},
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		if f.products.inserted != 0 {
			t.Errorf("product inserts = %d, want 0", f.products.inserted)
		}
		item := order.Items()[0]
		if item.Product.ID != "p-existing" {
			t.Errorf("resolved product = %s, want p-existing", item.Product.ID)
		}
		// Snapshot price comes from the request, not the stored product.
		if got := item.PriceAtPurchase.StringFixed(2); got != "9.99" {
			t.Errorf("priceAtPurchase = %s, want 9.99", got)
		}
	})

	t.Run("losing the name race falls back to the winner", func(t *testing.T) {
		f := newServiceFixture()
		f.products.conflictNames["Widget"] = &Product{ID: "p-winner", Name: "Widget", Price: dec(t, "9.99")}

		order, err := f.service.Create(context.Background(), OrderPayload{
			CustomerName: strPtr("Bob"),
			Items:        []OrderItemPayload{widgetPayload(t, 1)},
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if got := order.Items()[0].Product.ID; got != "p-winner" {
			t.Errorf("resolved product = %s, want p-winner", got)
		}
	})

	t.Run("item without product descriptor is rejected", func(t *testing.T) {
		f := newServiceFixture()

		_, err := f.service.Create(context.Background(), OrderPayload{
			CustomerName: strPtr("Bob"),
			Items:        []OrderItemPayload{{Quantity: intPtr(1)}},
		})
		if !apperrors.IsValidationError(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("quantity defaults to one", func(t *testing.T) {
		f := newServiceFixture()

		order, err := f.service.Create(context.Background(), OrderPayload{
			CustomerName: strPtr("Bob"),
			Items: []OrderItemPayload{{
				Product: &ProductPayload{Name: "Widget", Price: decPtr(dec(t, "9.99"))},
			}},
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if got := order.Items()[0].Quantity; got != 1 {
			t.Errorf("quantity = %d, want 1", got)
		}
	})
}

func TestUpdateOrder(t *testing.T) {
	seed := func(t *testing.T, f *serviceFixture) *Order {
		t.Helper()
		order, err := f.service.Create(context.Background(), OrderPayload{
			CustomerName: strPtr("Bob"),
			Items:        []OrderItemPayload{widgetPayload(t, 2)},
		})
		if err != nil {
			t.Fatalf("seed order failed: %v", err)
		}
		return order
	}

	t.Run("partial update keeps untouched fields and items", func(t *testing.T) {
		f := newServiceFixture()
		created := seed(t, f)

		updated, err := f.service.Update(context.Background(), created.ID, OrderPayload{
			CustomerName: strPtr("Alice"),
		})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		if updated.CustomerName != "Alice" {
			t.Errorf("customer = %s, want Alice", updated.CustomerName)
		}
		if updated.OrderNumber != created.OrderNumber {
			t.Errorf("order number changed: %s -> %s", created.OrderNumber, updated.OrderNumber)
		}
		if len(updated.Items()) != 1 {
			t.Errorf("items = %d, want 1", len(updated.Items()))
		}
		if got := updated.TotalAmountString(); got != "19.98" {
			t.Errorf("total = %s, want 19.98", got)
		}
		if len(f.publisher.published["order.updated"]) != 1 {
			t.Error("order.updated event missing")
		}
	})

	t.Run("present item list replaces wholesale", func(t *testing.T) {
		f := newServiceFixture()
		created := seed(t, f)

		updated, err := f.service.Update(context.Background(), created.ID, OrderPayload{
			HasItems: true,
			Items: []OrderItemPayload{{
				Quantity: intPtr(3),
				Product:  &ProductPayload{Name: "Gadget", Price: decPtr(dec(t, "4.00"))},
			}},
		})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		if len(updated.Items()) != 1 {
			t.Fatalf("items = %d, want 1", len(updated.Items()))
		}
		if got := updated.Items()[0].Product.Name; got != "Gadget" {
			t.Errorf("product = %s, want Gadget", got)
		}
		if got := updated.TotalAmountString(); got != "12.00" {
			t.Errorf("total = %s, want 12.00", got)
		}
	})

	t.Run("replacing items with an empty list fails and rolls back", func(t *testing.T) {
		f := newServiceFixture()
		created := seed(t, f)

		_, err := f.service.Update(context.Background(), created.ID, OrderPayload{
			HasItems: true,
			Items:    []OrderItemPayload{},
		})
		if !apperrors.IsValidationError(err) {
			t.Fatalf("expected validation error, got %v", err)
		}

		stored := f.orders.orders[created.ID]
		if len(stored.Items()) != 1 {
			t.Errorf("stored items = %d, previous set should survive", len(stored.Items()))
		}
		if got := stored.TotalAmountString(); got != "19.98" {
			t.Errorf("stored total = %s, want 19.98", got)
		}
	})

	t.Run("unknown order id", func(t *testing.T) {
		f := newServiceFixture()

		_, err := f.service.Update(context.Background(), "missing", OrderPayload{CustomerName: strPtr("Alice")})
		if !apperrors.IsNotFoundError(err) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("invalid status is rejected", func(t *testing.T) {
		f := newServiceFixture()
		created := seed(t, f)

		_, err := f.service.Update(context.Background(), created.ID, OrderPayload{Status: strPtr("Teleported")})
		if !apperrors.IsValidationError(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestListOrders(t *testing.T) {
	t.Run("date filter covers the whole day inclusive", func(t *testing.T) {
		f := newServiceFixture()

		_, err := f.service.List(context.Background(), ListQuery{OrderDate: "2024-03-10"})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}

		filter := f.orders.filters[0]
		if filter.DayStart == nil || filter.DayEnd == nil {
			t.Fatal("expected day bounds")
		}
		wantStart := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
		wantEnd := time.Date(2024, 3, 10, 23, 59, 59, 0, time.UTC)
		if !filter.DayStart.Equal(wantStart) {
			t.Errorf("DayStart = %v, want %v", filter.DayStart, wantStart)
		}
		if !filter.DayEnd.Equal(wantEnd) {
			t.Errorf("DayEnd = %v, want %v", filter.DayEnd, wantEnd)
		}
	})

	t.Run("unparsable date is ignored, not an error", func(t *testing.T) {
		f := newServiceFixture()

		_, err := f.service.List(context.Background(), ListQuery{OrderDate: "10/03/2024", Search: "acme"})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}

		filter := f.orders.filters[0]
		if filter.DayStart != nil || filter.DayEnd != nil {
			t.Error("unparsable date should not produce bounds")
		}
		if filter.Search != "acme" {
			t.Errorf("search = %q, want acme", filter.Search)
		}
	})
}

func TestDeleteOrder(t *testing.T) {
	t.Run("delete publishes a deletion event", func(t *testing.T) {
		f := newServiceFixture()
		order, err := f.service.Create(context.Background(), OrderPayload{
			CustomerName: strPtr("Bob"),
			Items:        []OrderItemPayload{widgetPayload(t, 1)},
		})
		if err != nil {
			t.Fatalf("seed failed: %v", err)
		}

		if err := f.service.Delete(context.Background(), order.ID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, exists := f.orders.orders[order.ID]; exists {
			t.Error("order still stored after delete")
		}
		if len(f.publisher.published["order.deleted"]) != 1 {
			t.Error("order.deleted event missing")
		}
	})

	t.Run("unknown order id", func(t *testing.T) {
		f := newServiceFixture()
		if err := f.service.Delete(context.Background(), "missing"); !apperrors.IsNotFoundError(err) {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}

func TestFailedEventReplay(t *testing.T) {
	f := newServiceFixture()
	f.publisher.failures = 2 // both create-publish attempts fail

	order, err := f.service.Create(context.Background(), OrderPayload{
		CustomerName: strPtr("Bob"),
		Items:        []OrderItemPayload{widgetPayload(t, 1)},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if len(f.eventRepo.stored) != 1 {
		t.Fatalf("stored failed events = %d, want 1", len(f.eventRepo.stored))
	}
	if f.eventRepo.stored[0].OrderID != order.ID {
		t.Errorf("stored event order = %s, want %s", f.eventRepo.stored[0].OrderID, order.ID)
	}

	if err := f.service.ReplayFailedEvents(context.Background()); err != nil {
		t.Fatalf("ReplayFailedEvents failed: %v", err)
	}

	if len(f.publisher.published["order.created"]) != 1 {
		t.Errorf("replayed order.created events = %d, want 1", len(f.publisher.published["order.created"]))
	}
	if status := f.eventRepo.statuses[f.eventRepo.stored[0].ID]; status != "completed" {
		t.Errorf("event status = %s, want completed", status)
	}

	// A second replay run finds nothing left.
	if err := f.service.ReplayFailedEvents(context.Background()); err != nil {
		t.Fatalf("second replay failed: %v", err)
	}
	if len(f.publisher.published["order.created"]) != 1 {
		t.Error("completed event was replayed again")
	}
}
