package domain

import (
	"fmt"
	"strings"
	"time"

	"go-order-api/src/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the fixed order lifecycle enum.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
	StatusCancelled  Status = "Cancelled"
)

// Statuses lists every valid order status.
var Statuses = []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

func (s Status) IsValid() bool {
	for _, valid := range Statuses {
		if s == valid {
			return true
		}
	}
	return false
}

// Product is a catalog entry. Orders reference products but never own them:
// deleting an order leaves its products untouched.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
}

// ValidationRules returns the constraint table for a product.
func (p *Product) ValidationRules() []validation.Rule {
	return []validation.Rule{
		{Field: "name", Message: "product name must not be blank", Valid: func() bool {
			return strings.TrimSpace(p.Name) != ""
		}},
		{Field: "name", Message: "product name must be at least 2 characters", Valid: func() bool {
			return len(strings.TrimSpace(p.Name)) >= 2
		}},
		{Field: "price", Message: "product price must be zero or positive", Valid: func() bool {
			return !p.Price.IsNegative()
		}},
	}
}

// OrderItem is a purchased line. PriceAtPurchase is a snapshot taken when the
// order is placed, so later catalog price changes never alter old orders.
type OrderItem struct {
	ID              string
	OrderID         string // owning order, exactly one
	Product         *Product
	Quantity        int
	PriceAtPurchase decimal.Decimal
}

// Subtotal returns price-at-purchase times quantity, rounded to 2 decimals.
func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.PriceAtPurchase.Mul(decimal.NewFromInt(int64(i.Quantity))).Round(2)
}

// ValidationRules returns the constraint table for an order item.
func (i *OrderItem) ValidationRules() []validation.Rule {
	return []validation.Rule{
		{Field: "relatedOrder", Message: "item must belong to an order", Valid: func() bool {
			return i.OrderID != ""
		}},
		{Field: "product", Message: "item must reference a product", Valid: func() bool {
			return i.Product != nil
		}},
		{Field: "quantity", Message: "quantity must be a positive integer", Valid: func() bool {
			return i.Quantity > 0
		}},
		{Field: "priceAtPurchase", Message: "price at purchase must be zero or positive", Valid: func() bool {
			return !i.PriceAtPurchase.IsNegative()
		}},
	}
}

// Order is the aggregate root. It exclusively owns its items and derives
// totalAmount from them; the total is never set by callers.
type Order struct {
	ID           string
	OrderNumber  string
	CustomerName string
	OrderDate    time.Time
	Description  string
	Status       Status

	items       []*OrderItem
	totalAmount decimal.Decimal
}

// NewOrderNumber generates a unique order number for payloads that omit one.
func NewOrderNumber() string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:13])
}

// Items returns the ordered item collection. Insertion order is preserved
// for display; it has no effect on the total.
func (o *Order) Items() []*OrderItem {
	return o.items
}

// TotalAmount returns the derived total, always recomputed after the last
// item mutation.
func (o *Order) TotalAmount() decimal.Decimal {
	return o.totalAmount
}

// TotalAmountString formats the total with exactly two decimals.
func (o *Order) TotalAmountString() string {
	return o.totalAmount.StringFixed(2)
}

// AddItem attaches an item to this order and recomputes the total. Adding
// the same item twice is a no-op apart from the back-reference update.
func (o *Order) AddItem(item *OrderItem) {
	if !o.contains(item) {
		o.items = append(o.items, item)
		item.OrderID = o.ID
	}
	o.recomputeTotal()
}

// RemoveItem detaches an item. The back-reference is cleared only if it
// still points at this order.
func (o *Order) RemoveItem(item *OrderItem) {
	for idx, existing := range o.items {
		if existing == item {
			o.items = append(o.items[:idx], o.items[idx+1:]...)
			if item.OrderID == o.ID {
				item.OrderID = ""
			}
			break
		}
	}
	o.recomputeTotal()
}

// ReplaceItems detaches and discards every current item, then attaches the
// given ones. Used by updates, where the item set is replaced wholesale.
func (o *Order) ReplaceItems(items []*OrderItem) {
	for _, old := range o.items {
		if old.OrderID == o.ID {
			old.OrderID = ""
		}
	}
	o.items = nil
	for _, item := range items {
		if !o.contains(item) {
			o.items = append(o.items, item)
			item.OrderID = o.ID
		}
	}
	o.recomputeTotal()
}

func (o *Order) contains(item *OrderItem) bool {
	for _, existing := range o.items {
		if existing == item {
			return true
		}
	}
	return false
}

// recomputeTotal sums priceAtPurchase x quantity over every item. Items with
// a zero quantity contribute nothing. Runs after every mutation so callers
// can always trust TotalAmount without invoking anything themselves.
func (o *Order) recomputeTotal() {
	total := decimal.Zero
	for _, item := range o.items {
		if item.Quantity == 0 {
			continue
		}
		total = total.Add(item.PriceAtPurchase.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	o.totalAmount = total.Round(2)
}

// ValidationRules returns the constraint table for the order itself,
// excluding per-item rules.
func (o *Order) ValidationRules() []validation.Rule {
	return []validation.Rule{
		{Field: "orderNumber", Message: "order number must not be blank", Valid: func() bool {
			return strings.TrimSpace(o.OrderNumber) != ""
		}},
		{Field: "customerName", Message: "customer name must not be blank", Valid: func() bool {
			return strings.TrimSpace(o.CustomerName) != ""
		}},
		{Field: "orderDate", Message: "order date is required", Valid: func() bool {
			return !o.OrderDate.IsZero()
		}},
		{Field: "status", Message: "status must be one of Pending, Processing, Shipped, Delivered, Cancelled", Valid: func() bool {
			return o.Status.IsValid()
		}},
		{Field: "orderItems", Message: "an order must contain at least one item", Valid: func() bool {
			return len(o.items) > 0
		}},
	}
}

// Validate checks the full aggregate, items and referenced products
// included. It returns nil or a ValidationError carrying every violation.
func (o *Order) Validate() validation.Violations {
	violations := validation.Apply(o.ValidationRules())
	for idx, item := range o.items {
		prefix := fmt.Sprintf("orderItems[%d]", idx)
		violations = violations.Merge(prefix, validation.Apply(item.ValidationRules()))
		if item.Product != nil {
			violations = violations.Merge(prefix+".product", validation.Apply(item.Product.ValidationRules()))
		}
	}
	return violations
}
