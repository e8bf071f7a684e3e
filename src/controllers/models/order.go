package models

import (
	"time"

	"go-order-api/src/apperrors"
	"go-order-api/src/services/order/domain"

	"github.com/shopspring/decimal"
)

// ProductRequest is the embedded product descriptor of an item payload.
type ProductRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
}

type OrderItemRequest struct {
	Quantity        *int             `json:"quantity"`
	PriceAtPurchase *decimal.Decimal `json:"priceAtPurchase"`
	Product         *ProductRequest  `json:"product"`
}

// OrderRequest is the create/update payload. Pointer fields distinguish
// absent from zero so updates can be partial.
type OrderRequest struct {
	OrderNumber  *string            `json:"orderNumber"`
	CustomerName *string            `json:"customerName"`
	OrderDate    *string            `json:"orderDate"`
	Description  *string            `json:"description"`
	Status       *string            `json:"status"`
	OrderItems   []OrderItemRequest `json:"orderItems"`
}

// ToPayload converts the wire request into the service payload, parsing the
// order date. RFC 3339 and plain dates are both accepted.
func (r *OrderRequest) ToPayload() (domain.OrderPayload, error) {
	payload := domain.OrderPayload{
		OrderNumber:  r.OrderNumber,
		CustomerName: r.CustomerName,
		Description:  r.Description,
		Status:       r.Status,
		HasItems:     r.OrderItems != nil,
	}

	if r.OrderDate != nil {
		parsed, err := parseOrderDate(*r.OrderDate)
		if err != nil {
			return domain.OrderPayload{}, apperrors.NewValidationError("invalid orderDate: " + *r.OrderDate)
		}
		payload.OrderDate = &parsed
	}

	for _, item := range r.OrderItems {
		itemPayload := domain.OrderItemPayload{
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase,
		}
		if item.Product != nil {
			itemPayload.Product = &domain.ProductPayload{
				Name:        item.Product.Name,
				Description: item.Product.Description,
				Price:       item.Product.Price,
			}
		}
		payload.Items = append(payload.Items, itemPayload)
	}

	return payload, nil
}

func parseOrderDate(raw string) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed, nil
	}
	return time.Parse("2006-01-02", raw)
}

// ProductResponse is the wire shape of a catalog product. Price is a string
// with exactly two decimals.
type ProductResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
}

type OrderItemResponse struct {
	ID              string           `json:"id"`
	Quantity        int              `json:"quantity"`
	PriceAtPurchase string           `json:"priceAtPurchase"`
	Subtotal        string           `json:"subtotal"`
	Product         *ProductResponse `json:"product"`
}

type OrderResponse struct {
	ID           string              `json:"id"`
	OrderNumber  string              `json:"orderNumber"`
	CustomerName string              `json:"customerName"`
	OrderDate    string              `json:"orderDate"`
	Description  string              `json:"description"`
	Status       string              `json:"status"`
	TotalAmount  string              `json:"totalAmount"`
	OrderItems   []OrderItemResponse `json:"orderItems"`
}

// NewProductResponse normalizes a product for the wire.
func NewProductResponse(product *domain.Product) *ProductResponse {
	if product == nil {
		return nil
	}
	return &ProductResponse{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price.StringFixed(2),
	}
}

// NewOrderResponse normalizes an order for the wire. The order date uses
// ISO-8601, money fields carry two decimals.
func NewOrderResponse(order *domain.Order) OrderResponse {
	response := OrderResponse{
		ID:           order.ID,
		OrderNumber:  order.OrderNumber,
		CustomerName: order.CustomerName,
		OrderDate:    order.OrderDate.Format(time.RFC3339),
		Description:  order.Description,
		Status:       string(order.Status),
		TotalAmount:  order.TotalAmountString(),
		OrderItems:   []OrderItemResponse{},
	}
	for _, item := range order.Items() {
		response.OrderItems = append(response.OrderItems, OrderItemResponse{
			ID:              item.ID,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase.StringFixed(2),
			Subtotal:        item.Subtotal().StringFixed(2),
			Product:         NewProductResponse(item.Product),
		})
	}
	return response
}

// NewOrderResponses normalizes a list result.
func NewOrderResponses(orders []*domain.Order) []OrderResponse {
	responses := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		responses = append(responses, NewOrderResponse(order))
	}
	return responses
}
