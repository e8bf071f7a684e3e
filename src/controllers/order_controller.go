package controllers

import (
	"go-order-api/src/controllers/models"
	"go-order-api/src/infrastructure/log"
	"go-order-api/src/services/order/domain"

	"github.com/gofiber/fiber/v2"
)

type OrderController struct {
	orderService domain.OrderService
	logger       log.Logger
}

func NewOrderController(orderService domain.OrderService, logger log.Logger) *OrderController {
	return &OrderController{
		orderService: orderService,
		logger:       logger,
	}
}

func (c *OrderController) Route(app *fiber.App, authRequired fiber.Handler) {
	api := app.Group("/api/orders")
	api.Post("/replay-failed-events", authRequired, c.ReplayFailedEvents)
	api.Get("/", c.ListOrders)
	api.Get("/:id", c.GetOrder)
	api.Post("/", c.CreateOrder)
	api.Put("/:id", c.UpdateOrder)
	api.Delete("/:id", c.DeleteOrder)
}

// ListOrders godoc
// @Summary      List orders
// @Description  Lists orders, newest first, with optional day and search filters
// @Tags         orders
// @Produce      json
// @Param        orderDate  query  string  false  "Exact day filter (YYYY-MM-DD)"
// @Param        q          query  string  false  "Substring match on order number or customer name"
// @Success      200  {array}  models.OrderResponse
// @Failure      500  {object}  map[string]interface{}
// @Router       /api/orders [get]
func (c *OrderController) ListOrders(ctx *fiber.Ctx) error {
	query := domain.ListQuery{
		OrderDate: ctx.Query("orderDate"),
		Search:    ctx.Query("q"),
	}
	orders, err := c.orderService.List(ctx.Context(), query)
	if err != nil {
		return handleServiceError(ctx, c.logger, err)
	}
	return ctx.JSON(models.NewOrderResponses(orders))
}

// GetOrder godoc
// @Summary      Get order by ID
// @Tags         orders
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  models.OrderResponse
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/orders/{id} [get]
func (c *OrderController) GetOrder(ctx *fiber.Ctx) error {
	order, err := c.orderService.Get(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return handleServiceError(ctx, c.logger, err)
	}
	return ctx.JSON(models.NewOrderResponse(order))
}

// CreateOrder godoc
// @Summary      Create a new order
// @Description  Creates an order, resolving or creating referenced products by name
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        order  body  models.OrderRequest  true  "Order payload"
// @Success      201  {object}  models.OrderResponse
// @Failure      400  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]interface{}
// @Router       /api/orders [post]
func (c *OrderController) CreateOrder(ctx *fiber.Ctx) error {
	var request models.OrderRequest
	if err := ctx.BodyParser(&request); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid JSON payload"})
	}

	payload, err := request.ToPayload()
	if err != nil {
		return handleServiceError(ctx, c.logger, err)
	}

	order, err := c.orderService.Create(ctx.Context(), payload)
	if err != nil {
		return handleServiceError(ctx, c.logger, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(models.NewOrderResponse(order))
}

// UpdateOrder godoc
// @Summary      Update an order
// @Description  Partial update; a present orderItems list replaces the previous one wholesale
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id     path  string               true  "Order ID"
// @Param        order  body  models.OrderRequest  true  "Order payload"
// @Success      200  {object}  models.OrderResponse
// @Failure      400  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/orders/{id} [put]
func (c *OrderController) UpdateOrder(ctx *fiber.Ctx) error {
	var request models.OrderRequest
	if err := ctx.BodyParser(&request); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid JSON payload"})
	}

	payload, err := request.ToPayload()
	if err != nil {
		return handleServiceError(ctx, c.logger, err)
	}

	order, err := c.orderService.Update(ctx.Context(), ctx.Params("id"), payload)
	if err != nil {
		return handleServiceError(ctx, c.logger, err)
	}
	return ctx.JSON(models.NewOrderResponse(order))
}

// DeleteOrder godoc
// @Summary      Delete an order
// @Description  Removes the order and its items; referenced products stay
// @Tags         orders
// @Produce      json
// @Param        id   path  string  true  "Order ID"
// @Success      204
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/orders/{id} [delete]
func (c *OrderController) DeleteOrder(ctx *fiber.Ctx) error {
	if err := c.orderService.Delete(ctx.Context(), ctx.Params("id")); err != nil {
		return handleServiceError(ctx, c.logger, err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

// ReplayFailedEvents godoc
// @Summary      Replay failed order events
// @Description  Republishes order events whose original publish failed
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]interface{}
// @Router       /api/orders/replay-failed-events [post]
func (c *OrderController) ReplayFailedEvents(ctx *fiber.Ctx) error {
	if err := c.orderService.ReplayFailedEvents(ctx.Context()); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "replay incomplete"})
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"status": "Replay complete"})
}
