package controllers

import (
	"go-order-api/src/controllers/models"
	"go-order-api/src/infrastructure/log"
	"go-order-api/src/services/catalog"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type ProductController struct {
	catalogService catalog.CatalogService
	logger         log.Logger
}

func NewProductController(catalogService catalog.CatalogService, logger log.Logger) *ProductController {
	return &ProductController{
		catalogService: catalogService,
		logger:         logger,
	}
}

func (c *ProductController) Route(app *fiber.App, authRequired fiber.Handler) {
	api := app.Group("/api/products")
	api.Get("/", c.GetAllProducts)
	api.Get("/:id", c.GetProduct)
	api.Post("/", authRequired, c.CreateProduct)
	api.Put("/:id", authRequired, c.UpdateProduct)
}

type productRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
}

// GetAllProducts godoc
// @Summary      List catalog products
// @Tags         products
// @Produce      json
// @Success      200  {array}  models.ProductResponse
// @Failure      500  {object}  map[string]interface{}
// @Router       /api/products [get]
func (c *ProductController) GetAllProducts(ctx *fiber.Ctx) error {
	products, err := c.catalogService.GetAllProducts(ctx.Context())
	if err != nil {
		return handleServiceError(ctx, c.logger, err)
	}
	responses := make([]*models.ProductResponse, 0, len(products))
	for _, product := range products {
		responses = append(responses, models.NewProductResponse(product))
	}
	return ctx.JSON(responses)
}

// GetProduct godoc
// @Summary      Get product by ID
// @Tags         products
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  models.ProductResponse
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/products/{id} [get]
func (c *ProductController) GetProduct(ctx *fiber.Ctx) error {
	product, err := c.catalogService.GetProduct(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return handleServiceError(ctx, c.logger, err)
	}
	return ctx.JSON(models.NewProductResponse(product))
}

// CreateProduct godoc
// @Summary      Create a catalog product
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        product  body  object  true  "Product payload"
// @Success      201  {object}  models.ProductResponse
// @Failure      400  {object}  map[string]interface{}
// @Failure      409  {object}  map[string]interface{}
// @Router       /api/products [post]
func (c *ProductController) CreateProduct(ctx *fiber.Ctx) error {
	var request productRequest
	if err := ctx.BodyParser(&request); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid JSON payload"})
	}

	product, err := c.catalogService.CreateProduct(ctx.Context(), catalog.ProductInput{
		Name:        request.Name,
		Description: request.Description,
		Price:       request.Price,
	})
	if err != nil {
		return handleServiceError(ctx, c.logger, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(models.NewProductResponse(product))
}

// UpdateProduct godoc
// @Summary      Update a catalog product
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  string  true  "Product ID"
// @Param        product  body  object  true  "Product payload"
// @Success      200  {object}  models.ProductResponse
// @Failure      400  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/products/{id} [put]
func (c *ProductController) UpdateProduct(ctx *fiber.Ctx) error {
	var request productRequest
	if err := ctx.BodyParser(&request); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid JSON payload"})
	}

	product, err := c.catalogService.UpdateProduct(ctx.Context(), ctx.Params("id"), catalog.ProductInput{
		Name:        request.Name,
		Description: request.Description,
		Price:       request.Price,
	})
	if err != nil {
		return handleServiceError(ctx, c.logger, err)
	}
	return ctx.JSON(models.NewProductResponse(product))
}
