package catalog

import (
	"context"

	"go-order-api/src/apperrors"
	"go-order-api/src/infrastructure/log"
	"go-order-api/src/services/order/domain"
	"go-order-api/src/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductInput carries the explicit product create/update payload.
type ProductInput struct {
	Name        string
	Description string
	Price       *decimal.Decimal
}

// CatalogService exposes the explicit product catalog operations. Products
// are also created implicitly during order creation; both paths share the
// same unique-name constraint.
type CatalogService interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetAllProducts(ctx context.Context) ([]*domain.Product, error)
	CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id string, input ProductInput) (*domain.Product, error)
}

type catalogService struct {
	logger   log.Logger
	products ProductRepository
}

func NewCatalogService(logger log.Logger, products ProductRepository) CatalogService {
	return &catalogService{
		logger:   logger,
		products: products,
	}
}

func (s *catalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.products.GetByID(ctx, id)
}

func (s *catalogService) GetAllProducts(ctx context.Context) ([]*domain.Product, error) {
	return s.products.GetAll(ctx)
}

func (s *catalogService) CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error) {
	if input.Price == nil {
		return nil, apperrors.NewValidationError("product price is required")
	}

	product := &domain.Product{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Description: input.Description,
		Price:       *input.Price,
	}
	if violations := validation.Apply(product.ValidationRules()); violations != nil {
		return nil, apperrors.NewValidationErrorWithViolations("product validation failed", violations)
	}

	if err := s.products.Insert(ctx, product); err != nil {
		return nil, err
	}

	s.logger.InfoWithExtra(ctx, "Product created", map[string]any{"ProductId": product.ID, "Name": product.Name})
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, id string, input ProductInput) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != "" {
		product.Name = input.Name
	}
	if input.Description != "" {
		product.Description = input.Description
	}
	if input.Price != nil {
		product.Price = *input.Price
	}

	if violations := validation.Apply(product.ValidationRules()); violations != nil {
		return nil, apperrors.NewValidationErrorWithViolations("product validation failed", violations)
	}

	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}

	s.logger.InfoWithExtra(ctx, "Product updated", map[string]any{"ProductId": product.ID})
	return product, nil
}
