package catalog

import (
	"context"

	"go-order-api/src/apperrors"
	"go-order-api/src/services/order/domain"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type productDocument struct {
	ID          string `bson:"id"`
	Name        string `bson:"name"`
	Description string `bson:"description,omitempty"`
	Price       string `bson:"price"`
}

// ProductRepository is the Mongo-backed catalog store. The products
// collection carries a unique index on name; Insert maps the duplicate-key
// error to a ConflictError so callers can retry with a lookup.
type ProductRepository interface {
	domain.ProductRepository
	GetAll(ctx context.Context) ([]*domain.Product, error)
	Update(ctx context.Context, product *domain.Product) error
}

type productRepository struct {
	collection *mongo.Collection
}

func NewProductRepository(db *mongo.Database) ProductRepository {
	return &productRepository{
		collection: db.Collection("products"),
	}
}

func (r *productRepository) FindByName(ctx context.Context, name string) (*domain.Product, error) {
	var doc productDocument
	err := r.collection.FindOne(ctx, bson.M{"name": name}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil // Product not found
	}
	if err != nil {
		return nil, err
	}
	return toProduct(&doc)
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	var doc productDocument
	err := r.collection.FindOne(ctx, bson.M{"id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, apperrors.NewNotFoundError("product", id)
	}
	if err != nil {
		return nil, err
	}
	return toProduct(&doc)
}

func (r *productRepository) GetAll(ctx context.Context) ([]*domain.Product, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var products []*domain.Product
	for cursor.Next(ctx) {
		var doc productDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		product, err := toProduct(&doc)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, cursor.Err()
}

func (r *productRepository) Insert(ctx context.Context, product *domain.Product) error {
	_, err := r.collection.InsertOne(ctx, toProductDocument(product))
	if mongo.IsDuplicateKeyError(err) {
		return apperrors.NewConflictError("product", product.Name)
	}
	return err
}

func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	res, err := r.collection.ReplaceOne(ctx, bson.M{"id": product.ID}, toProductDocument(product))
	if mongo.IsDuplicateKeyError(err) {
		return apperrors.NewConflictError("product", product.Name)
	}
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.NewNotFoundError("product", product.ID)
	}
	return nil
}

func toProductDocument(product *domain.Product) *productDocument {
	return &productDocument{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price.StringFixed(2),
	}
}

func toProduct(doc *productDocument) (*domain.Product, error) {
	price, err := decimal.NewFromString(doc.Price)
	if err != nil {
		return nil, err
	}
	return &domain.Product{
		ID:          doc.ID,
		Name:        doc.Name,
		Description: doc.Description,
		Price:       price,
	}, nil
}
