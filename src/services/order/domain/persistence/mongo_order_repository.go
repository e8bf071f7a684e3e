package persistence

import (
	"context"
	"regexp"
	"time"

	"go-order-api/src/apperrors"
	"go-order-api/src/config"
	"go-order-api/src/services/order/domain"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OrderRepository stores orders with their items embedded, so replacing the
// item set and the cascade delete are single-document writes. Products live
// in their own collection and are joined on read.
type OrderRepository struct {
	collection *mongo.Collection
	products   *mongo.Collection
}

// OrderDocument is the storage model for MongoDB. Money fields are kept as
// strings to preserve decimal precision.
type OrderDocument struct {
	ID           string              `bson:"id"`
	OrderNumber  string              `bson:"order_number"`
	CustomerName string              `bson:"customer_name"`
	OrderDate    time.Time           `bson:"order_date"`
	Description  string              `bson:"description,omitempty"`
	Status       string              `bson:"status"`
	TotalAmount  string              `bson:"total_amount"`
	Items        []OrderItemDocument `bson:"order_items"`
}

type OrderItemDocument struct {
	ID              string `bson:"id"`
	Quantity        int    `bson:"quantity"`
	PriceAtPurchase string `bson:"price_at_purchase"`
	ProductID       string `bson:"product_id"`
}

type productDocument struct {
	ID          string `bson:"id"`
	Name        string `bson:"name"`
	Description string `bson:"description,omitempty"`
	Price       string `bson:"price"`
}

func NewOrderRepository(cfg *config.Config, client *mongo.Client) *OrderRepository {
	db := client.Database(cfg.MongoDBDatabaseName)
	return &OrderRepository{
		collection: db.Collection("orders"),
		products:   db.Collection("products"),
	}
}

var _ domain.OrderRepository = (*OrderRepository)(nil)

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	_, err := r.collection.InsertOne(ctx, toDocument(order))
	if mongo.IsDuplicateKeyError(err) {
		return apperrors.NewConflictError("order", order.OrderNumber)
	}
	return err
}

func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	doc := toDocument(order)
	res, err := r.collection.ReplaceOne(ctx, bson.M{"id": order.ID}, doc)
	if mongo.IsDuplicateKeyError(err) {
		return apperrors.NewConflictError("order", order.OrderNumber)
	}
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.NewNotFoundError("order", order.ID)
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var doc OrderDocument
	err := r.collection.FindOne(ctx, bson.M{"id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, apperrors.NewNotFoundError("order", id)
	}
	if err != nil {
		return nil, err
	}
	return r.toDomain(ctx, &doc)
}

func (r *OrderRepository) Search(ctx context.Context, filter domain.ListFilter) ([]*domain.Order, error) {
	query := bson.M{}
	if filter.DayStart != nil && filter.DayEnd != nil {
		query["order_date"] = bson.M{"$gte": *filter.DayStart, "$lte": *filter.DayEnd}
	}
	if filter.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
		query["$or"] = []bson.M{
			{"order_number": pattern},
			{"customer_name": pattern},
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "order_date", Value: -1}})
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []*domain.Order
	for cursor.Next(ctx) {
		var doc OrderDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		order, err := r.toDomain(ctx, &doc)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, cursor.Err()
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperrors.NewNotFoundError("order", id)
	}
	return nil
}

func toDocument(order *domain.Order) *OrderDocument {
	doc := &OrderDocument{
		ID:           order.ID,
		OrderNumber:  order.OrderNumber,
		CustomerName: order.CustomerName,
		OrderDate:    order.OrderDate,
		Description:  order.Description,
		Status:       string(order.Status),
		TotalAmount:  order.TotalAmountString(),
	}
	for _, item := range order.Items() {
		doc.Items = append(doc.Items, OrderItemDocument{
			ID:              item.ID,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase.StringFixed(2),
			ProductID:       item.Product.ID,
		})
	}
	return doc
}

// toDomain rebuilds the aggregate, joining the referenced products in one
// query. Attaching the items recomputes the total, so a stale stored total
// never leaks out.
func (r *OrderRepository) toDomain(ctx context.Context, doc *OrderDocument) (*domain.Order, error) {
	order := &domain.Order{
		ID:           doc.ID,
		OrderNumber:  doc.OrderNumber,
		CustomerName: doc.CustomerName,
		OrderDate:    doc.OrderDate,
		Description:  doc.Description,
		Status:       domain.Status(doc.Status),
	}

	productIDs := make([]string, 0, len(doc.Items))
	for _, item := range doc.Items {
		productIDs = append(productIDs, item.ProductID)
	}

	productsByID := make(map[string]*domain.Product, len(productIDs))
	if len(productIDs) > 0 {
		cursor, err := r.products.Find(ctx, bson.M{"id": bson.M{"$in": productIDs}})
		if err != nil {
			return nil, err
		}
		defer cursor.Close(ctx)
		for cursor.Next(ctx) {
			var pdoc productDocument
			if err := cursor.Decode(&pdoc); err != nil {
				return nil, err
			}
			price, err := decimal.NewFromString(pdoc.Price)
			if err != nil {
				return nil, err
			}
			productsByID[pdoc.ID] = &domain.Product{
				ID:          pdoc.ID,
				Name:        pdoc.Name,
				Description: pdoc.Description,
				Price:       price,
			}
		}
		if err := cursor.Err(); err != nil {
			return nil, err
		}
	}

	items := make([]*domain.OrderItem, 0, len(doc.Items))
	for _, itemDoc := range doc.Items {
		price, err := decimal.NewFromString(itemDoc.PriceAtPurchase)
		if err != nil {
			return nil, err
		}
		items = append(items, &domain.OrderItem{
			ID:              itemDoc.ID,
			Quantity:        itemDoc.Quantity,
			PriceAtPurchase: price,
			Product:         productsByID[itemDoc.ProductID],
		})
	}
	order.ReplaceItems(items)

	return order, nil
}

// MongoTxRunner runs a function inside one Mongo session transaction.
type MongoTxRunner struct {
	client *mongo.Client
}

func NewMongoTxRunner(client *mongo.Client) *MongoTxRunner {
	return &MongoTxRunner{client: client}
}

var _ domain.TxRunner = (*MongoTxRunner)(nil)

func (r *MongoTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
