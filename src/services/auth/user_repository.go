package auth

import (
	"context"

	"go-order-api/src/apperrors"
	"go-order-api/src/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type userDocument struct {
	ID           string `bson:"id"`
	Email        string `bson:"email"`
	PasswordHash string `bson:"password_hash"`
	TOTPSecret   string `bson:"totp_secret,omitempty"`
}

type userRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(cfg *config.Config, client *mongo.Client) UserRepository {
	return &userRepository{
		collection: client.Database(cfg.MongoDBDatabaseName).Collection("users"),
	}
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var doc userDocument
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil // User not found
	}
	if err != nil {
		return nil, err
	}
	return &User{
		ID:           doc.ID,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		TOTPSecret:   doc.TOTPSecret,
	}, nil
}

func (r *userRepository) Insert(ctx context.Context, user *User) error {
	doc := userDocument{
		ID:           user.ID,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		TOTPSecret:   user.TOTPSecret,
	}
	_, err := r.collection.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return apperrors.NewConflictError("user", user.Email)
	}
	return err
}

func (r *userRepository) UpdateTOTPSecret(ctx context.Context, userID, secret string) error {
	update := bson.M{"$set": bson.M{"totp_secret": secret}}
	if secret == "" {
		update = bson.M{"$unset": bson.M{"totp_secret": ""}}
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"id": userID}, update)
	return err
}
