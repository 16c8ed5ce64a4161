package database

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/apperror"
	"storefront/internal/models"
)

type OrderRepository struct {
	coll *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{coll: db.Collection(OrdersCollection)}
}

func (r *OrderRepository) Insert(ctx context.Context, order *models.Order) error {
	res, err := r.coll.InsertOne(ctx, order)
	if err != nil {
		return translate(err, "order")
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		order.ID = id
	}
	return nil
}

func (r *OrderRepository) SetEmailSent(ctx context.Context, id primitive.ObjectID, sent bool) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"email_sent": sent}})
	if err != nil {
		return translate(err, "order")
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("order not found")
	}
	return nil
}

func (r *OrderRepository) List(ctx context.Context) ([]models.Order, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, translate(err, "order")
	}
	defer cursor.Close(ctx)

	orders := make([]models.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, translate(err, "order")
	}
	return orders, nil
}

func (r *OrderRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err, "order")
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("order not found")
	}
	return nil
}
