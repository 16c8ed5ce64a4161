package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type collectionIndexes struct {
	collection string
	models     []mongo.IndexModel
}

func nameUnique() mongo.IndexModel {
	return mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetName("name_unique").SetUnique(true),
	}
}

// EnsureIndexes creates the indexes every collection relies on. Unique
// indexes back the uniqueness checks done by the services.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	all := []collectionIndexes{
		{collection: ProductsCollection, models: []mongo.IndexModel{
			nameUnique(),
			{
				Keys:    bson.D{{Key: "category_id", Value: 1}},
				Options: options.Index().SetName("category_id_index"),
			},
			{
				Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
				Options: options.Index().SetName("status_created_at_index"),
			},
		}},
		{collection: CategoriesCollection, models: []mongo.IndexModel{nameUnique()}},
		{collection: SizesCollection, models: []mongo.IndexModel{nameUnique()}},
		{collection: ColorsCollection, models: []mongo.IndexModel{nameUnique()}},
		{collection: UsersCollection, models: []mongo.IndexModel{{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email_unique").SetUnique(true),
		}}},
		{collection: RefreshTokensCollection, models: []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "token_hash", Value: 1}},
				Options: options.Index().SetName("token_hash_unique").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "expires_at", Value: 1}},
				Options: options.Index().SetName("expires_at_ttl").SetExpireAfterSeconds(0),
			},
		}},
		{collection: OrdersCollection, models: []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}},
				Options: options.Index().SetName("user_id_index"),
			},
			{
				Keys:    bson.D{{Key: "created_at", Value: -1}},
				Options: options.Index().SetName("created_at_index"),
			},
		}},
	}

	for _, entry := range all {
		log.Printf("[DB] [INFO] ensuring %d index(es) on %s", len(entry.models), entry.collection)
		if _, err := db.Collection(entry.collection).Indexes().CreateMany(ctx, entry.models); err != nil {
			log.Printf("[DB] [ERROR] index creation on %s failed: %v", entry.collection, err)
			return err
		}
	}
	return nil
}
