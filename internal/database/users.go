package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(UsersCollection)}
}

func (r *UserRepository) Insert(ctx context.Context, user *models.User) error {
	res, err := r.coll.InsertOne(ctx, user)
	if err != nil {
		return translate(err, "user")
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = id
	}
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return nil, translate(err, "user")
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, translate(err, "user")
	}
	return &user, nil
}

func (r *UserRepository) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error) {
	if set == nil {
		set = bson.M{}
	}
	set["updated_at"] = time.Now().UTC()

	var updated models.User
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		return nil, translate(err, "user")
	}
	return &updated, nil
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, translate(err, "user")
	}
	defer cursor.Close(ctx)

	users := make([]models.User, 0)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, translate(err, "user")
	}
	return users, nil
}

type RefreshTokenRepository struct {
	coll *mongo.Collection
}

func NewRefreshTokenRepository(db *mongo.Database) *RefreshTokenRepository {
	return &RefreshTokenRepository{coll: db.Collection(RefreshTokensCollection)}
}

func (r *RefreshTokenRepository) Insert(ctx context.Context, token *models.RefreshToken) error {
	if token.ID.IsZero() {
		token.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, token); err != nil {
		return translate(err, "refresh token")
	}
	return nil
}

func (r *RefreshTokenRepository) FindByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := r.coll.FindOne(ctx, bson.M{"token_hash": hash}).Decode(&token); err != nil {
		return nil, translate(err, "refresh token")
	}
	return &token, nil
}

// Revoke marks the token revoked if it is not already. It reports whether
// this call did the revoking, so a token can be rotated only once.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, id primitive.ObjectID, replacedBy *primitive.ObjectID) (bool, error) {
	set := bson.M{"revoked": true}
	if replacedBy != nil {
		set["replaced_by_token"] = *replacedBy
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id, "revoked": false}, bson.M{"$set": set})
	if err != nil {
		return false, translate(err, "refresh token")
	}
	return res.ModifiedCount > 0, nil
}
