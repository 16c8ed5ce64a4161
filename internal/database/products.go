package database

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

const (
	ProductsCollection      = "products"
	CategoriesCollection    = "categories"
	SizesCollection         = "sizes"
	ColorsCollection        = "colors"
	UsersCollection         = "users"
	RefreshTokensCollection = "refresh_tokens"
	OrdersCollection        = "orders"
)

type ProductRepository struct {
	coll *mongo.Collection
}

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{coll: db.Collection(ProductsCollection)}
}

func (r *ProductRepository) Insert(ctx context.Context, p *models.Product) error {
	res, err := r.coll.InsertOne(ctx, p)
	if err != nil {
		return translate(err, "product")
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = id
	}
	return nil
}

// InsertMany writes products in order and assigns their ids. The batch is
// expected to be pre-validated; a duplicate key aborts the remainder.
func (r *ProductRepository) InsertMany(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(products))
	for i := range products {
		if products[i].ID.IsZero() {
			products[i].ID = primitive.NewObjectID()
		}
		docs = append(docs, products[i])
	}
	if _, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return translate(err, "product")
	}
	return nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var product models.Product
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		return nil, translate(err, "product")
	}
	return &product, nil
}

// FindIDsByName returns the ids of the products whose name equals one of
// names exactly.
func (r *ProductRepository) FindIDsByName(ctx context.Context, names []string) (map[string]primitive.ObjectID, error) {
	return findIDsByName(ctx, r.coll, names, "product")
}

func (r *ProductRepository) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error) {
	query := productQuery(filter)

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, translate(err, "product")
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if filter.Limit > 0 {
		opts.SetSkip(filter.Skip()).SetLimit(filter.Limit)
	}

	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, translate(err, "product")
	}
	defer cursor.Close(ctx)

	products := make([]models.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, translate(err, "product")
	}
	return products, total, nil
}

func productQuery(filter models.ProductFilter) bson.M {
	query := bson.M{}
	if filter.CategoryID != nil {
		query["category_id"] = *filter.CategoryID
	}
	if filter.Search != "" {
		query["name"] = bson.M{"$regex": regexp.QuoteMeta(filter.Search), "$options": "i"}
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Intake != "" {
		query["intake"] = filter.Intake
	}
	if filter.Available != nil {
		query["available"] = *filter.Available
	}
	return query
}

// Update applies set and unset to the product and returns the stored result.
func (r *ProductRepository) Update(ctx context.Context, id primitive.ObjectID, set bson.M, unset []string) (*models.Product, error) {
	update := bson.M{}
	if set == nil {
		set = bson.M{}
	}
	set["updated_at"] = time.Now().UTC()
	update["$set"] = set
	if len(unset) > 0 {
		fields := bson.M{}
		for _, field := range unset {
			fields[field] = ""
		}
		update["$unset"] = fields
	}

	var updated models.Product
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		return nil, translate(err, "product")
	}
	return &updated, nil
}

// Delete removes the product and returns the document as it was stored.
func (r *ProductRepository) Delete(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var deleted models.Product
	if err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&deleted); err != nil {
		return nil, translate(err, "product")
	}
	return &deleted, nil
}

// DecrementColorStock is a single conditional update: it matches only when
// the product has a color with exactly that name holding at least quantity
// units, and the positional operator decrements that color alone.
func (r *ProductRepository) DecrementColorStock(ctx context.Context, id primitive.ObjectID, color string, quantity int) (bool, error) {
	filter := bson.M{
		"_id": id,
		"colors": bson.M{"$elemMatch": bson.M{
			"name":  color,
			"stock": bson.M{"$gte": quantity},
		}},
	}
	update := bson.M{
		"$inc": bson.M{"colors.$.stock": -quantity},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, translate(err, "product")
	}
	return res.MatchedCount > 0, nil
}

func (r *ProductRepository) IncrementColorStock(ctx context.Context, id primitive.ObjectID, color string, quantity int) (bool, error) {
	filter := bson.M{
		"_id":    id,
		"colors": bson.M{"$elemMatch": bson.M{"name": color}},
	}
	update := bson.M{
		"$inc": bson.M{"colors.$.stock": quantity},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, translate(err, "product")
	}
	return res.MatchedCount > 0, nil
}

// RefreshAvailability recomputes available from the stored colors inside the
// update itself, so the flag reflects the document as the server sees it.
func (r *ProductRepository) RefreshAvailability(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "available", Value: bson.D{{Key: "$gt", Value: bson.A{
				bson.D{{Key: "$sum", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$colors.stock", bson.A{}}}}}},
				0,
			}}}},
		}}},
	}

	var product models.Product
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, pipeline,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&product)
	if err != nil {
		return nil, translate(err, "product")
	}
	return &product, nil
}

func findIDsByName(ctx context.Context, coll *mongo.Collection, names []string, what string) (map[string]primitive.ObjectID, error) {
	out := make(map[string]primitive.ObjectID)
	if len(names) == 0 {
		return out, nil
	}

	cursor, err := coll.Find(ctx,
		bson.M{"name": bson.M{"$in": names}},
		options.Find().SetProjection(bson.M{"_id": 1, "name": 1}),
	)
	if err != nil {
		return nil, translate(err, what)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID   primitive.ObjectID `bson:"_id"`
		Name string             `bson:"name"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, translate(err, what)
	}
	for _, row := range rows {
		out[row.Name] = row.ID
	}
	return out, nil
}
