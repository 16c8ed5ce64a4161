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

type CategoryRepository struct {
	coll *mongo.Collection
}

func NewCategoryRepository(db *mongo.Database) *CategoryRepository {
	return &CategoryRepository{coll: db.Collection(CategoriesCollection)}
}

func (r *CategoryRepository) Insert(ctx context.Context, category *models.Category) error {
	res, err := r.coll.InsertOne(ctx, category)
	if err != nil {
		return translate(err, "category")
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		category.ID = id
	}
	return nil
}

func (r *CategoryRepository) InsertMany(ctx context.Context, categories []models.Category) error {
	if len(categories) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(categories))
	for i := range categories {
		if categories[i].ID.IsZero() {
			categories[i].ID = primitive.NewObjectID()
		}
		docs = append(docs, categories[i])
	}
	if _, err := r.coll.InsertMany(ctx, docs); err != nil {
		return translate(err, "category")
	}
	return nil
}

func (r *CategoryRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error) {
	var category models.Category
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&category); err != nil {
		return nil, translate(err, "category")
	}
	return &category, nil
}

// FindIDsByName matches names exactly, case included.
func (r *CategoryRepository) FindIDsByName(ctx context.Context, names []string) (map[string]primitive.ObjectID, error) {
	return findIDsByName(ctx, r.coll, names, "category")
}

func (r *CategoryRepository) NamesByID(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	out := make(map[primitive.ObjectID]string)
	if len(ids) == 0 {
		return out, nil
	}

	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"_id": 1, "name": 1}))
	if err != nil {
		return nil, translate(err, "category")
	}
	defer cursor.Close(ctx)

	var categories []models.Category
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, translate(err, "category")
	}
	for _, category := range categories {
		out[category.ID] = category.Name
	}
	return out, nil
}

func (r *CategoryRepository) List(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	filter := bson.M{}
	if activeOnly {
		filter["is_active"] = true
	}

	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, translate(err, "category")
	}
	defer cursor.Close(ctx)

	categories := make([]models.Category, 0)
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, translate(err, "category")
	}
	return categories, nil
}

func (r *CategoryRepository) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Category, error) {
	if set == nil {
		set = bson.M{}
	}
	set["updated_at"] = time.Now().UTC()

	var updated models.Category
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		return nil, translate(err, "category")
	}
	return &updated, nil
}
