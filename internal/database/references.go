package database

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

// ReferenceRepository stores the size or color catalog, one collection per
// kind.
type ReferenceRepository struct {
	coll *mongo.Collection
	what string
}

func NewReferenceRepository(db *mongo.Database, kind models.ReferenceKind) *ReferenceRepository {
	what := "size"
	if kind == models.ReferenceColors {
		what = "color"
	}
	return &ReferenceRepository{coll: db.Collection(string(kind)), what: what}
}

func (r *ReferenceRepository) Insert(ctx context.Context, ref *models.Reference) error {
	res, err := r.coll.InsertOne(ctx, ref)
	if err != nil {
		return translate(err, r.what)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		ref.ID = id
	}
	return nil
}

func (r *ReferenceRepository) InsertMany(ctx context.Context, refs []models.Reference) error {
	if len(refs) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(refs))
	for i := range refs {
		if refs[i].ID.IsZero() {
			refs[i].ID = primitive.NewObjectID()
		}
		docs = append(docs, refs[i])
	}
	if _, err := r.coll.InsertMany(ctx, docs); err != nil {
		return translate(err, r.what)
	}
	return nil
}

func (r *ReferenceRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Reference, error) {
	var ref models.Reference
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&ref); err != nil {
		return nil, translate(err, r.what)
	}
	return &ref, nil
}

func (r *ReferenceRepository) FindIDsByName(ctx context.Context, names []string) (map[string]primitive.ObjectID, error) {
	return findIDsByName(ctx, r.coll, names, r.what)
}

func (r *ReferenceRepository) List(ctx context.Context) ([]models.Reference, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, translate(err, r.what)
	}
	defer cursor.Close(ctx)

	refs := make([]models.Reference, 0)
	if err := cursor.All(ctx, &refs); err != nil {
		return nil, translate(err, r.what)
	}
	return refs, nil
}
