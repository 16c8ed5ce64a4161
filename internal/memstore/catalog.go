package memstore

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/apperror"
	"storefront/internal/models"
)

type CategoryRepository struct {
	s *Store
}

func (r *CategoryRepository) nameTaken(name string, except primitive.ObjectID) bool {
	for id, c := range r.s.categories {
		if id != except && c.Name == name {
			return true
		}
	}
	return false
}

func (r *CategoryRepository) Insert(_ context.Context, category *models.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.insert(category)
}

func (r *CategoryRepository) insert(category *models.Category) error {
	if r.nameTaken(category.Name, primitive.NilObjectID) {
		return apperror.Conflict("category already exists")
	}
	if category.ID.IsZero() {
		category.ID = primitive.NewObjectID()
	}
	r.s.categories[category.ID] = *category
	return nil
}

func (r *CategoryRepository) InsertMany(_ context.Context, categories []models.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i := range categories {
		if err := r.insert(&categories[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *CategoryRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	category, ok := r.s.categories[id]
	if !ok {
		return nil, apperror.NotFound("category not found")
	}
	return &category, nil
}

func (r *CategoryRepository) FindIDsByName(_ context.Context, names []string) (map[string]primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make(map[string]primitive.ObjectID)
	for _, name := range names {
		for id, c := range r.s.categories {
			if c.Name == name {
				out[name] = id
			}
		}
	}
	return out, nil
}

func (r *CategoryRepository) NamesByID(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make(map[primitive.ObjectID]string)
	for _, id := range ids {
		if c, ok := r.s.categories[id]; ok {
			out[id] = c.Name
		}
	}
	return out, nil
}

func (r *CategoryRepository) List(_ context.Context, activeOnly bool) ([]models.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]models.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *CategoryRepository) Update(_ context.Context, id primitive.ObjectID, set bson.M) (*models.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.categories[id]
	if !ok {
		return nil, apperror.NotFound("category not found")
	}
	if name, ok := set["name"].(string); ok && r.nameTaken(name, id) {
		return nil, apperror.Conflict("category already exists")
	}

	withTime := bson.M{"updated_at": time.Now().UTC()}
	for key, value := range set {
		withTime[key] = value
	}
	var updated models.Category
	if err := applyUpdate(stored, withTime, nil, &updated); err != nil {
		return nil, err
	}
	r.s.categories[id] = updated
	return &updated, nil
}

type ReferenceRepository struct {
	s    *Store
	kind models.ReferenceKind
}

func (r *ReferenceRepository) what() string {
	if r.kind == models.ReferenceColors {
		return "color"
	}
	return "size"
}

func (r *ReferenceRepository) insert(ref *models.Reference) error {
	entries := r.s.references[r.kind]
	for _, existing := range entries {
		if existing.Name == ref.Name {
			return apperror.Conflict(r.what() + " already exists")
		}
	}
	if ref.ID.IsZero() {
		ref.ID = primitive.NewObjectID()
	}
	entries[ref.ID] = *ref
	return nil
}

func (r *ReferenceRepository) Insert(_ context.Context, ref *models.Reference) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.insert(ref)
}

func (r *ReferenceRepository) InsertMany(_ context.Context, refs []models.Reference) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i := range refs {
		if err := r.insert(&refs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *ReferenceRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Reference, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ref, ok := r.s.references[r.kind][id]
	if !ok {
		return nil, apperror.NotFound(r.what() + " not found")
	}
	return &ref, nil
}

func (r *ReferenceRepository) FindIDsByName(_ context.Context, names []string) (map[string]primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make(map[string]primitive.ObjectID)
	for _, name := range names {
		for id, ref := range r.s.references[r.kind] {
			if ref.Name == name {
				out[name] = id
			}
		}
	}
	return out, nil
}

func (r *ReferenceRepository) List(_ context.Context) ([]models.Reference, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]models.Reference, 0, len(r.s.references[r.kind]))
	for _, ref := range r.s.references[r.kind] {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out, nil
}
