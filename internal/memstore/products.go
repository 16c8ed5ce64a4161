package memstore

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/apperror"
	"storefront/internal/models"
)

type ProductRepository struct {
	s *Store
}

func (r *ProductRepository) nameTaken(name string, except primitive.ObjectID) bool {
	for id, p := range r.s.products {
		if id != except && p.Name == name {
			return true
		}
	}
	return false
}

func (r *ProductRepository) Insert(_ context.Context, p *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.nameTaken(p.Name, primitive.NilObjectID) {
		return apperror.Conflict("product already exists")
	}
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	var stored models.Product
	if err := copyDoc(p, &stored); err != nil {
		return err
	}
	r.s.products[p.ID] = stored
	return nil
}

func (r *ProductRepository) InsertMany(ctx context.Context, products []models.Product) error {
	for i := range products {
		if err := r.Insert(ctx, &products[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *ProductRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.get(id)
}

func (r *ProductRepository) get(id primitive.ObjectID) (*models.Product, error) {
	stored, ok := r.s.products[id]
	if !ok {
		return nil, apperror.NotFound("product not found")
	}
	var out models.Product
	if err := copyDoc(stored, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ProductRepository) FindIDsByName(_ context.Context, names []string) (map[string]primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[name] = struct{}{}
	}
	out := make(map[string]primitive.ObjectID)
	for id, p := range r.s.products {
		if _, ok := wanted[p.Name]; ok {
			out[p.Name] = id
		}
	}
	return out, nil
}

func (r *ProductRepository) List(_ context.Context, filter models.ProductFilter) ([]models.Product, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	search := strings.ToLower(filter.Search)
	ids := make([]primitive.ObjectID, 0, len(r.s.products))
	for id, p := range r.s.products {
		if filter.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *filter.CategoryID) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Intake != "" && p.Intake != filter.Intake {
			continue
		}
		if filter.Available != nil && p.Available != *filter.Available {
			continue
		}
		ids = append(ids, id)
	}
	newestFirst(ids, func(id primitive.ObjectID) int64 { return r.s.products[id].CreatedAt.UnixNano() })

	total := int64(len(ids))
	if filter.Limit > 0 {
		start := filter.Skip()
		if start > total {
			start = total
		}
		end := start + filter.Limit
		if end > total {
			end = total
		}
		ids = ids[start:end]
	}

	products := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		p, err := r.get(id)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}
	return products, total, nil
}

func (r *ProductRepository) Update(_ context.Context, id primitive.ObjectID, set bson.M, unset []string) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.products[id]
	if !ok {
		return nil, apperror.NotFound("product not found")
	}
	if name, ok := set["name"].(string); ok && r.nameTaken(name, id) {
		return nil, apperror.Conflict("product already exists")
	}

	withTime := bson.M{"updated_at": time.Now().UTC()}
	for key, value := range set {
		withTime[key] = value
	}

	var updated models.Product
	if err := applyUpdate(stored, withTime, unset, &updated); err != nil {
		return nil, err
	}
	r.s.products[id] = updated
	return r.get(id)
}

func (r *ProductRepository) Delete(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	deleted, err := r.get(id)
	if err != nil {
		return nil, err
	}
	delete(r.s.products, id)
	return deleted, nil
}

func (r *ProductRepository) DecrementColorStock(_ context.Context, id primitive.ObjectID, color string, quantity int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.adjust(id, color, func(stock int) (int, bool) {
		if stock < quantity {
			return stock, false
		}
		return stock - quantity, true
	}), nil
}

func (r *ProductRepository) IncrementColorStock(_ context.Context, id primitive.ObjectID, color string, quantity int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.adjust(id, color, func(stock int) (int, bool) {
		return stock + quantity, true
	}), nil
}

// adjust changes the first color named color when change accepts its stock.
func (r *ProductRepository) adjust(id primitive.ObjectID, color string, change func(int) (int, bool)) bool {
	stored, ok := r.s.products[id]
	if !ok {
		return false
	}
	for i := range stored.Colors {
		if stored.Colors[i].Name != color {
			continue
		}
		next, ok := change(stored.Colors[i].Stock)
		if !ok {
			continue
		}
		colors := append([]models.ColorVariant(nil), stored.Colors...)
		colors[i].Stock = next
		stored.Colors = colors
		stored.UpdatedAt = time.Now().UTC()
		r.s.products[id] = stored
		return true
	}
	return false
}

func (r *ProductRepository) RefreshAvailability(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.products[id]
	if !ok {
		return nil, apperror.NotFound("product not found")
	}
	total := 0
	for _, color := range stored.Colors {
		total += color.Stock
	}
	stored.Available = total > 0
	r.s.products[id] = stored
	return r.get(id)
}
