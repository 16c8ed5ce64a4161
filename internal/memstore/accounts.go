package memstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/apperror"
	"storefront/internal/models"
)

type UserRepository struct {
	s *Store
}

func (r *UserRepository) Insert(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.Email == user.Email {
			return apperror.Conflict("user already exists")
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, user := range r.s.users {
		if user.Email == email {
			out := user
			return &out, nil
		}
	}
	return nil, apperror.NotFound("user not found")
}

func (r *UserRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, apperror.NotFound("user not found")
	}
	return &user, nil
}

func (r *UserRepository) Update(_ context.Context, id primitive.ObjectID, set bson.M) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.users[id]
	if !ok {
		return nil, apperror.NotFound("user not found")
	}
	withTime := bson.M{"updated_at": time.Now().UTC()}
	for key, value := range set {
		withTime[key] = value
	}
	var updated models.User
	if err := applyUpdate(stored, withTime, nil, &updated); err != nil {
		return nil, err
	}
	r.s.users[id] = updated
	return &updated, nil
}

func (r *UserRepository) List(_ context.Context) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ids := make([]primitive.ObjectID, 0, len(r.s.users))
	for id := range r.s.users {
		ids = append(ids, id)
	}
	newestFirst(ids, func(id primitive.ObjectID) int64 { return r.s.users[id].CreatedAt.UnixNano() })

	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.s.users[id])
	}
	return out, nil
}

type RefreshTokenRepository struct {
	s *Store
}

func (r *RefreshTokenRepository) Insert(_ context.Context, token *models.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if token.ID.IsZero() {
		token.ID = primitive.NewObjectID()
	}
	r.s.tokens[token.ID] = *token
	return nil
}

func (r *RefreshTokenRepository) FindByHash(_ context.Context, hash string) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, token := range r.s.tokens {
		if token.TokenHash == hash {
			out := token
			return &out, nil
		}
	}
	return nil, apperror.NotFound("refresh token not found")
}

func (r *RefreshTokenRepository) Revoke(_ context.Context, id primitive.ObjectID, replacedBy *primitive.ObjectID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	token, ok := r.s.tokens[id]
	if !ok || token.Revoked {
		return false, nil
	}
	token.Revoked = true
	if replacedBy != nil {
		replacement := *replacedBy
		token.ReplacedByToken = &replacement
	}
	r.s.tokens[id] = token
	return true, nil
}

type OrderRepository struct {
	s *Store
}

func (r *OrderRepository) Insert(_ context.Context, order *models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	var stored models.Order
	if err := copyDoc(order, &stored); err != nil {
		return err
	}
	r.s.orders[order.ID] = stored
	return nil
}

func (r *OrderRepository) SetEmailSent(_ context.Context, id primitive.ObjectID, sent bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	order, ok := r.s.orders[id]
	if !ok {
		return apperror.NotFound("order not found")
	}
	order.EmailSent = sent
	r.s.orders[id] = order
	return nil
}

func (r *OrderRepository) List(_ context.Context) ([]models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ids := make([]primitive.ObjectID, 0, len(r.s.orders))
	for id := range r.s.orders {
		ids = append(ids, id)
	}
	newestFirst(ids, func(id primitive.ObjectID) int64 { return r.s.orders[id].CreatedAt.UnixNano() })

	out := make([]models.Order, 0, len(ids))
	for _, id := range ids {
		var order models.Order
		if err := copyDoc(r.s.orders[id], &order); err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	return out, nil
}

func (r *OrderRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.orders[id]; !ok {
		return apperror.NotFound("order not found")
	}
	delete(r.s.orders, id)
	return nil
}
