// Package memstore keeps every collection in process memory. It mirrors the
// Mongo repositories method for method and serializes all access behind one
// mutex, so each call is atomic the way a single-document update is.
package memstore

import (
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

type Store struct {
	mu sync.Mutex

	products   map[primitive.ObjectID]models.Product
	categories map[primitive.ObjectID]models.Category
	references map[models.ReferenceKind]map[primitive.ObjectID]models.Reference
	users      map[primitive.ObjectID]models.User
	tokens     map[primitive.ObjectID]models.RefreshToken
	orders     map[primitive.ObjectID]models.Order
}

func New() *Store {
	return &Store{
		products:   make(map[primitive.ObjectID]models.Product),
		categories: make(map[primitive.ObjectID]models.Category),
		references: map[models.ReferenceKind]map[primitive.ObjectID]models.Reference{
			models.ReferenceSizes:  {},
			models.ReferenceColors: {},
		},
		users:  make(map[primitive.ObjectID]models.User),
		tokens: make(map[primitive.ObjectID]models.RefreshToken),
		orders: make(map[primitive.ObjectID]models.Order),
	}
}

func (s *Store) Products() *ProductRepository { return &ProductRepository{s: s} }

func (s *Store) Categories() *CategoryRepository { return &CategoryRepository{s: s} }

func (s *Store) References(kind models.ReferenceKind) *ReferenceRepository {
	return &ReferenceRepository{s: s, kind: kind}
}

func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

func (s *Store) RefreshTokens() *RefreshTokenRepository { return &RefreshTokenRepository{s: s} }

func (s *Store) Orders() *OrderRepository { return &OrderRepository{s: s} }

// copyDoc deep-copies src into dst through BSON, the same path a document
// takes to and from the database.
func copyDoc(src, dst interface{}) error {
	raw, err := bson.Marshal(src)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, dst)
}

// applyUpdate runs a $set/$unset of top-level fields against doc.
func applyUpdate(doc interface{}, set bson.M, unset []string, dst interface{}) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	var fields bson.M
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return err
	}
	for key, value := range set {
		fields[key] = value
	}
	for _, key := range unset {
		delete(fields, key)
	}
	return copyDoc(fields, dst)
}

// newestFirst orders ids by creation time, newest first, ties broken by id.
func newestFirst(ids []primitive.ObjectID, createdAt func(primitive.ObjectID) int64) {
	sort.Slice(ids, func(i, j int) bool {
		a, b := createdAt(ids[i]), createdAt(ids[j])
		if a != b {
			return a > b
		}
		return ids[i].Hex() > ids[j].Hex()
	})
}
