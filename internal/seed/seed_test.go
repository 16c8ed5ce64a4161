package seed_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperror"
	"storefront/internal/auth"
	"storefront/internal/catalog"
	"storefront/internal/memstore"
	"storefront/internal/models"
	"storefront/internal/seed"
	"storefront/internal/storage"
)

const document = `
categories:
  - name: Shirts
sizes:
  - name: M
colors:
  - name: Blue
users:
  - name: Root
    email: Root@Example.com
    password: Admin1234
    role: admin
products:
  - name: Linen Shirt
    current_price: 39.9
    category: Shirts
    sizes: [M]
    colors:
      - name: " Blue "
        quantity: "3"
      - name: White
        quantity: 2
        stock: 0
`

func services(store *memstore.Store) seed.Services {
	categories := catalog.NewCategoryService(store.Categories())
	issuer := auth.NewIssuer("seed-secret", time.Hour)
	return seed.Services{
		Categories: categories,
		Sizes:      catalog.NewReferenceService(models.ReferenceSizes, store.References(models.ReferenceSizes)),
		Colors:     catalog.NewReferenceService(models.ReferenceColors, store.References(models.ReferenceColors)),
		Products:   catalog.NewProductService(store.Products(), categories, storage.Disabled{}, nil),
		Accounts:   auth.NewService(store.Users(), store.RefreshTokens(), issuer, auth.NewMemoryDenylist(), time.Hour),
	}
}

func TestApplyIsRerunnable(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := services(store)

	f, err := seed.Decode(strings.NewReader(document))
	require.NoError(t, err)

	report, err := seed.Apply(ctx, svc, f)
	require.NoError(t, err)
	assert.Equal(t, seed.Report{Created: 5}, report)

	page, err := svc.Products.List(ctx, catalog.ScopePublic, catalog.ProductQuery{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	product := page.Items[0]
	assert.Equal(t, "Shirts", product.CategoryName)
	assert.True(t, product.Available)
	assert.Equal(t, []models.ColorVariant{{Name: "Blue", Quantity: 3, Stock: 3}, {Name: "White", Quantity: 2, Stock: 0}}, product.Colors)

	users, err := svc.Accounts.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "root@example.com", users[0].Email)
	assert.True(t, users[0].IsAdmin())

	report, err = seed.Apply(ctx, svc, f)
	require.NoError(t, err)
	assert.Equal(t, seed.Report{Skipped: 5}, report)
}

func TestApplyStopsOnInvalidEntry(t *testing.T) {
	f, err := seed.Decode(strings.NewReader(`
sizes:
  - name: M
  - name: XXXL
colors:
  - name: Blue
`))
	require.NoError(t, err)

	report, err := seed.Apply(context.Background(), services(memstore.New()), f)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.Equal(t, 1, report.Created)
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := seed.Decode(strings.NewReader("products:\n  - name: Tee\n    prize: 3\n"))
	assert.Error(t, err)

	f, err := seed.Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Products)
}
