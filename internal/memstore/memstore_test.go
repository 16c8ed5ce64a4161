package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"storefront/internal/apperror"
	"storefront/internal/models"
)

func TestProductRepositoryConditionalStockUpdates(t *testing.T) {
	ctx := context.Background()
	repo := New().Products()

	product := &models.Product{
		Name:   "Linen Shirt",
		Colors: []models.ColorVariant{{Name: "Blue", Quantity: 4, Stock: 4}, {Name: "Red", Quantity: 1, Stock: 1}},
	}
	require.NoError(t, repo.Insert(ctx, product))

	matched, err := repo.DecrementColorStock(ctx, product.ID, "Blue", 5)
	require.NoError(t, err)
	assert.False(t, matched, "more than the stock must not match")

	matched, err = repo.DecrementColorStock(ctx, product.ID, "blue", 1)
	require.NoError(t, err)
	assert.False(t, matched, "color names match exactly")

	matched, err = repo.DecrementColorStock(ctx, product.ID, "Blue", 4)
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = repo.IncrementColorStock(ctx, product.ID, "Red", 2)
	require.NoError(t, err)
	assert.True(t, matched)

	stored, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.ColorVariant{{Name: "Blue", Quantity: 4, Stock: 0}, {Name: "Red", Quantity: 1, Stock: 3}}, stored.Colors)
}

func TestProductRepositoryRefreshAvailability(t *testing.T) {
	ctx := context.Background()
	repo := New().Products()

	product := &models.Product{Name: "Cap", Available: true, Colors: []models.ColorVariant{{Name: "Black", Quantity: 1, Stock: 0}}}
	require.NoError(t, repo.Insert(ctx, product))

	refreshed, err := repo.RefreshAvailability(ctx, product.ID)
	require.NoError(t, err)
	assert.False(t, refreshed.Available)
}

func TestProductRepositoryUpdateAndUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := New().Products()

	first := &models.Product{Name: "A", ImageURL: "https://bucket.s3.us-east-1.amazonaws.com/products/a.jpg"}
	second := &models.Product{Name: "B"}
	require.NoError(t, repo.Insert(ctx, first))
	require.NoError(t, repo.Insert(ctx, second))

	err := repo.Insert(ctx, &models.Product{Name: "A"})
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	_, err = repo.Update(ctx, second.ID, bson.M{"name": "A"}, nil)
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	updated, err := repo.Update(ctx, first.ID, bson.M{"description": "wool"}, []string{"image_url"})
	require.NoError(t, err)
	assert.Equal(t, "wool", updated.Description)
	assert.Empty(t, updated.ImageURL)

	deleted, err := repo.Delete(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", deleted.Name)

	_, err = repo.FindByID(ctx, first.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestProductRepositoryListFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	repo := New().Products()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{"Red Scarf", "Blue Scarf", "Green Hat"} {
		require.NoError(t, repo.Insert(ctx, &models.Product{
			Name:      name,
			Status:    models.StatusActive,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	products, total, err := repo.List(ctx, models.ProductFilter{Search: "scarf"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "Blue Scarf", products[0].Name, "newest first")

	products, total, err = repo.List(ctx, models.ProductFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, products, 1)
	assert.Equal(t, "Red Scarf", products[0].Name)
}
