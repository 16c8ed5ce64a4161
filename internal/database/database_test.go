package database

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/apperror"
	"storefront/internal/models"
)

func TestProductQuery(t *testing.T) {
	assert.Equal(t, bson.M{}, productQuery(models.ProductFilter{Page: 2, Limit: 10}))

	categoryID := primitive.NewObjectID()
	available := false
	query := productQuery(models.ProductFilter{
		CategoryID: &categoryID,
		Search:     "t-shirt (v2)",
		Status:     models.StatusActive,
		Intake:     models.IntakeOld,
		Available:  &available,
	})

	assert.Equal(t, bson.M{
		"category_id": categoryID,
		"name":        bson.M{"$regex": `t-shirt \(v2\)`, "$options": "i"},
		"status":      models.StatusActive,
		"intake":      models.IntakeOld,
		"available":   false,
	}, query)
}

func TestTranslate(t *testing.T) {
	duplicate := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}

	tests := []struct {
		name    string
		err     error
		kind    apperror.Kind
		message string
	}{
		{name: "no documents", err: mongo.ErrNoDocuments, kind: apperror.KindNotFound, message: "product not found"},
		{name: "wrapped no documents", err: errors.Wrap(mongo.ErrNoDocuments, "find"), kind: apperror.KindNotFound, message: "product not found"},
		{name: "duplicate key", err: duplicate, kind: apperror.KindConflict, message: "product already exists"},
		{name: "deadline", err: context.DeadlineExceeded, kind: apperror.KindInfrastructure, message: "database unavailable, please retry"},
		{name: "other", err: errors.New("boom"), kind: apperror.KindInfrastructure, message: "database error, please retry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.err, "product")
			appErr, ok := apperror.As(got)
			if assert.True(t, ok) {
				assert.Equal(t, tt.kind, appErr.Kind)
				assert.Equal(t, tt.message, appErr.Message)
			}
		})
	}

	assert.NoError(t, translate(nil, "product"))
}

func TestProductFilterSkip(t *testing.T) {
	assert.Equal(t, int64(0), models.ProductFilter{Page: 3}.Skip())
	assert.Equal(t, int64(0), models.ProductFilter{Page: 1, Limit: 10}.Skip())
	assert.Equal(t, int64(20), models.ProductFilter{Page: 3, Limit: 10}.Skip())
}
