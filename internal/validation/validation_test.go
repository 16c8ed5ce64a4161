package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperror"
)

type sample struct {
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email" binding:"required,email"`
	Discount *float64 `json:"discount_percent" binding:"omitempty,gte=0,lte=100"`
	Status   string   `json:"status" binding:"omitempty,oneof=Active Inactive"`
	Internal string   `json:"-"`
}

func TestStructReportsFieldsByJSONName(t *testing.T) {
	discount := 120.0
	err := Struct(sample{Email: "nope", Discount: &discount, Status: "Gone"})
	require.Error(t, err)

	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)
	assert.Equal(t, []string{
		"name is required",
		"email must be a valid email address",
		"discount_percent must be at most 100",
		"status must be one of: Active Inactive",
	}, appErr.Details["fields"])
}

func TestStructAcceptsValidInput(t *testing.T) {
	assert.NoError(t, Struct(sample{Name: "x", Email: "a@b.co"}))
}

type line struct {
	Quantity int `json:"quantity" binding:"gt=0"`
}

type order struct {
	Contact struct {
		Email string `json:"email" binding:"required,email"`
	} `json:"contact"`
	Lines []line `json:"lines" binding:"required,min=1,dive"`
}

func TestStructNamesNestedFields(t *testing.T) {
	var o order
	o.Contact.Email = "x"
	o.Lines = []line{{Quantity: 1}, {Quantity: 0}}

	appErr, ok := apperror.As(Struct(o))
	require.True(t, ok)
	assert.Equal(t, []string{
		"contact.email must be a valid email address",
		"lines[1].quantity must be greater than 0",
	}, appErr.Details["fields"])
}
