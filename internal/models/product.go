package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"

	IntakeNew = "new"
	IntakeOld = "old"
)

// SizeNames is the closed set of sizes a product may offer.
var SizeNames = []string{"XS", "S", "M", "L", "XL", "XXL"}

func IsSizeName(name string) bool {
	for _, size := range SizeNames {
		if size == name {
			return true
		}
	}
	return false
}

type Specs struct {
	Material string `bson:"material,omitempty" json:"material,omitempty" yaml:"material"`
	Weight   string `bson:"weight,omitempty" json:"weight,omitempty" yaml:"weight"`
	Origin   string `bson:"origin,omitempty" json:"origin,omitempty" yaml:"origin"`
}

// ColorVariant is a named sub-unit of a product. Quantity counts units
// received, Stock counts units still sellable.
type ColorVariant struct {
	Name     string `bson:"name" json:"name"`
	Quantity int    `bson:"quantity" json:"quantity"`
	Stock    int    `bson:"stock" json:"stock"`
}

// UnmarshalBSON tolerates counts stored as strings or doubles by older
// writers, applying the same defaults as new submissions.
func (c *ColorVariant) UnmarshalBSON(data []byte) error {
	var raw struct {
		Name     string  `bson:"name"`
		Quantity FlexInt `bson:"quantity"`
		Stock    FlexInt `bson:"stock"`
	}
	if err := bson.Unmarshal(data, &raw); err != nil {
		return err
	}
	quantity := raw.Quantity.CountOr(0)
	*c = ColorVariant{
		Name:     raw.Name,
		Quantity: quantity,
		Stock:    raw.Stock.CountOr(quantity),
	}
	return nil
}

type Product struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name            string              `bson:"name" json:"name"`
	Description     string              `bson:"description,omitempty" json:"description,omitempty"`
	CurrentPrice    float64             `bson:"current_price" json:"current_price"`
	OriginalPrice   float64             `bson:"original_price" json:"original_price"`
	DiscountPercent float64             `bson:"discount_percent" json:"discount_percent"`
	Available       bool                `bson:"available" json:"available"`
	Rating          float64             `bson:"rating" json:"rating"`
	ReviewCount     int                 `bson:"review_count" json:"review_count"`
	Status          string              `bson:"status" json:"status"`
	Intake          string              `bson:"intake" json:"intake"`
	ImageURL        string              `bson:"image_url,omitempty" json:"image_url,omitempty"`
	Specs           Specs               `bson:"specs" json:"specs"`
	Sizes           []string            `bson:"sizes" json:"sizes"`
	CategoryID      *primitive.ObjectID `bson:"category_id,omitempty" json:"category_id,omitempty"`
	CategoryName    string              `bson:"-" json:"category,omitempty"`
	Colors          []ColorVariant      `bson:"colors" json:"colors"`
	CreatedAt       time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `bson:"updated_at" json:"updated_at"`
}
