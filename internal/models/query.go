package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// ProductFilter narrows a product listing. Zero fields do not filter.
// Limit 0 returns every match.
type ProductFilter struct {
	CategoryID *primitive.ObjectID
	Search     string
	Status     string
	Intake     string
	Available  *bool
	Page       int64
	Limit      int64
}

// Skip is the number of documents before the requested page.
func (f ProductFilter) Skip() int64 {
	if f.Limit <= 0 || f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}
