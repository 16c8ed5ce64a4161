// Package inventory keeps the per-color stock of a product consistent with
// its aggregate availability flag.
package inventory

import (
	"strings"

	"storefront/internal/apperror"
	"storefront/internal/models"
)

// ColorInput is a color entry as submitted by a client, before coercion.
type ColorInput struct {
	Name     string         `json:"name" yaml:"name"`
	Quantity models.FlexInt `json:"quantity" yaml:"quantity"`
	Stock    models.FlexInt `json:"stock" yaml:"stock"`
}

// NormalizeColors turns submitted color entries into persistence-ready
// variants. Entries with a blank name are dropped, names are trimmed with
// their case preserved, quantity defaults to 0 and stock defaults to quantity.
// Two entries whose trimmed names match case-insensitively fail the whole
// call with a validation error listing the clashing names.
func NormalizeColors(inputs []ColorInput) ([]models.ColorVariant, error) {
	colors := make([]models.ColorVariant, 0, len(inputs))
	groups := make(map[string][]string)
	var order []string

	for _, input := range inputs {
		name := strings.TrimSpace(input.Name)
		if name == "" {
			continue
		}

		key := strings.ToLower(name)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], name)

		quantity := input.Quantity.CountOr(0)
		colors = append(colors, models.ColorVariant{
			Name:     name,
			Quantity: quantity,
			Stock:    input.Stock.CountOr(quantity),
		})
	}

	var duplicates []string
	for _, key := range order {
		if names := groups[key]; len(names) > 1 {
			duplicates = append(duplicates, names...)
		}
	}
	if len(duplicates) > 0 {
		return nil, apperror.Validation("duplicate color names: "+strings.Join(duplicates, ", ")).
			WithDetail("duplicates", duplicates)
	}

	return colors, nil
}

// InputsFrom converts stored variants back into submission form.
func InputsFrom(colors []models.ColorVariant) []ColorInput {
	inputs := make([]ColorInput, 0, len(colors))
	for _, color := range colors {
		inputs = append(inputs, ColorInput{
			Name:     color.Name,
			Quantity: models.NewFlexInt(color.Quantity),
			Stock:    models.NewFlexInt(color.Stock),
		})
	}
	return inputs
}

// FindColor returns the variant whose stored name equals name exactly.
func FindColor(colors []models.ColorVariant, name string) (models.ColorVariant, bool) {
	for _, color := range colors {
		if color.Name == name {
			return color, true
		}
	}
	return models.ColorVariant{}, false
}
