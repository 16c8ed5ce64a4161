package inventory

import "storefront/internal/models"

func TotalStock(colors []models.ColorVariant) int {
	total := 0
	for _, color := range colors {
		total += color.Stock
	}
	return total
}

// Available reports whether any color still has sellable stock. A product
// without colors is never available.
func Available(colors []models.ColorVariant) bool {
	return TotalStock(colors) > 0
}

// Reconcile recomputes the derived availability flag of p in place.
func Reconcile(p *models.Product) {
	p.Available = Available(p.Colors)
}
