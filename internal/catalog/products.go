// Package catalog manages products and the reference data they point at:
// categories, sizes and colors.
package catalog

import (
	"context"
	"io"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/apperror"
	"storefront/internal/inventory"
	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/internal/storage"
	"storefront/internal/validation"
)

type ProductRepository interface {
	Insert(ctx context.Context, p *models.Product) error
	InsertMany(ctx context.Context, products []models.Product) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	FindIDsByName(ctx context.Context, names []string) (map[string]primitive.ObjectID, error)
	List(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M, unset []string) (*models.Product, error)
	Delete(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
}

// Scope selects which products a caller may see.
type Scope int

const (
	ScopePublic Scope = iota
	ScopeAdmin
)

type ProductInput struct {
	Name            string                 `json:"name" yaml:"name" binding:"required"`
	Description     string                 `json:"description" yaml:"description"`
	CurrentPrice    float64                `json:"current_price" yaml:"current_price" binding:"gte=0"`
	OriginalPrice   float64                `json:"original_price" yaml:"original_price" binding:"gte=0"`
	DiscountPercent float64                `json:"discount_percent" yaml:"discount_percent" binding:"gte=0,lte=100"`
	Rating          float64                `json:"rating" yaml:"rating" binding:"gte=0,lte=5"`
	ReviewCount     int                    `json:"review_count" yaml:"review_count" binding:"gte=0"`
	Status          string                 `json:"status" yaml:"status" binding:"omitempty,oneof=Active Inactive"`
	Intake          string                 `json:"intake" yaml:"intake" binding:"omitempty,oneof=new old"`
	ImageURL        string                 `json:"image_url" yaml:"image_url"`
	Specs           models.Specs           `json:"specs" yaml:"specs"`
	Sizes           []string               `json:"sizes" yaml:"sizes" binding:"omitempty,dive,oneof=XS S M L XL XXL"`
	CategoryID      string                 `json:"category_id" yaml:"category_id"`
	Category        string                 `json:"category" yaml:"category"`
	Colors          []inventory.ColorInput `json:"colors" yaml:"colors"`
}

// ProductPatch is a partial update. Nil fields are left alone.
type ProductPatch struct {
	Name            *string                 `json:"name"`
	Description     *string                 `json:"description"`
	CurrentPrice    *float64                `json:"current_price" binding:"omitempty,gte=0"`
	OriginalPrice   *float64                `json:"original_price" binding:"omitempty,gte=0"`
	DiscountPercent *float64                `json:"discount_percent" binding:"omitempty,gte=0,lte=100"`
	Rating          *float64                `json:"rating" binding:"omitempty,gte=0,lte=5"`
	ReviewCount     *int                    `json:"review_count" binding:"omitempty,gte=0"`
	Status          *string                 `json:"status" binding:"omitempty,oneof=Active Inactive"`
	Intake          *string                 `json:"intake" binding:"omitempty,oneof=new old"`
	ImageURL        *string                 `json:"image_url"`
	RemoveImage     bool                    `json:"remove_image"`
	Specs           *models.Specs           `json:"specs"`
	Sizes           *[]string               `json:"sizes" binding:"omitempty,dive,oneof=XS S M L XL XXL"`
	CategoryID      *string                 `json:"category_id"`
	Category        *string                 `json:"category"`
	Colors          *[]inventory.ColorInput `json:"colors"`
}

// ProductQuery carries listing filters as received from a client.
type ProductQuery struct {
	CategoryID string
	Category   string
	Search     string
	Status     string
	Intake     string
	Available  string
	Page       int64
	Limit      int64
}

type ProductPage struct {
	Items []models.Product
	Total int64
	Page  int64
	Limit int64
}

type ProductService struct {
	products   ProductRepository
	categories *CategoryService
	images     storage.ImageStore
	metrics    *metrics.AppMetrics
	now        func() time.Time
}

func NewProductService(products ProductRepository, categories *CategoryService, images storage.ImageStore, m *metrics.AppMetrics) *ProductService {
	return &ProductService{
		products:   products,
		categories: categories,
		images:     images,
		metrics:    m,
		now:        time.Now,
	}
}

/* =========================
   CREATE
========================= */

// Create validates in, uploads image when given and stores the product.
// Nothing is uploaded until the input has passed validation.
func (s *ProductService) Create(ctx context.Context, in ProductInput, image io.Reader) (*models.Product, error) {
	product, err := s.build(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := checkNamesFree(ctx, s.products, "product", []string{product.Name}); err != nil {
		return nil, err
	}

	uploaded := ""
	if image != nil {
		uploaded, err = s.images.Upload(ctx, image)
		if err != nil {
			return nil, err
		}
		product.ImageURL = uploaded
	}

	if err := s.products.Insert(ctx, &product); err != nil {
		if uploaded != "" {
			s.cleanupImage(ctx, uploaded)
		}
		if apperror.Is(err, apperror.KindConflict) {
			return nil, apperror.Conflict("product already exists").WithDetail("name", product.Name)
		}
		return nil, err
	}

	log.Printf("[PRODUCT] [INFO] created %s (%s) available=%t colors=%d",
		product.ID.Hex(), sanitizeLogValue(product.Name, 80), product.Available, len(product.Colors))
	s.metrics.RecordProductsCreated(ctx, 1)

	if err := s.withCategoryNames(ctx, []*models.Product{&product}); err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateMany stores every product or none. Names already stored or repeated
// within the batch fail the whole call.
func (s *ProductService) CreateMany(ctx context.Context, inputs []ProductInput) ([]models.Product, error) {
	if len(inputs) == 0 {
		return nil, apperror.Validation("at least one product is required")
	}

	products := make([]models.Product, 0, len(inputs))
	names := make([]string, 0, len(inputs))

	for i, in := range inputs {
		product, err := s.build(ctx, in)
		if err != nil {
			if appErr, ok := apperror.As(err); ok {
				return nil, appErr.WithDetail("index", i)
			}
			return nil, err
		}
		products = append(products, product)
		names = append(names, product.Name)
	}

	if err := checkBatchNames("product", names); err != nil {
		return nil, err
	}
	if err := checkNamesFree(ctx, s.products, "product", names); err != nil {
		return nil, err
	}

	if err := s.products.InsertMany(ctx, products); err != nil {
		return nil, err
	}

	log.Printf("[PRODUCT] [INFO] bulk created %d products", len(products))
	s.metrics.RecordProductsCreated(ctx, len(products))

	refs := make([]*models.Product, 0, len(products))
	for i := range products {
		refs = append(refs, &products[i])
	}
	if err := s.withCategoryNames(ctx, refs); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *ProductService) build(ctx context.Context, in ProductInput) (models.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if err := validation.Struct(in); err != nil {
		return models.Product{}, err
	}
	if err := s.checkImageURL(in.ImageURL); err != nil {
		return models.Product{}, err
	}

	colors, err := inventory.NormalizeColors(in.Colors)
	if err != nil {
		return models.Product{}, err
	}

	categoryID, err := s.resolveCategory(ctx, in.CategoryID, in.Category)
	if err != nil {
		return models.Product{}, err
	}

	now := s.now().UTC()
	product := models.Product{
		ID:              primitive.NewObjectID(),
		Name:            in.Name,
		Description:     strings.TrimSpace(in.Description),
		CurrentPrice:    in.CurrentPrice,
		OriginalPrice:   in.OriginalPrice,
		DiscountPercent: in.DiscountPercent,
		Rating:          in.Rating,
		ReviewCount:     in.ReviewCount,
		Status:          defaultString(in.Status, models.StatusActive),
		Intake:          defaultString(in.Intake, models.IntakeNew),
		ImageURL:        in.ImageURL,
		Specs:           trimSpecs(in.Specs),
		Sizes:           normalizeSizes(in.Sizes),
		CategoryID:      categoryID,
		Colors:          colors,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	inventory.Reconcile(&product)
	return product, nil
}

/* =========================
   UPDATE
========================= */

// Update applies the present fields of patch. A new image replaces the stored
// one; the previous object is deleted only after the write succeeded.
func (s *ProductService) Update(ctx context.Context, id primitive.ObjectID, patch ProductPatch, image io.Reader) (*models.Product, error) {
	if err := validation.Struct(patch); err != nil {
		return nil, err
	}

	existing, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updateSet := bson.M{}
	var updateUnset []string

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperror.Validation("name cannot be empty")
		}
		if name != existing.Name {
			taken, err := s.products.FindIDsByName(ctx, []string{name})
			if err != nil {
				return nil, err
			}
			if other, ok := taken[name]; ok && other != id {
				return nil, apperror.Conflict("product already exists").WithDetail("name", name)
			}
		}
		updateSet["name"] = name
	}
	if patch.Description != nil {
		updateSet["description"] = strings.TrimSpace(*patch.Description)
	}
	if patch.CurrentPrice != nil {
		updateSet["current_price"] = *patch.CurrentPrice
	}
	if patch.OriginalPrice != nil {
		updateSet["original_price"] = *patch.OriginalPrice
	}
	if patch.DiscountPercent != nil {
		updateSet["discount_percent"] = *patch.DiscountPercent
	}
	if patch.Rating != nil {
		updateSet["rating"] = *patch.Rating
	}
	if patch.ReviewCount != nil {
		updateSet["review_count"] = *patch.ReviewCount
	}
	if patch.Status != nil {
		updateSet["status"] = *patch.Status
	}
	if patch.Intake != nil {
		updateSet["intake"] = *patch.Intake
	}
	if patch.Specs != nil {
		updateSet["specs"] = trimSpecs(*patch.Specs)
	}
	if patch.Sizes != nil {
		updateSet["sizes"] = normalizeSizes(*patch.Sizes)
	}

	if patch.CategoryID != nil || patch.Category != nil {
		rawID, rawName := "", ""
		if patch.CategoryID != nil {
			rawID = *patch.CategoryID
		}
		if patch.Category != nil {
			rawName = *patch.Category
		}
		categoryID, err := s.resolveCategory(ctx, rawID, rawName)
		if err != nil {
			return nil, err
		}
		if categoryID == nil {
			updateUnset = append(updateUnset, "category_id")
		} else {
			updateSet["category_id"] = *categoryID
		}
	}

	if patch.Colors != nil {
		colors, err := inventory.NormalizeColors(*patch.Colors)
		if err != nil {
			return nil, err
		}
		updateSet["colors"] = colors
		updateSet["available"] = inventory.Available(colors)
	}

	previousImage := strings.TrimSpace(existing.ImageURL)
	replaceImage := false
	switch {
	case image != nil:
		replaceImage = true
	case patch.RemoveImage:
		updateUnset = append(updateUnset, "image_url")
	case patch.ImageURL != nil:
		imageURL := strings.TrimSpace(*patch.ImageURL)
		if err := s.checkImageURL(imageURL); err != nil {
			return nil, err
		}
		if imageURL == "" {
			updateUnset = append(updateUnset, "image_url")
		} else {
			updateSet["image_url"] = imageURL
		}
	}

	if len(updateSet) == 0 && len(updateUnset) == 0 && !replaceImage {
		return nil, apperror.Validation("no fields to update")
	}

	uploaded := ""
	if replaceImage {
		uploaded, err = s.images.Upload(ctx, image)
		if err != nil {
			return nil, err
		}
		updateSet["image_url"] = uploaded
	}

	log.Printf("[PRODUCT] [INFO] update %s set=%v unset=%v", id.Hex(), mapKeys(updateSet), updateUnset)

	updated, err := s.products.Update(ctx, id, updateSet, updateUnset)
	if err != nil {
		if uploaded != "" {
			s.cleanupImage(ctx, uploaded)
		}
		if apperror.Is(err, apperror.KindConflict) {
			return nil, apperror.Conflict("product already exists")
		}
		return nil, err
	}

	if previousImage != "" && previousImage != strings.TrimSpace(updated.ImageURL) {
		s.cleanupImage(ctx, previousImage)
	}

	if err := s.withCategoryNames(ctx, []*models.Product{updated}); err != nil {
		return nil, err
	}
	return updated, nil
}

/* =========================
   DELETE
========================= */

// Delete removes the product, then asks object storage to drop its image.
// A failed image delete is logged and does not fail the call.
func (s *ProductService) Delete(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	deleted, err := s.products.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	log.Printf("[PRODUCT] [INFO] deleted %s (%s)", id.Hex(), sanitizeLogValue(deleted.Name, 80))

	if deleted.ImageURL != "" {
		s.cleanupImage(ctx, deleted.ImageURL)
	}
	return deleted, nil
}

/* =========================
   READ
========================= */

func (s *ProductService) Get(ctx context.Context, scope Scope, id primitive.ObjectID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if scope == ScopePublic && product.Status != models.StatusActive {
		return nil, apperror.NotFound("product not found")
	}
	if err := s.withCategoryNames(ctx, []*models.Product{product}); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *ProductService) List(ctx context.Context, scope Scope, q ProductQuery) (*ProductPage, error) {
	filter := models.ProductFilter{
		Search: strings.TrimSpace(q.Search),
		Status: strings.TrimSpace(q.Status),
		Intake: strings.TrimSpace(q.Intake),
		Page:   q.Page,
		Limit:  q.Limit,
	}
	if scope == ScopePublic {
		filter.Status = models.StatusActive
	}
	if filter.Status != "" && filter.Status != models.StatusActive && filter.Status != models.StatusInactive {
		return nil, apperror.InvalidArgument("status must be Active or Inactive")
	}
	if filter.Intake != "" && filter.Intake != models.IntakeNew && filter.Intake != models.IntakeOld {
		return nil, apperror.InvalidArgument("intake must be new or old")
	}
	if raw := strings.TrimSpace(q.Available); raw != "" {
		available, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, apperror.InvalidArgument("available must be boolean")
		}
		filter.Available = &available
	}

	page := &ProductPage{Items: []models.Product{}, Page: q.Page, Limit: q.Limit}

	switch {
	case strings.TrimSpace(q.CategoryID) != "":
		categoryID, err := primitive.ObjectIDFromHex(strings.TrimSpace(q.CategoryID))
		if err != nil {
			return nil, apperror.InvalidArgument("invalid category_id")
		}
		filter.CategoryID = &categoryID
	case strings.TrimSpace(q.Category) != "":
		categoryID, found, err := s.categories.ResolveCategoryName(ctx, strings.TrimSpace(q.Category))
		if err != nil {
			return nil, err
		}
		if !found {
			return page, nil
		}
		filter.CategoryID = &categoryID
	}

	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	refs := make([]*models.Product, 0, len(products))
	for i := range products {
		refs = append(refs, &products[i])
	}
	if err := s.withCategoryNames(ctx, refs); err != nil {
		return nil, err
	}

	page.Items = products
	page.Total = total
	return page, nil
}

// Colors is the color projection of a visible product.
func (s *ProductService) Colors(ctx context.Context, id primitive.ObjectID) ([]models.ColorVariant, error) {
	product, err := s.Get(ctx, ScopePublic, id)
	if err != nil {
		return nil, err
	}
	if product.Colors == nil {
		return []models.ColorVariant{}, nil
	}
	return product.Colors, nil
}

// Sizes is the size projection of a visible product.
func (s *ProductService) Sizes(ctx context.Context, id primitive.ObjectID) ([]string, error) {
	product, err := s.Get(ctx, ScopePublic, id)
	if err != nil {
		return nil, err
	}
	if product.Sizes == nil {
		return []string{}, nil
	}
	return product.Sizes, nil
}

/* =========================
   HELPERS
========================= */

// resolveCategory accepts a category id or, failing that, a category name.
// Both blank means no category.
func (s *ProductService) resolveCategory(ctx context.Context, rawID, name string) (*primitive.ObjectID, error) {
	rawID = strings.TrimSpace(rawID)
	name = strings.TrimSpace(name)

	if rawID != "" {
		id, err := primitive.ObjectIDFromHex(rawID)
		if err != nil {
			return nil, apperror.Validation("category_id is invalid")
		}
		if _, err := s.categories.Get(ctx, id, false); err != nil {
			return nil, err
		}
		return &id, nil
	}
	if name == "" {
		return nil, nil
	}

	id, found, err := s.categories.ResolveCategoryName(ctx, name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperror.NotFound("category not found").WithDetail("category", name)
	}
	return &id, nil
}

func (s *ProductService) checkImageURL(imageURL string) error {
	if imageURL == "" || s.images.Owns(imageURL) {
		return nil
	}
	return apperror.Validation("image_url must point to the product image bucket")
}

func (s *ProductService) cleanupImage(ctx context.Context, imageURL string) {
	if err := s.images.Delete(ctx, imageURL); err != nil {
		log.Printf("[PRODUCT] [WARN] image cleanup failed for %s: %v", sanitizeLogValue(imageURL, 120), err)
		s.metrics.RecordImageCleanupFailure(ctx)
	}
}

func (s *ProductService) withCategoryNames(ctx context.Context, products []*models.Product) error {
	ids := make([]primitive.ObjectID, 0, len(products))
	for _, p := range products {
		if p.CategoryID != nil {
			ids = append(ids, *p.CategoryID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	names, err := s.categories.NamesByID(ctx, ids)
	if err != nil {
		return err
	}
	for _, p := range products {
		if p.CategoryID != nil {
			p.CategoryName = names[*p.CategoryID]
		}
	}
	return nil
}

func normalizeSizes(sizes []string) []string {
	out := make([]string, 0, len(sizes))
	seen := make(map[string]bool, len(sizes))
	for _, size := range sizes {
		size = strings.TrimSpace(size)
		if size == "" || seen[size] {
			continue
		}
		seen[size] = true
		out = append(out, size)
	}
	return out
}

func trimSpecs(specs models.Specs) models.Specs {
	return models.Specs{
		Material: strings.TrimSpace(specs.Material),
		Weight:   strings.TrimSpace(specs.Weight),
		Origin:   strings.TrimSpace(specs.Origin),
	}
}

func defaultString(value, fallback string) string {
	if value = strings.TrimSpace(value); value == "" {
		return fallback
	}
	return value
}

func sanitizeLogValue(value string, max int) string {
	trimmed := strings.TrimSpace(value)
	if max <= 0 {
		max = 80
	}
	if len(trimmed) <= max {
		return trimmed
	}
	return trimmed[:max] + "..."
}

func mapKeys(input map[string]interface{}) []string {
	keys := make([]string, 0, len(input))
	for key := range input {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
