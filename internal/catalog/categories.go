package catalog

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/apperror"
	"storefront/internal/models"
	"storefront/internal/validation"
)

type CategoryRepository interface {
	Insert(ctx context.Context, category *models.Category) error
	InsertMany(ctx context.Context, categories []models.Category) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error)
	FindIDsByName(ctx context.Context, names []string) (map[string]primitive.ObjectID, error)
	NamesByID(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error)
	List(ctx context.Context, activeOnly bool) ([]models.Category, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Category, error)
}

type CategoryInput struct {
	Name        string `json:"name" yaml:"name" binding:"required"`
	Description string `json:"description" yaml:"description"`
	IsActive    *bool  `json:"is_active" yaml:"is_active"`
}

type CategoryPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

type CategoryService struct {
	repo CategoryRepository
	now  func() time.Time
}

func NewCategoryService(repo CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo, now: time.Now}
}

func (s *CategoryService) List(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	return s.repo.List(ctx, activeOnly)
}

// Get returns the category; with activeOnly a deactivated one is not found.
func (s *CategoryService) Get(ctx context.Context, id primitive.ObjectID, activeOnly bool) (*models.Category, error) {
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if activeOnly && !category.IsActive {
		return nil, apperror.NotFound("category not found")
	}
	return category, nil
}

func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (*models.Category, error) {
	category, err := s.build(in)
	if err != nil {
		return nil, err
	}
	if err := checkNamesFree(ctx, s.repo, "category", []string{category.Name}); err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, &category); err != nil {
		return nil, err
	}
	log.Println("[CATEGORY] [INFO] created:", category.Name)
	return &category, nil
}

// CreateMany stores all categories or none.
func (s *CategoryService) CreateMany(ctx context.Context, inputs []CategoryInput) ([]models.Category, error) {
	if len(inputs) == 0 {
		return nil, apperror.Validation("at least one category is required")
	}

	categories := make([]models.Category, 0, len(inputs))
	names := make([]string, 0, len(inputs))
	for i, in := range inputs {
		category, err := s.build(in)
		if err != nil {
			if appErr, ok := apperror.As(err); ok {
				return nil, appErr.WithDetail("index", i)
			}
			return nil, err
		}
		categories = append(categories, category)
		names = append(names, category.Name)
	}

	if err := checkBatchNames("category", names); err != nil {
		return nil, err
	}
	if err := checkNamesFree(ctx, s.repo, "category", names); err != nil {
		return nil, err
	}
	if err := s.repo.InsertMany(ctx, categories); err != nil {
		return nil, err
	}
	log.Printf("[CATEGORY] [INFO] bulk created %d categories", len(categories))
	return categories, nil
}

func (s *CategoryService) Update(ctx context.Context, id primitive.ObjectID, patch CategoryPatch) (*models.Category, error) {
	updateSet := bson.M{}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperror.Validation("name cannot be empty")
		}
		taken, err := s.repo.FindIDsByName(ctx, []string{name})
		if err != nil {
			return nil, err
		}
		if other, ok := taken[name]; ok && other != id {
			return nil, apperror.Conflict("category already exists").WithDetail("name", name)
		}
		updateSet["name"] = name
	}
	if patch.Description != nil {
		updateSet["description"] = strings.TrimSpace(*patch.Description)
	}
	if patch.IsActive != nil {
		updateSet["is_active"] = *patch.IsActive
	}
	if len(updateSet) == 0 {
		return nil, apperror.Validation("no fields to update")
	}

	updated, err := s.repo.Update(ctx, id, updateSet)
	if err != nil {
		return nil, err
	}
	log.Printf("[CATEGORY] [INFO] updated %s fields=%v", id.Hex(), mapKeys(updateSet))
	return updated, nil
}

// Deactivate hides the category from public listings. Products keep their
// reference to it.
func (s *CategoryService) Deactivate(ctx context.Context, id primitive.ObjectID) (*models.Category, error) {
	updated, err := s.repo.Update(ctx, id, bson.M{"is_active": false})
	if err != nil {
		return nil, err
	}
	log.Println("[CATEGORY] [INFO] deactivated:", updated.Name)
	return updated, nil
}

// ResolveCategoryName looks a category up by its exact, case-sensitive name.
// An unknown name is reported through found, not as an error.
func (s *CategoryService) ResolveCategoryName(ctx context.Context, name string) (primitive.ObjectID, bool, error) {
	if name == "" {
		return primitive.NilObjectID, false, nil
	}
	ids, err := s.repo.FindIDsByName(ctx, []string{name})
	if err != nil {
		return primitive.NilObjectID, false, err
	}
	id, found := ids[name]
	return id, found, nil
}

func (s *CategoryService) NamesByID(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	return s.repo.NamesByID(ctx, ids)
}

func (s *CategoryService) build(in CategoryInput) (models.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return models.Category{}, err
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	now := s.now().UTC()
	return models.Category{
		ID:          primitive.NewObjectID(),
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		IsActive:    active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

type nameLookup interface {
	FindIDsByName(ctx context.Context, names []string) (map[string]primitive.ObjectID, error)
}

func checkNamesFree(ctx context.Context, repo nameLookup, what string, names []string) error {
	taken, err := repo.FindIDsByName(ctx, names)
	if err != nil {
		return err
	}
	if len(taken) == 0 {
		return nil
	}
	existing := make([]string, 0, len(taken))
	for name := range taken {
		existing = append(existing, name)
	}
	sort.Strings(existing)
	return apperror.Conflict(what + " already exists: " + strings.Join(existing, ", ")).
		WithDetail("names", existing)
}

func checkBatchNames(what string, names []string) error {
	seen := make(map[string]bool, len(names))
	var repeated []string
	for _, name := range names {
		if seen[name] {
			repeated = append(repeated, name)
		}
		seen[name] = true
	}
	if len(repeated) > 0 {
		return apperror.Conflict("duplicate " + what + " names in request").WithDetail("names", repeated)
	}
	return nil
}
