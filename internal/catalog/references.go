package catalog

import (
	"context"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/apperror"
	"storefront/internal/models"
	"storefront/internal/validation"
)

type ReferenceRepository interface {
	Insert(ctx context.Context, ref *models.Reference) error
	InsertMany(ctx context.Context, refs []models.Reference) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Reference, error)
	FindIDsByName(ctx context.Context, names []string) (map[string]primitive.ObjectID, error)
	List(ctx context.Context) ([]models.Reference, error)
}

type ReferenceInput struct {
	Name        string `json:"name" yaml:"name" binding:"required"`
	Description string `json:"description" yaml:"description"`
}

// ReferenceService serves the size or the color catalog.
type ReferenceService struct {
	kind models.ReferenceKind
	repo ReferenceRepository
	now  func() time.Time
}

func NewReferenceService(kind models.ReferenceKind, repo ReferenceRepository) *ReferenceService {
	return &ReferenceService{kind: kind, repo: repo, now: time.Now}
}

func (s *ReferenceService) Kind() models.ReferenceKind {
	return s.kind
}

func (s *ReferenceService) List(ctx context.Context) ([]models.Reference, error) {
	return s.repo.List(ctx)
}

func (s *ReferenceService) Get(ctx context.Context, id primitive.ObjectID) (*models.Reference, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *ReferenceService) Create(ctx context.Context, in ReferenceInput) (*models.Reference, error) {
	ref, err := s.build(in)
	if err != nil {
		return nil, err
	}
	if err := checkNamesFree(ctx, s.repo, s.entity(), []string{ref.Name}); err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, &ref); err != nil {
		return nil, err
	}
	log.Printf("[%s] [INFO] created: %s", s.logArea(), ref.Name)
	return &ref, nil
}

// CreateMany stores all entries or none.
func (s *ReferenceService) CreateMany(ctx context.Context, inputs []ReferenceInput) ([]models.Reference, error) {
	if len(inputs) == 0 {
		return nil, apperror.Validation("at least one " + s.entity() + " is required")
	}

	refs := make([]models.Reference, 0, len(inputs))
	names := make([]string, 0, len(inputs))
	for i, in := range inputs {
		ref, err := s.build(in)
		if err != nil {
			if appErr, ok := apperror.As(err); ok {
				return nil, appErr.WithDetail("index", i)
			}
			return nil, err
		}
		refs = append(refs, ref)
		names = append(names, ref.Name)
	}

	if err := checkBatchNames(s.entity(), names); err != nil {
		return nil, err
	}
	if err := checkNamesFree(ctx, s.repo, s.entity(), names); err != nil {
		return nil, err
	}
	if err := s.repo.InsertMany(ctx, refs); err != nil {
		return nil, err
	}
	log.Printf("[%s] [INFO] bulk created %d entries", s.logArea(), len(refs))
	return refs, nil
}

func (s *ReferenceService) build(in ReferenceInput) (models.Reference, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return models.Reference{}, err
	}
	if s.kind == models.ReferenceSizes && !models.IsSizeName(in.Name) {
		return models.Reference{}, apperror.Validation("size must be one of: " + strings.Join(models.SizeNames, ", ")).
			WithDetail("name", in.Name)
	}
	return models.Reference{
		ID:          primitive.NewObjectID(),
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   s.now().UTC(),
	}, nil
}

func (s *ReferenceService) entity() string {
	if s.kind == models.ReferenceSizes {
		return "size"
	}
	return "color"
}

func (s *ReferenceService) logArea() string {
	return strings.ToUpper(string(s.kind))
}
