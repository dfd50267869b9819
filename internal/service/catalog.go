package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/0xfdc/foodgram/internal/models"
)

// Scope narrows a list query (filter, ordering).
type Scope func(*gorm.DB) *gorm.DB

// ReadRepo is a read-only repository shared by the reference-data entities.
// Tags and ingredients expose the same list/get surface, so one generic
// implementation serves both.
type ReadRepo[T any] struct {
	db *gorm.DB
}

func NewReadRepo[T any](db *gorm.DB) *ReadRepo[T] {
	return &ReadRepo[T]{db: db}
}

func (r *ReadRepo[T]) List(ctx context.Context, scopes ...Scope) ([]T, error) {
	query := r.db.WithContext(ctx)
	for _, scope := range scopes {
		query = scope(query)
	}
	var items []T
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *ReadRepo[T]) Get(ctx context.Context, id uuid.UUID) (*T, error) {
	var item T
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func orderByName(db *gorm.DB) *gorm.DB {
	return db.Order("name")
}

// namePrefix matches names starting with the given prefix, case-insensitive.
func namePrefix(prefix string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("LOWER(name) LIKE ?", strings.ToLower(prefix)+"%")
	}
}

// CatalogService serves the Tag and Ingredient reference data.
type CatalogService struct {
	tags        *ReadRepo[models.Tag]
	ingredients *ReadRepo[models.Ingredient]
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{
		tags:        NewReadRepo[models.Tag](db),
		ingredients: NewReadRepo[models.Ingredient](db),
	}
}

func (s *CatalogService) ListTags(ctx context.Context) ([]models.Tag, error) {
	return s.tags.List(ctx, orderByName)
}

func (s *CatalogService) GetTag(ctx context.Context, id uuid.UUID) (*models.Tag, error) {
	return s.tags.Get(ctx, id)
}

// ListIngredients lists ingredients ordered by name, optionally narrowed to
// those whose name starts with the given prefix.
func (s *CatalogService) ListIngredients(ctx context.Context, prefix string) ([]models.Ingredient, error) {
	scopes := []Scope{orderByName}
	if prefix != "" {
		scopes = append(scopes, namePrefix(prefix))
	}
	return s.ingredients.List(ctx, scopes...)
}

func (s *CatalogService) GetIngredient(ctx context.Context, id uuid.UUID) (*models.Ingredient, error) {
	return s.ingredients.Get(ctx, id)
}
