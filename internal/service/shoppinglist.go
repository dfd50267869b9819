package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/0xfdc/foodgram/internal/models"
)

// ShoppingListService renders a user's cart as a printable shopping list,
// merging repeated ingredients across recipes.
type ShoppingListService struct {
	db *gorm.DB
}

func NewShoppingListService(db *gorm.DB) *ShoppingListService {
	return &ShoppingListService{db: db}
}

type mergeKey struct {
	name string
	unit string
}

// Generate walks the user's cart, resolves each recipe's ingredient lines
// and merges them by (name, unit), summing amounts. Lines appear in
// first-seen order. An empty cart yields an empty document, not an error.
func (s *ShoppingListService) Generate(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	var carts []models.ShoppingCart
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at").
		Preload("Recipe.Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Recipe.Ingredients.Ingredient").
		Find(&carts).Error
	if err != nil {
		return nil, err
	}

	totals := make(map[mergeKey]int)
	var order []mergeKey
	for _, cart := range carts {
		for _, line := range cart.Recipe.Ingredients {
			key := mergeKey{name: line.Ingredient.Name, unit: line.Ingredient.MeasurementUnit}
			if _, seen := totals[key]; !seen {
				order = append(order, key)
			}
			totals[key] += line.Amount
		}
	}

	var doc bytes.Buffer
	for _, key := range order {
		fmt.Fprintf(&doc, "%s - %d %s\n", key.name, totals[key], key.unit)
	}
	return doc.Bytes(), nil
}
