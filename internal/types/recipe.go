package types

import (
	"time"

	"github.com/google/uuid"
)

// TagView mirrors the stored tag; tags are read-only over the API.
type TagView struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// IngredientLine is one resolved ingredient row of a recipe view.
type IngredientLine struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	MeasurementUnit string    `json:"measurement_unit"`
	Amount          int       `json:"amount"`
}

// RecipeView is the full read view of a recipe. IsFavorited and
// IsInShoppingCart are computed against the requesting viewer and are false
// for anonymous viewers.
type RecipeView struct {
	ID               uuid.UUID        `json:"id"`
	Tags             []TagView        `json:"tags"`
	Author           UserView         `json:"author"`
	Ingredients      []IngredientLine `json:"ingredients"`
	IsFavorited      bool             `json:"is_favorited"`
	IsInShoppingCart bool             `json:"is_in_shopping_cart"`
	Name             string           `json:"name"`
	Image            string           `json:"image"`
	Text             string           `json:"text"`
	CookingTime      int              `json:"cooking_time"`
	PubDate          time.Time        `json:"pub_date"`
}

// RecipeMinified is the reduced projection used in favorite/cart responses
// and inside subscription views.
type RecipeMinified struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Image       string    `json:"image"`
	CookingTime int       `json:"cooking_time"`
}
