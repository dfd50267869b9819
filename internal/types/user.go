package types

import "github.com/google/uuid"

// UserView is the author/profile projection embedded in recipe views and
// returned by the user endpoints. IsSubscribed is viewer-relative and false
// for anonymous viewers.
type UserView struct {
	Email        string    `json:"email"`
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	IsSubscribed bool      `json:"is_subscribed"`
	Avatar       string    `json:"avatar"`
}

// SubscriptionView is the expanded projection returned when subscribing and
// when listing subscriptions: the target user plus their recipe count and a
// capped list of their recipes.
type SubscriptionView struct {
	UserView
	Recipes      []RecipeMinified `json:"recipes"`
	RecipesCount int64            `json:"recipes_count"`
}
