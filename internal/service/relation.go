package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/0xfdc/foodgram/internal/models"
	"github.com/0xfdc/foodgram/internal/types"
)

// RelationService manages the uniqueness-constrained join rows between a
// user and a target: favorites and shopping-cart entries (target = recipe)
// and subscriptions (target = user). Adding an existing pair is a conflict;
// removing a missing pair is not-found, and repeatably so.
type RelationService struct {
	db *gorm.DB
}

func NewRelationService(db *gorm.DB) *RelationService {
	return &RelationService{db: db}
}

func (s *RelationService) recipeMinified(ctx context.Context, recipeID uuid.UUID) (*types.RecipeMinified, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &types.RecipeMinified{
		ID:          recipe.ID,
		Name:        recipe.Name,
		Image:       recipe.ImageURL,
		CookingTime: recipe.CookingTime,
	}, nil
}

// createRow inserts a relation row, translating a duplicate-pair insert
// into ErrConflict. The unique index is the authority; no pre-check races.
func (s *RelationService) createRow(ctx context.Context, row any) error {
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *RelationService) removeRecipeRow(ctx context.Context, model any, userID, recipeID uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RelationService) AddFavorite(ctx context.Context, userID, recipeID uuid.UUID) (*types.RecipeMinified, error) {
	view, err := s.recipeMinified(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if err := s.createRow(ctx, &models.Favorite{UserID: userID, RecipeID: recipeID}); err != nil {
		return nil, err
	}
	return view, nil
}

func (s *RelationService) RemoveFavorite(ctx context.Context, userID, recipeID uuid.UUID) error {
	return s.removeRecipeRow(ctx, &models.Favorite{}, userID, recipeID)
}

func (s *RelationService) AddToCart(ctx context.Context, userID, recipeID uuid.UUID) (*types.RecipeMinified, error) {
	view, err := s.recipeMinified(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if err := s.createRow(ctx, &models.ShoppingCart{UserID: userID, RecipeID: recipeID}); err != nil {
		return nil, err
	}
	return view, nil
}

func (s *RelationService) RemoveFromCart(ctx context.Context, userID, recipeID uuid.UUID) error {
	return s.removeRecipeRow(ctx, &models.ShoppingCart{}, userID, recipeID)
}

// Subscribe follows another user. Following yourself or someone you already
// follow is a conflict; an unknown target is not-found.
func (s *RelationService) Subscribe(ctx context.Context, userID, targetID uuid.UUID, recipesLimit int) (*types.SubscriptionView, error) {
	if userID == targetID {
		return nil, ErrConflict
	}
	var target models.User
	if err := s.db.WithContext(ctx).First(&target, "id = ?", targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.createRow(ctx, &models.Subscription{UserID: userID, TargetID: targetID}); err != nil {
		return nil, err
	}
	return s.subscriptionView(ctx, &target, recipesLimit)
}

func (s *RelationService) Unsubscribe(ctx context.Context, userID, targetID uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND target_id = ?", userID, targetID).
		Delete(&models.Subscription{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSubscriptions returns the expanded views of every user the given user
// follows, ordered by the followed user's username.
func (s *RelationService) ListSubscriptions(ctx context.Context, userID uuid.UUID, recipesLimit int) ([]types.SubscriptionView, error) {
	var targets []models.User
	err := s.db.WithContext(ctx).
		Joins("JOIN subscriptions ON subscriptions.target_id = users.id").
		Where("subscriptions.user_id = ?", userID).
		Order("users.username").
		Find(&targets).Error
	if err != nil {
		return nil, err
	}

	views := make([]types.SubscriptionView, 0, len(targets))
	for i := range targets {
		view, err := s.subscriptionView(ctx, &targets[i], recipesLimit)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

func (s *RelationService) subscriptionView(ctx context.Context, target *models.User, recipesLimit int) (*types.SubscriptionView, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Recipe{}).
		Where("author_id = ?", target.ID).Count(&count).Error; err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).
		Where("author_id = ?", target.ID).
		Order("name")
	if recipesLimit > 0 {
		query = query.Limit(recipesLimit)
	}
	var recipes []models.Recipe
	if err := query.Find(&recipes).Error; err != nil {
		return nil, err
	}

	minified := make([]types.RecipeMinified, len(recipes))
	for i, r := range recipes {
		minified[i] = types.RecipeMinified{
			ID:          r.ID,
			Name:        r.Name,
			Image:       r.ImageURL,
			CookingTime: r.CookingTime,
		}
	}

	return &types.SubscriptionView{
		UserView: types.UserView{
			Email:        target.Email,
			ID:           target.ID,
			Username:     target.Username,
			FirstName:    target.FirstName,
			LastName:     target.LastName,
			IsSubscribed: true,
			Avatar:       target.AvatarURL,
		},
		Recipes:      minified,
		RecipesCount: count,
	}, nil
}
