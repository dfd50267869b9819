package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/0xfdc/foodgram/internal/models"
	"github.com/0xfdc/foodgram/internal/types"
)

func newRecipeService(db *gorm.DB) *RecipeService {
	return NewRecipeService(db, newTestImages(), zap.NewNop())
}

func TestCreateRecipe(t *testing.T) {
	db := setupDB(t)
	svc := newRecipeService(db)
	ctx := context.Background()

	author := createUser(t, db, "author")
	req := validRecipeRequest(t, db, "borscht")

	view, err := svc.Create(ctx, author.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "borscht", view.Name)
	assert.Equal(t, author.Username, view.Author.Username)
	assert.False(t, view.Author.IsSubscribed)
	assert.False(t, view.IsFavorited)
	require.Len(t, view.Ingredients, 1)
	assert.Equal(t, 100, view.Ingredients[0].Amount)
	assert.False(t, view.PubDate.IsZero())

	var stored models.Recipe
	require.NoError(t, db.First(&stored, "id = ?", view.ID).Error)
	assert.Len(t, stored.Hash, models.HashLength)
}

func TestCreateRecipeValidation(t *testing.T) {
	db := setupDB(t)
	svc := newRecipeService(db)
	ctx := context.Background()

	author := createUser(t, db, "author")
	tag := createTag(t, db, "soup")
	ingredient := createIngredient(t, db, "beet", "g")

	valid := types.RecipeRequest{
		Name:        "borscht",
		Text:        "cook it",
		CookingTime: 60,
		Tags:        []uuid.UUID{tag.ID},
		Ingredients: []types.IngredientAmount{{ID: ingredient.ID, Amount: 3}},
	}

	tests := []struct {
		name   string
		mutate func(*types.RecipeRequest)
		field  string
	}{
		{"empty name", func(r *types.RecipeRequest) { r.Name = "" }, "name"},
		{"empty text", func(r *types.RecipeRequest) { r.Text = "" }, "text"},
		{"zero cooking time", func(r *types.RecipeRequest) { r.CookingTime = 0 }, "cooking_time"},
		{"cooking time too large", func(r *types.RecipeRequest) { r.CookingTime = 40000 }, "cooking_time"},
		{"no tags", func(r *types.RecipeRequest) { r.Tags = nil }, "tags"},
		{"repeated tags", func(r *types.RecipeRequest) { r.Tags = []uuid.UUID{tag.ID, tag.ID} }, "tags"},
		{"no ingredients", func(r *types.RecipeRequest) { r.Ingredients = nil }, "ingredients"},
		{"repeated ingredients", func(r *types.RecipeRequest) {
			r.Ingredients = []types.IngredientAmount{
				{ID: ingredient.ID, Amount: 1},
				{ID: ingredient.ID, Amount: 2},
			}
		}, "ingredients"},
		{"zero amount", func(r *types.RecipeRequest) {
			r.Ingredients = []types.IngredientAmount{{ID: ingredient.ID, Amount: 0}}
		}, "amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := svc.Create(ctx, author.ID, req)
			require.Error(t, err)
			ve, ok := AsValidation(err)
			require.True(t, ok, "expected a validation error, got %v", err)
			assert.Equal(t, tt.field, ve.Fields[0].Field)
		})
	}
}

func TestCreateRecipeCollectsAllViolations(t *testing.T) {
	db := setupDB(t)
	svc := newRecipeService(db)

	author := createUser(t, db, "author")
	_, err := svc.Create(context.Background(), author.ID, types.RecipeRequest{})
	require.Error(t, err)
	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(ve.Fields), 4)
}

func TestCreateRecipeUnknownRefs(t *testing.T) {
	db := setupDB(t)
	svc := newRecipeService(db)
	ctx := context.Background()

	author := createUser(t, db, "author")
	tag := createTag(t, db, "soup")
	ingredient := createIngredient(t, db, "beet", "g")

	req := types.RecipeRequest{
		Name: "x", Text: "y", CookingTime: 5,
		Tags:        []uuid.UUID{uuid.New()},
		Ingredients: []types.IngredientAmount{{ID: ingredient.ID, Amount: 1}},
	}
	_, err := svc.Create(ctx, author.ID, req)
	assert.ErrorIs(t, err, ErrNotFound)

	req.Tags = []uuid.UUID{tag.ID}
	req.Ingredients = []types.IngredientAmount{{ID: uuid.New(), Amount: 1}}
	_, err = svc.Create(ctx, author.ID, req)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIngredientsKeepStoredOrder(t *testing.T) {
	db := setupDB(t)
	svc := newRecipeService(db)
	ctx := context.Background()

	author := createUser(t, db, "author")
	tag := createTag(t, db, "soup")
	// Names deliberately in reverse alphabetical order.
	first := createIngredient(t, db, "zucchini", "g")
	second := createIngredient(t, db, "apple", "g")

	view, err := svc.Create(ctx, author.ID, types.RecipeRequest{
		Name: "salad", Text: "mix", CookingTime: 5,
		Tags: []uuid.UUID{tag.ID},
		Ingredients: []types.IngredientAmount{
			{ID: first.ID, Amount: 1},
			{ID: second.ID, Amount: 2},
		},
	})
	require.NoError(t, err)
	require.Len(t, view.Ingredients, 2)
	assert.Equal(t, "zucchini", view.Ingredients[0].Name)
	assert.Equal(t, "apple", view.Ingredients[1].Name)
}

func TestUpdateRecipeReplacesWholesale(t *testing.T) {
	db := setupDB(t)
	svc := newRecipeService(db)
	ctx := context.Background()

	author := createUser(t, db, "author")
	view, err := svc.Create(ctx, author.ID, validRecipeRequest(t, db, "original"))
	require.NoError(t, err)

	var before models.Recipe
	require.NoError(t, db.First(&before, "id = ?", view.ID).Error)

	newTag := createTag(t, db, "new-tag")
	newIngredient := createIngredient(t, db, "pepper", "g")

	updated, err := svc.Update(ctx, view.ID, author.ID, types.RecipeRequest{
		Name: "updated", Text: "new text", CookingTime: 30,
		Tags:        []uuid.UUID{newTag.ID},
		Ingredients: []types.IngredientAmount{{ID: newIngredient.ID, Amount: 7}},
	})
	require.NoError(t, err)
	assert.Equal(t, "updated", updated.Name)
	assert.Equal(t, 30, updated.CookingTime)
	require.Len(t, updated.Tags, 1)
	assert.Equal(t, "new-tag", updated.Tags[0].Name)
	require.Len(t, updated.Ingredients, 1)
	assert.Equal(t, "pepper", updated.Ingredients[0].Name)
	assert.Equal(t, 7, updated.Ingredients[0].Amount)

	// Old join rows are gone, not orphaned.
	var count int64
	require.NoError(t, db.Model(&models.RecipeIngredient{}).
		Where("recipe_id = ?", view.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// Hash and pub date survive the update.
	var after models.Recipe
	require.NoError(t, db.First(&after, "id = ?", view.ID).Error)
	assert.Equal(t, before.Hash, after.Hash)
	assert.Equal(t, before.PubDate.Unix(), after.PubDate.Unix())
}

func TestUpdateRecipeAuthorization(t *testing.T) {
	db := setupDB(t)
	svc := newRecipeService(db)
	ctx := context.Background()

	author := createUser(t, db, "author")
	stranger := createUser(t, db, "stranger")
	view, err := svc.Create(ctx, author.ID, validRecipeRequest(t, db, "mine"))
	require.NoError(t, err)

	req := validRecipeRequest(t, db, "theirs")
	_, err = svc.Update(ctx, view.ID, stranger.ID, req)
	assert.ErrorIs(t, err, ErrForbidden)

	err = svc.Delete(ctx, view.ID, stranger.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAdminCanDeleteAnyRecipe(t *testing.T) {
	db := setupDB(t)
	svc := newRecipeService(db)
	ctx := context.Background()

	author := createUser(t, db, "author")
	admin := createUser(t, db, "admin")
	require.NoError(t, db.Model(admin).Update("is_admin", true).Error)

	view, err := svc.Create(ctx, author.ID, validRecipeRequest(t, db, "target"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, view.ID, admin.ID))

	_, err = svc.Get(ctx, view.ID, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRecipeRemovesRelations(t *testing.T) {
	db := setupDB(t)
	svc := newRecipeService(db)
	relations := NewRelationService(db)
	ctx := context.Background()

	author := createUser(t, db, "author")
	fan := createUser(t, db, "fan")
	view, err := svc.Create(ctx, author.ID, validRecipeRequest(t, db, "doomed"))
	require.NoError(t, err)

	_, err = relations.AddFavorite(ctx, fan.ID, view.ID)
	require.NoError(t, err)
	_, err = relations.AddToCart(ctx, fan.ID, view.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, view.ID, author.ID))

	var count int64
	require.NoError(t, db.Model(&models.Favorite{}).Where("recipe_id = ?", view.ID).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&models.ShoppingCart{}).Where("recipe_id = ?", view.ID).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&models.RecipeIngredient{}).Where("recipe_id = ?", view.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestListRecipesFilters(t *testing.T) {
	db := setupDB(t)
	svc := newRecipeService(db)
	relations := NewRelationService(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	soup := createTag(t, db, "soup")
	salad := createTag(t, db, "salad")
	beet := createIngredient(t, db, "beet", "g")

	mk := func(author uuid.UUID, name string, tag uuid.UUID) *types.RecipeView {
		view, err := svc.Create(ctx, author, types.RecipeRequest{
			Name: name, Text: "t", CookingTime: 5,
			Tags:        []uuid.UUID{tag},
			Ingredients: []types.IngredientAmount{{ID: beet.ID, Amount: 1}},
		})
		require.NoError(t, err)
		return view
	}

	borscht := mk(alice.ID, "borscht", soup.ID)
	mk(alice.ID, "coleslaw", salad.ID)
	mk(bob.ID, "gazpacho", soup.ID)

	// By author.
	views, total, err := svc.List(ctx, RecipeFilter{AuthorID: &alice.ID}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, views, 2)

	// By tag slug, OR within the filter.
	views, total, err = svc.List(ctx, RecipeFilter{TagSlugs: []string{"soup"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	views, total, err = svc.List(ctx, RecipeFilter{TagSlugs: []string{"soup", "salad"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	// Author AND tag.
	views, total, err = svc.List(ctx, RecipeFilter{AuthorID: &alice.ID, TagSlugs: []string{"soup"}}, nil)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, "borscht", views[0].Name)

	// Favorited filter needs a viewer.
	favorited := true
	_, _, err = svc.List(ctx, RecipeFilter{IsFavorited: &favorited}, nil)
	assert.ErrorIs(t, err, ErrAuthRequired)

	_, err = relations.AddFavorite(ctx, bob.ID, borscht.ID)
	require.NoError(t, err)

	views, total, err = svc.List(ctx, RecipeFilter{IsFavorited: &favorited}, &bob.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, "borscht", views[0].Name)
	assert.True(t, views[0].IsFavorited)

	notFavorited := false
	_, total, err = svc.List(ctx, RecipeFilter{IsFavorited: &notFavorited}, &bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	// Cart filter behaves the same way.
	inCart := true
	_, _, err = svc.List(ctx, RecipeFilter{IsInShoppingCart: &inCart}, nil)
	assert.ErrorIs(t, err, ErrAuthRequired)
}

func TestListRecipesPagination(t *testing.T) {
	db := setupDB(t)
	svc := newRecipeService(db)
	ctx := context.Background()

	author := createUser(t, db, "author")
	tag := createTag(t, db, "any")
	beet := createIngredient(t, db, "beet", "g")

	names := []string{"apple pie", "banana bread", "carrot cake", "date squares"}
	for _, name := range names {
		_, err := svc.Create(ctx, author.ID, types.RecipeRequest{
			Name: name, Text: "t", CookingTime: 5,
			Tags:        []uuid.UUID{tag.ID},
			Ingredients: []types.IngredientAmount{{ID: beet.ID, Amount: 1}},
		})
		require.NoError(t, err)
	}

	views, total, err := svc.List(ctx, RecipeFilter{Page: 1, Limit: 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, views, 3)
	assert.Equal(t, "apple pie", views[0].Name)

	views, _, err = svc.List(ctx, RecipeFilter{Page: 2, Limit: 3}, nil)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "date squares", views[0].Name)
}
