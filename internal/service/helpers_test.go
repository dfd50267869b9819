package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/0xfdc/foodgram/internal/models"
	"github.com/0xfdc/foodgram/internal/testhelpers"
	"github.com/0xfdc/foodgram/internal/types"
)

// fakeImageStore keeps uploads out of tests; it only echoes a URL back.
type fakeImageStore struct {
	uploads int
}

func (f *fakeImageStore) Upload(ctx context.Context, data []byte, key, contentType string) (string, error) {
	f.uploads++
	return "https://img.test/" + key, nil
}

func newTestImages() *ImageService {
	return NewImageService(&fakeImageStore{})
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testhelpers.SetupTestDatabase(t)
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := models.User{
		Email:        username + "@example.com",
		Username:     username,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: "x",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return &user
}

func createTag(t *testing.T, db *gorm.DB, name string) *models.Tag {
	t.Helper()
	tag := models.Tag{Name: name, Slug: name}
	if err := db.Create(&tag).Error; err != nil {
		t.Fatalf("failed to create tag %s: %v", name, err)
	}
	return &tag
}

func createIngredient(t *testing.T, db *gorm.DB, name, unit string) *models.Ingredient {
	t.Helper()
	ingredient := models.Ingredient{Name: name, MeasurementUnit: unit}
	if err := db.Create(&ingredient).Error; err != nil {
		t.Fatalf("failed to create ingredient %s: %v", name, err)
	}
	return &ingredient
}

// validRecipeRequest builds a minimal valid request over fresh reference data.
func validRecipeRequest(t *testing.T, db *gorm.DB, name string) types.RecipeRequest {
	t.Helper()
	tag := createTag(t, db, "tag-"+name)
	ingredient := createIngredient(t, db, "ingredient-"+name, "g")
	return types.RecipeRequest{
		Name:        name,
		Text:        fmt.Sprintf("How to cook %s", name),
		CookingTime: 10,
		Tags:        []uuid.UUID{tag.ID},
		Ingredients: []types.IngredientAmount{{ID: ingredient.ID, Amount: 100}},
	}
}
