package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/0xfdc/foodgram/internal/api"
	"github.com/0xfdc/foodgram/internal/middleware"
	"github.com/0xfdc/foodgram/internal/models"
	"github.com/0xfdc/foodgram/internal/router"
	"github.com/0xfdc/foodgram/internal/service"
	"github.com/0xfdc/foodgram/internal/testhelpers"
)

type testEnv struct {
	db     *gorm.DB
	engine *gin.Engine
}

type nullImageStore struct{}

func (nullImageStore) Upload(ctx context.Context, data []byte, key, contentType string) (string, error) {
	return "https://img.test/" + key, nil
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testhelpers.SetupTestDatabase(t)
	images := service.NewImageService(nullImageStore{})

	auth := service.NewAuthService(db, "test-secret")
	users := service.NewUserService(db, images)
	catalog := service.NewCatalogService(db)
	recipes := service.NewRecipeService(db, images, zap.NewNop())
	relations := service.NewRelationService(db)
	shoppingList := service.NewShoppingListService(db)
	shortLinks := service.NewShortLinkService(db, nil, "http://localhost:8080")

	engine := router.SetupRouter(
		router.Handlers{
			Auth:      api.NewAuthHandler(auth),
			User:      api.NewUserHandler(users, relations),
			Catalog:   api.NewCatalogHandler(catalog),
			Recipe:    api.NewRecipeHandler(recipes, relations, shoppingList, shortLinks),
			ShortLink: api.NewShortLinkHandler(shortLinks),
		},
		auth,
		middleware.NewRecipeWriteRateLimiter(nil),
		zap.NewNop(),
		db,
		nil,
	)
	return &testEnv{db: db, engine: engine}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

// registerAndLogin creates an account through the API and returns its token.
func (e *testEnv) registerAndLogin(t *testing.T, username string) string {
	t.Helper()
	rec := e.request(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":      username + "@example.com",
		"username":   username,
		"first_name": "Test",
		"last_name":  "User",
		"password":   "correct-horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.request(t, http.MethodPost, "/api/auth/token/login", "", gin.H{
		"email":    username + "@example.com",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		AuthToken string `json:"auth_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AuthToken)
	return resp.AuthToken
}

func (e *testEnv) seedTag(t *testing.T, name string) *models.Tag {
	t.Helper()
	tag := models.Tag{Name: name, Slug: name}
	require.NoError(t, e.db.Create(&tag).Error)
	return &tag
}

func (e *testEnv) seedIngredient(t *testing.T, name, unit string) *models.Ingredient {
	t.Helper()
	ingredient := models.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, e.db.Create(&ingredient).Error)
	return &ingredient
}

// createRecipe posts a minimal valid recipe and returns its id.
func (e *testEnv) createRecipe(t *testing.T, token, name string) string {
	t.Helper()
	tag := e.seedTag(t, "tag-"+name)
	ingredient := e.seedIngredient(t, "ingredient-"+name, "g")

	rec := e.request(t, http.MethodPost, "/api/recipes", token, gin.H{
		"name":         name,
		"text":         fmt.Sprintf("How to cook %s", name),
		"cooking_time": 10,
		"tags":         []string{tag.ID.String()},
		"ingredients":  []gin.H{{"id": ingredient.ID.String(), "amount": 100}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.ID
}
