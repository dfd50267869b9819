package service

import (
	"context"
	"errors"
	"math/rand"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/0xfdc/foodgram/internal/models"
	"github.com/0xfdc/foodgram/internal/types"
)

const hashAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// maxHashAttempts caps the collision-retry loop. At 52^5 tokens a collision
// streak this long means something is badly wrong, not bad luck.
const maxHashAttempts = 10

// RecipeFilter narrows the recipe listing. The boolean filters require an
// authenticated viewer.
type RecipeFilter struct {
	AuthorID         *uuid.UUID
	TagSlugs         []string
	IsFavorited      *bool
	IsInShoppingCart *bool
	Page             int
	Limit            int
}

// RecipeService owns the recipe aggregate: creation and update with
// wholesale tag/ingredient replacement, deletion, and the read views.
type RecipeService struct {
	db     *gorm.DB
	images *ImageService
	logger *zap.Logger
}

func NewRecipeService(db *gorm.DB, images *ImageService, logger *zap.Logger) *RecipeService {
	return &RecipeService{
		db:     db,
		images: images,
		logger: logger,
	}
}

func validateRecipeRequest(req types.RecipeRequest) error {
	ve := &ValidationError{}
	if req.Name == "" {
		ve.add("name", "required")
	}
	if req.Text == "" {
		ve.add("text", "required")
	}
	if req.CookingTime < models.CookingTimeMin || req.CookingTime > models.CookingTimeMax {
		ve.add("cooking_time", "must be between 1 and 32767 minutes")
	}
	if len(req.Tags) == 0 {
		ve.add("tags", "a recipe must have at least one tag")
	}
	seenTags := make(map[uuid.UUID]bool, len(req.Tags))
	for _, id := range req.Tags {
		if seenTags[id] {
			ve.add("tags", "tags must not repeat")
			break
		}
		seenTags[id] = true
	}
	if len(req.Ingredients) == 0 {
		ve.add("ingredients", "a recipe must have at least one ingredient")
	}
	seenIngredients := make(map[uuid.UUID]bool, len(req.Ingredients))
	for _, line := range req.Ingredients {
		if seenIngredients[line.ID] {
			ve.add("ingredients", "ingredients must not repeat")
			break
		}
		seenIngredients[line.ID] = true
		if line.Amount < models.AmountMin || line.Amount > models.AmountMax {
			ve.add("amount", "must be between 1 and 32767")
		}
	}
	return ve.orNil()
}

// resolveRefs loads the referenced tags and ingredients, failing with
// ErrNotFound when any submitted id does not exist.
func (s *RecipeService) resolveRefs(ctx context.Context, req types.RecipeRequest) ([]models.Tag, []models.Ingredient, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Where("id IN ?", req.Tags).Find(&tags).Error; err != nil {
		return nil, nil, err
	}
	if len(tags) != len(req.Tags) {
		return nil, nil, ErrNotFound
	}

	ids := make([]uuid.UUID, len(req.Ingredients))
	for i, line := range req.Ingredients {
		ids[i] = line.ID
	}
	var ingredients []models.Ingredient
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&ingredients).Error; err != nil {
		return nil, nil, err
	}
	if len(ingredients) != len(req.Ingredients) {
		return nil, nil, ErrNotFound
	}
	return tags, ingredients, nil
}

func newShortHash() string {
	b := make([]byte, models.HashLength)
	for i := range b {
		b[i] = hashAlphabet[rand.Intn(len(hashAlphabet))]
	}
	return string(b)
}

// Create validates the request, stores the image, and persists the recipe
// with its tag and ingredient associations in one transaction. The short
// hash is pre-checked for uniqueness, but the unique index on recipes.hash
// is the authoritative guard: a duplicated-key insert gets a fresh hash and
// another attempt.
func (s *RecipeService) Create(ctx context.Context, authorID uuid.UUID, req types.RecipeRequest) (*types.RecipeView, error) {
	if err := validateRecipeRequest(req); err != nil {
		return nil, err
	}
	tags, _, err := s.resolveRefs(ctx, req)
	if err != nil {
		return nil, err
	}

	imageURL := ""
	if req.Image != "" {
		imageURL, err = s.images.SaveRecipeImage(ctx, req.Image)
		if err != nil {
			return nil, err
		}
	}

	recipe := models.Recipe{
		AuthorID:    authorID,
		Name:        req.Name,
		Text:        req.Text,
		CookingTime: req.CookingTime,
		ImageURL:    imageURL,
	}

	for attempt := 1; attempt <= maxHashAttempts; attempt++ {
		recipe.Hash = newShortHash()

		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Recipe{}).
			Where("hash = ?", recipe.Hash).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			continue
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&recipe).Error; err != nil {
				return err
			}
			rows := ingredientRows(recipe.ID, req.Ingredients)
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
			return tx.Model(&recipe).Association("Tags").Append(&tags)
		})
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			s.logger.Warn("short hash collided at insert, retrying",
				zap.String("hash", recipe.Hash), zap.Int("attempt", attempt))
			recipe.ID = uuid.Nil
			continue
		}
		if err != nil {
			return nil, err
		}
		return s.Get(ctx, recipe.ID, &authorID)
	}

	return nil, ErrConflict
}

func ingredientRows(recipeID uuid.UUID, lines []types.IngredientAmount) []models.RecipeIngredient {
	rows := make([]models.RecipeIngredient, len(lines))
	for i, line := range lines {
		rows[i] = models.RecipeIngredient{
			RecipeID:     recipeID,
			IngredientID: line.ID,
			Amount:       line.Amount,
			Position:     i,
		}
	}
	return rows
}

// authorize allows the recipe's author or an administrator.
func (s *RecipeService) authorize(ctx context.Context, recipe *models.Recipe, actorID uuid.UUID) error {
	if recipe.AuthorID == actorID {
		return nil
	}
	var actor models.User
	if err := s.db.WithContext(ctx).First(&actor, "id = ?", actorID).Error; err != nil {
		return ErrForbidden
	}
	if actor.IsAdmin {
		return nil
	}
	return ErrForbidden
}

// Update replaces the recipe's fields and its entire tag set and ingredient
// list atomically. The hash and pub_date never change.
func (s *RecipeService) Update(ctx context.Context, recipeID, actorID uuid.UUID, req types.RecipeRequest) (*types.RecipeView, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.authorize(ctx, &recipe, actorID); err != nil {
		return nil, err
	}
	if err := validateRecipeRequest(req); err != nil {
		return nil, err
	}
	tags, _, err := s.resolveRefs(ctx, req)
	if err != nil {
		return nil, err
	}

	imageURL := recipe.ImageURL
	if req.Image != "" {
		imageURL, err = s.images.SaveRecipeImage(ctx, req.Image)
		if err != nil {
			return nil, err
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"name":         req.Name,
			"text":         req.Text,
			"cooking_time": req.CookingTime,
			"image_url":    imageURL,
		}
		if err := tx.Model(&recipe).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		rows := ingredientRows(recipe.ID, req.Ingredients)
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		return tx.Model(&recipe).Association("Tags").Replace(&tags)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, recipe.ID, &actorID)
}

// Delete removes the recipe and every row referencing it.
func (s *RecipeService) Delete(ctx context.Context, recipeID, actorID uuid.UUID) error {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := s.authorize(ctx, &recipe, actorID); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.Favorite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.ShoppingCart{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&recipe).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(&recipe).Error
	})
}

func (s *RecipeService) preloaded(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name") }).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Ingredients.Ingredient")
}

// Get returns the full read view of one recipe relative to the viewer.
func (s *RecipeService) Get(ctx context.Context, recipeID uuid.UUID, viewerID *uuid.UUID) (*types.RecipeView, error) {
	var recipe models.Recipe
	if err := s.preloaded(ctx).First(&recipe, "id = ?", recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	views, err := s.buildViews(ctx, []models.Recipe{recipe}, viewerID)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// List returns a page of recipe views plus the unpaginated total. Filters
// AND-compose; tag slugs OR-compose within their filter.
func (s *RecipeService) List(ctx context.Context, filter RecipeFilter, viewerID *uuid.UUID) ([]types.RecipeView, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Recipe{})

	if filter.AuthorID != nil {
		query = query.Where("author_id = ?", *filter.AuthorID)
	}
	if len(filter.TagSlugs) > 0 {
		tagged := s.db.Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", filter.TagSlugs)
		query = query.Where("recipes.id IN (?)", tagged)
	}
	if filter.IsFavorited != nil {
		if viewerID == nil {
			return nil, 0, ErrAuthRequired
		}
		sub := s.db.Table("favorites").Select("recipe_id").Where("user_id = ?", *viewerID)
		if *filter.IsFavorited {
			query = query.Where("recipes.id IN (?)", sub)
		} else {
			query = query.Where("recipes.id NOT IN (?)", sub)
		}
	}
	if filter.IsInShoppingCart != nil {
		if viewerID == nil {
			return nil, 0, ErrAuthRequired
		}
		sub := s.db.Table("shopping_carts").Select("recipe_id").Where("user_id = ?", *viewerID)
		if *filter.IsInShoppingCart {
			query = query.Where("recipes.id IN (?)", sub)
		} else {
			query = query.Where("recipes.id NOT IN (?)", sub)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 6
	}

	var recipes []models.Recipe
	err := query.Order("recipes.name").
		Offset((page - 1) * limit).Limit(limit).
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name") }).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Ingredients.Ingredient").
		Find(&recipes).Error
	if err != nil {
		return nil, 0, err
	}

	views, err := s.buildViews(ctx, recipes, viewerID)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// buildViews assembles read views, resolving the viewer-relative flags in
// bulk rather than per recipe.
func (s *RecipeService) buildViews(ctx context.Context, recipes []models.Recipe, viewerID *uuid.UUID) ([]types.RecipeView, error) {
	favorited := map[uuid.UUID]bool{}
	inCart := map[uuid.UUID]bool{}
	subscribed := map[uuid.UUID]bool{}

	if viewerID != nil && len(recipes) > 0 {
		recipeIDs := make([]uuid.UUID, len(recipes))
		authorIDs := make([]uuid.UUID, len(recipes))
		for i, r := range recipes {
			recipeIDs[i] = r.ID
			authorIDs[i] = r.AuthorID
		}

		var favorites []models.Favorite
		if err := s.db.WithContext(ctx).
			Where("user_id = ? AND recipe_id IN ?", *viewerID, recipeIDs).
			Find(&favorites).Error; err != nil {
			return nil, err
		}
		for _, f := range favorites {
			favorited[f.RecipeID] = true
		}

		var carts []models.ShoppingCart
		if err := s.db.WithContext(ctx).
			Where("user_id = ? AND recipe_id IN ?", *viewerID, recipeIDs).
			Find(&carts).Error; err != nil {
			return nil, err
		}
		for _, c := range carts {
			inCart[c.RecipeID] = true
		}

		var subs []models.Subscription
		if err := s.db.WithContext(ctx).
			Where("user_id = ? AND target_id IN ?", *viewerID, authorIDs).
			Find(&subs).Error; err != nil {
			return nil, err
		}
		for _, sub := range subs {
			subscribed[sub.TargetID] = true
		}
	}

	views := make([]types.RecipeView, len(recipes))
	for i, r := range recipes {
		tags := make([]types.TagView, len(r.Tags))
		for j, t := range r.Tags {
			tags[j] = types.TagView{ID: t.ID, Name: t.Name, Slug: t.Slug}
		}
		lines := make([]types.IngredientLine, len(r.Ingredients))
		for j, ri := range r.Ingredients {
			lines[j] = types.IngredientLine{
				ID:              ri.IngredientID,
				Name:            ri.Ingredient.Name,
				MeasurementUnit: ri.Ingredient.MeasurementUnit,
				Amount:          ri.Amount,
			}
		}
		views[i] = types.RecipeView{
			ID:   r.ID,
			Tags: tags,
			Author: types.UserView{
				Email:        r.Author.Email,
				ID:           r.Author.ID,
				Username:     r.Author.Username,
				FirstName:    r.Author.FirstName,
				LastName:     r.Author.LastName,
				IsSubscribed: subscribed[r.AuthorID],
				Avatar:       r.Author.AvatarURL,
			},
			Ingredients:      lines,
			IsFavorited:      favorited[r.ID],
			IsInShoppingCart: inCart[r.ID],
			Name:             r.Name,
			Image:            r.ImageURL,
			Text:             r.Text,
			CookingTime:      r.CookingTime,
			PubDate:          r.PubDate,
		}
	}
	return views, nil
}
