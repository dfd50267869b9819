package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/0xfdc/foodgram/internal/models"
)

const shortLinkCacheTTL = 24 * time.Hour

// ShortLinkService resolves short hashes to recipe ids. Hashes are immutable
// once generated, so a redis cache-aside in front of the table is safe; a
// nil client disables caching.
type ShortLinkService struct {
	db      *gorm.DB
	cache   *redis.Client
	baseURL string
}

func NewShortLinkService(db *gorm.DB, cache *redis.Client, baseURL string) *ShortLinkService {
	return &ShortLinkService{
		db:      db,
		cache:   cache,
		baseURL: baseURL,
	}
}

func cacheKey(hash string) string {
	return "shortlink:" + hash
}

// Resolve looks up the recipe carrying the given hash.
func (s *ShortLinkService) Resolve(ctx context.Context, hash string) (uuid.UUID, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey(hash)).Result(); err == nil {
			if id, err := uuid.Parse(cached); err == nil {
				return id, nil
			}
		}
	}

	var recipe models.Recipe
	if err := s.db.WithContext(ctx).Select("id").First(&recipe, "hash = ?", hash).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, ErrNotFound
		}
		return uuid.Nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, cacheKey(hash), recipe.ID.String(), shortLinkCacheTTL)
	}
	return recipe.ID, nil
}

// Link returns the public short link for an existing recipe.
func (s *ShortLinkService) Link(ctx context.Context, recipeID uuid.UUID) (string, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).Select("id", "hash").First(&recipe, "id = ?", recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return fmt.Sprintf("%s/s/%s", s.baseURL, recipe.Hash), nil
}
