package main

import (
	"context"
	"fmt"
	"log"

	"go.uber.org/zap"

	"github.com/0xfdc/foodgram/config"
	"github.com/0xfdc/foodgram/internal/api"
	"github.com/0xfdc/foodgram/internal/database"
	"github.com/0xfdc/foodgram/internal/middleware"
	"github.com/0xfdc/foodgram/internal/router"
	"github.com/0xfdc/foodgram/internal/server"
	"github.com/0xfdc/foodgram/internal/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.New(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	redisClient, err := database.NewRedisClient(cfg)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	if redisClient == nil {
		logger.Warn("redis not configured, short-link cache and rate limiting disabled")
	}

	s3Cfg, err := config.NewS3Config(context.Background(), cfg)
	if err != nil {
		logger.Fatal("failed to configure object storage", zap.Error(err))
	}
	images := service.NewImageService(service.NewS3ImageStore(s3Cfg))

	authService := service.NewAuthService(db, cfg.JWTSecret)
	userService := service.NewUserService(db, images)
	catalogService := service.NewCatalogService(db)
	recipeService := service.NewRecipeService(db, images, logger)
	relationService := service.NewRelationService(db)
	shoppingListService := service.NewShoppingListService(db)
	shortLinkService := service.NewShortLinkService(db, redisClient, cfg.BaseURL)

	handlers := router.Handlers{
		Auth:      api.NewAuthHandler(authService),
		User:      api.NewUserHandler(userService, relationService),
		Catalog:   api.NewCatalogHandler(catalogService),
		Recipe:    api.NewRecipeHandler(recipeService, relationService, shoppingListService, shortLinkService),
		ShortLink: api.NewShortLinkHandler(shortLinkService),
	}

	engine := router.SetupRouter(
		handlers,
		authService,
		middleware.NewRecipeWriteRateLimiter(redisClient),
		logger,
		db,
		cfg.CORSOrigins,
	)

	srv := server.New(engine, logger)
	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	if err := srv.Start(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
