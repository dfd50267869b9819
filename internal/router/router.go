package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/0xfdc/foodgram/internal/api"
	"github.com/0xfdc/foodgram/internal/database"
	"github.com/0xfdc/foodgram/internal/middleware"
)

// Handlers groups the API handlers wired by SetupRouter.
type Handlers struct {
	Auth      *api.AuthHandler
	User      *api.UserHandler
	Catalog   *api.CatalogHandler
	Recipe    *api.RecipeHandler
	ShortLink *api.ShortLinkHandler
}

// SetupRouter configures the application routes. Public read endpoints run
// behind optional authentication so viewer-relative fields resolve when a
// token is present; write endpoints require a valid token.
func SetupRouter(
	handlers Handlers,
	validator middleware.TokenValidator,
	writeLimiter *middleware.RateLimiter,
	logger *zap.Logger,
	db *gorm.DB,
	corsOrigins []string,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(corsOrigins))

	router.GET("/healthz", func(c *gin.Context) {
		if err := database.HealthCheck(c.Request.Context(), db); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Short links live outside the API prefix.
	router.GET("/s/:hash", handlers.ShortLink.Redirect)

	v1 := router.Group("/api")

	auth := v1.Group("/auth")
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/token/login", handlers.Auth.Login)
	}
	// Registration also answers on the users collection.
	v1.POST("/users", handlers.Auth.Register)

	public := v1.Group("")
	public.Use(middleware.OptionalAuthMiddleware(validator))

	authed := v1.Group("")
	authed.Use(middleware.AuthMiddleware(validator))

	handlers.Catalog.RegisterRoutes(public)
	handlers.User.RegisterRoutes(public, authed)
	handlers.Recipe.RegisterRoutes(public, authed, writeLimiter.RateLimitMiddleware())

	return router
}
