package api

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/forkful/backend/internal/middleware"
	"github.com/forkful/backend/internal/service"
)

// SetupAPI wires the services and handlers under /api. A nil redisClient
// disables rate limiting.
func SetupAPI(router *gin.Engine, db *gorm.DB, redisClient *redis.Client, images *service.ImageService, jwtSecret string) {
	root := router.Group("/api")
	{
		// Initialize services
		authService := service.NewAuthService(db, jwtSecret)
		userService := service.NewUserService(db)
		recipeService := service.NewRecipeService(db, images)

		var rateLimiter *middleware.RateLimiter
		if redisClient != nil {
			rateLimiter = middleware.NewRecipeWriteRateLimiter(redisClient)
		}

		// Initialize handlers
		userHandler := NewUserHandler(authService, userService, recipeService)
		recipeHandler := NewRecipeHandler(authService, userService, recipeService, rateLimiter)
		tagHandler := NewTagHandler(db)
		ingredientHandler := NewIngredientHandler(db)

		// Register routes
		userHandler.RegisterRoutes(root)
		recipeHandler.RegisterRoutes(root)
		tagHandler.RegisterRoutes(root)
		ingredientHandler.RegisterRoutes(root)
	}
}
