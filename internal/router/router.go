package router

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/iappwebdev/mahl-zeit-planer/config"
	"github.com/iappwebdev/mahl-zeit-planer/internal/api"
	"github.com/iappwebdev/mahl-zeit-planer/internal/middleware"
	"github.com/iappwebdev/mahl-zeit-planer/internal/realtime"
	"github.com/iappwebdev/mahl-zeit-planer/internal/service"
)

// Deps are the collaborators the routes are built from. Redis may be nil,
// which disables rate limiting.
type Deps struct {
	Config     *config.Config
	Logger     *zap.Logger
	DB         *gorm.DB
	Redis      *redis.Client
	MealPlans  service.IMealPlanService
	Tokens     middleware.TokenValidator
	Subscriber realtime.Subscriber
}

// SetupRouter configures the application routes
func SetupRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Logger(d.Logger),
		middleware.Recovery(d.Logger),
		middleware.CORS(d.Config.CORSOrigins),
	)

	health := api.NewHealthHandler(d.DB, d.Redis)
	router.GET("/health", health.Health)
	router.GET("/api/health", health.Health)

	var generateLimit gin.HandlerFunc
	if d.Redis != nil {
		limiter := middleware.NewGenerateRateLimiter(d.Redis, d.Config.GenerateRateLimit, d.Config.GenerateRateWindow, d.Logger)
		generateLimit = limiter.Middleware()
	}

	v1 := router.Group("/api/v1")
	mealPlans := api.NewMealPlanHandler(d.MealPlans, d.Subscriber, d.Logger)
	mealPlans.RegisterRoutes(v1, middleware.AuthMiddleware(d.Tokens), generateLimit)

	return router
}
