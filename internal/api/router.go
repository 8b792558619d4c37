package api

import (
	"time"

	chatHandler "culinai/internal/api/handlers/chat"
	cookingHandler "culinai/internal/api/handlers/cooking"
	"culinai/internal/api/handlers/health"
	profileHandler "culinai/internal/api/handlers/profile"
	recipeHandler "culinai/internal/api/handlers/recipe"
	"culinai/internal/api/middleware"
	"culinai/internal/core/chat"
	"culinai/internal/core/cooking"
	"culinai/internal/core/image"
	recipeService "culinai/internal/core/recipe"
	"culinai/internal/core/store"
	"culinai/internal/infrastructure/config"
	"culinai/internal/infrastructure/metrics"
	"culinai/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// 預設請求超時，需涵蓋閘道依序嘗試多個模型
	defaultRequestTimeout = 180 * time.Second
	// 預設請求體大小限制 (32MB)，最多五張圖片
	defaultMaxBodySize = 32 << 20
)

// Services 路由需要的服務
type Services struct {
	Pipeline *recipeService.Pipeline
	Media    *recipeService.MediaService
	Images   *image.Service
	Store    *store.Store
	Chat     *chat.Manager
	Cooking  *cooking.Manager
	Models   []string
	Checks   map[string]health.Check
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, svc Services) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	timeout := cfg.Server.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	maxBody := cfg.Server.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodySize
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())
	router.Use(metrics.Middleware())

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "X-Request-ID",
			middleware.HeaderProfileName, middleware.HeaderProfileKey,
		},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(maxBody))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	// 健康檢查路由
	healthHandler := health.NewHandler(cfg.App.Version, svc.Models, svc.Checks)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)
	router.GET("/metrics", metrics.Handler())

	recipes := recipeHandler.NewHandler(svc.Pipeline, svc.Media, svc.Images, svc.Store)
	profiles := profileHandler.NewHandler(svc.Store)
	chats := chatHandler.NewHandler(svc.Chat, svc.Store)
	cooks := cookingHandler.NewHandler(svc.Cooking, svc.Store)
	dedup := middleware.NewDeduplicator(cfg.DedupWindow)

	api := router.Group("/api/v1")
	api.Use(middleware.Timeout(timeout))
	api.POST("/auth/login", profiles.HandleLogin)

	// 以下路由需要使用者標頭
	authed := api.Group("")
	authed.Use(middleware.ProfileAuth(svc.Store))
	authed.Use(dedup.Middleware())
	{
		authed.GET("/profile", profiles.HandleSummary)
		authed.PUT("/profile/language", profiles.HandleSetLanguage)

		recipeGroup := authed.Group("/recipes")
		{
			recipeGroup.POST("/search", recipes.HandleSearch)
			recipeGroup.POST("/scan", recipes.HandleScan)
			recipeGroup.GET("", recipes.HandleList)
			recipeGroup.GET("/:id", recipes.HandleGet)
			recipeGroup.POST("/:id/images", recipes.HandleUploadImages)
			recipeGroup.POST("/:id/image/generate", recipes.HandleGenerateImage)
			recipeGroup.POST("/:id/cooked", recipes.HandleMarkCooked)
			recipeGroup.POST("/:id/shopping", recipes.HandleAddToShopping)
		}
		authed.POST("/ingredients/analyze", recipes.HandleAnalyze)

		authed.GET("/favorites", profiles.HandleFavorites)
		authed.POST("/favorites/:id", profiles.HandleToggleFavorite)
		authed.GET("/history", profiles.HandleHistory)

		shoppingGroup := authed.Group("/shopping")
		{
			shoppingGroup.GET("", profiles.HandleShoppingList)
			shoppingGroup.POST("", profiles.HandleAddShopping)
			shoppingGroup.POST("/:id/toggle", profiles.HandleToggleShopping)
			shoppingGroup.DELETE("/:id", profiles.HandleRemoveShopping)
		}

		filterGroup := authed.Group("/filters")
		{
			filterGroup.GET("", profiles.HandleFilters)
			filterGroup.PUT("", profiles.HandleSetFilters)
			filterGroup.POST("/toggle/:key", profiles.HandleToggleFilter)
			filterGroup.POST("/cuisine/:name", profiles.HandleToggleCuisine)
			filterGroup.PUT("/max-prep-time", profiles.HandleSetPrepTime)
		}

		chatGroup := authed.Group("/chat/sessions")
		{
			chatGroup.POST("", chats.HandleCreate)
			chatGroup.GET("/:id", chats.HandleGet)
			chatGroup.POST("/:id/messages", chats.HandleSend)
			chatGroup.DELETE("/:id", chats.HandleDelete)
		}

		authed.POST("/cooking/:recipeId/start", cooks.HandleStart)
		cookingGroup := authed.Group("/cooking/sessions")
		{
			cookingGroup.GET("/:id", cooks.HandleGet)
			cookingGroup.POST("/:id/next", cooks.HandleNext)
			cookingGroup.POST("/:id/prev", cooks.HandlePrevious)
			cookingGroup.POST("/:id/complete", cooks.HandleComplete)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Strings("models", svc.Models),
		zap.Duration("timeout", timeout),
		zap.Int64("max_body_size", maxBody),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
	)

	return router
}
