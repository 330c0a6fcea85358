package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/gallery/internal/api/handler"
	"github.com/timmy/gallery/internal/api/middleware"
	"github.com/timmy/gallery/internal/config"
	"github.com/timmy/gallery/internal/logger"
	"github.com/timmy/gallery/internal/repository"
)

// SetupRouter configures the Gin router with all routes.
// Parameters:
//   - store: image persistence backend.
//   - cfg: server settings (mode, page size, CORS).
//   - log: base logger for request logging.
// Returns:
//   - *gin.Engine: configured router.
func SetupRouter(store repository.ImageStore, cfg *config.ServerConfig, log *logger.Logger) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.CORS.AllowAllOrigins,
	}))

	healthHandler := handler.NewHealthHandler()
	imageHandler := handler.NewImageHandler(store, cfg.PageSize)

	r.GET("/health", healthHandler.Health)

	images := r.Group("/api/images")
	{
		images.GET("", imageHandler.ListImages)
		images.POST("", imageHandler.CreateImage)
	}

	return r
}
