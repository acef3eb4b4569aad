package api

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/paperboy/internal/api/handlers"
	"github.com/welldanyogia/paperboy/internal/api/middleware"
	"github.com/welldanyogia/paperboy/internal/config"
	"github.com/welldanyogia/paperboy/internal/logger"
	"github.com/welldanyogia/paperboy/internal/websocket"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// RouterConfig holds dependencies for the router
type RouterConfig struct {
	Config   *config.Config
	DB       *gorm.DB
	Logger   *slog.Logger
	Security *logger.SecurityLogger

	Articles    handlers.ArticleService
	Newsletters handlers.NewsletterService
	Archive     handlers.ArchiveService
	Emails      handlers.RawEmailHandler
	Feeds       handlers.FeedImporter
	Digests     handlers.DigestService
	Backlog     handlers.BacklogCounter

	// Hub is optional; without it /ws is not registered
	Hub *websocket.Hub
	// Metrics is optional; without it /metrics is not registered
	Metrics http.Handler
	// Limiter is optional; a limiter built from Config is used when nil
	Limiter *middleware.IPRateLimiter
	// MaxEmailSize caps POST /api/email/ingest bodies
	MaxEmailSize int64
}

// NewRouter creates and configures the Echo router with all routes
func NewRouter(cfg *RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	sec := cfg.Security
	if sec == nil {
		sec = logger.NewSecurityLogger(cfg.Logger)
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = middleware.NewIPRateLimiter(rate.Limit(cfg.Config.RateLimitRequests), cfg.Config.RateLimitBurst)
	}

	// Middleware order matters: recovery first, auth last
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.SecureHeaders())
	e.Use(middleware.SecureCORS(cfg.Config.AllowedOrigins, cfg.Config.IsProduction()))
	e.Use(middleware.RateLimiter(limiter, sec))
	if cfg.Logger != nil {
		e.Use(middleware.RequestLogger(cfg.Logger))
	}
	e.Use(middleware.APIKeyAuth(cfg.Config.APIKey, sec))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Backlog)
	articleHandler := handlers.NewArticleHandler(cfg.Articles)
	newsletterHandler := handlers.NewNewsletterHandler(cfg.Newsletters)
	archiveHandler := handlers.NewArchiveHandler(cfg.Archive)
	emailHandler := handlers.NewEmailHandler(cfg.Emails, cfg.MaxEmailSize, sec)
	feedHandler := handlers.NewFeedHandler(cfg.Feeds)
	digestHandler := handlers.NewDigestHandler(cfg.Digests)

	// Health checks (no auth required)
	e.GET("/health", healthHandler.Health)
	e.GET("/ready", healthHandler.Ready)
	if cfg.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(cfg.Metrics))
	}

	if cfg.Hub != nil {
		upgrader := websocket.NewSecureUpgrader(cfg.Config.AllowedOrigins, sec)
		e.GET("/ws", func(c echo.Context) error {
			// A failed upgrade has already written its response
			_ = websocket.Serve(cfg.Hub, upgrader, c.Response(), c.Request(), cfg.Logger)
			return nil
		})
	}

	api := e.Group("/api")

	// Article routes
	articles := api.Group("/articles")
	articles.POST("", articleHandler.Import)
	articles.GET("", articleHandler.List)
	articles.GET("/search", articleHandler.Search)
	articles.GET("/stats", articleHandler.Stats)
	articles.POST("/sync", articleHandler.Sync)
	articles.POST("/cleanup", articleHandler.Cleanup)
	articles.POST("/summaries/regenerate", articleHandler.RegenerateSummaries)
	articles.GET("/:id", articleHandler.Get)
	articles.PATCH("/:id", articleHandler.Update)
	articles.DELETE("/:id", articleHandler.Delete)
	articles.POST("/:id/extract", articleHandler.Extract)
	articles.POST("/:id/send", articleHandler.Send)
	articles.POST("/:id/archive", articleHandler.Archive)

	// Newsletter routes
	newsletters := api.Group("/newsletters")
	newsletters.POST("", newsletterHandler.Create)
	newsletters.GET("", newsletterHandler.List)
	newsletters.GET("/:id", newsletterHandler.Get)
	newsletters.POST("/:id/process", newsletterHandler.Process)

	// Email archive routes
	archive := api.Group("/archive")
	archive.GET("", archiveHandler.List)
	archive.GET("/stats", archiveHandler.Stats)
	archive.GET("/:id", archiveHandler.Get)
	archive.POST("/:id/replay", archiveHandler.Replay)
	archive.POST("/:id/tags", archiveHandler.AddTags)

	api.POST("/email/ingest", emailHandler.Ingest)
	api.POST("/feeds/import", feedHandler.Import)

	// Digest routes
	digests := api.Group("/digests")
	digests.POST("", digestHandler.Generate)
	digests.GET("", digestHandler.List)
	digests.POST("/send", digestHandler.Send)

	return e
}
