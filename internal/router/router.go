package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/handler"
	"github.com/stemsi/exstem-practice/internal/middleware"
	"github.com/stemsi/exstem-practice/internal/response"
	"github.com/stemsi/exstem-practice/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Practice      *handler.PracticeHandler
	Comprehensive *handler.ComprehensiveHandler
	Events        *handler.EventsHandler
	WS            *handler.WSHandler
	System        *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	startLimiter *middleware.RateLimiter,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// Restrict to AllowedOrigins when set; allow all in development.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.BrotliWithConfig(middleware.BrotliConfig{
		Quality:   middleware.DefaultBrotliConfig.Quality,
		MinLength: cfg.CompressionMinBytes,
	}))

	// Health check.
	router.GET("/health", handlers.System.Health)

	requireStudent := middleware.RequireStudentJWT(authService)

	// ─── 1. Practice API (Student JWT) ─────────────────────────────────
	practice := router.Group("/api/v1/practice")
	practice.Use(requireStudent, middleware.NoStore())
	{
		sessions := practice.Group("/sessions")
		{
			start := []gin.HandlerFunc{handlers.Practice.StartSession}
			if startLimiter != nil {
				start = append([]gin.HandlerFunc{startLimiter.Middleware()}, start...)
			}
			sessions.POST("", start...)
			sessions.POST("/restore", handlers.Practice.RestoreSession)
			sessions.GET("/:id", handlers.Practice.GetSession)
			sessions.DELETE("/:id", handlers.Practice.ExitSession)
			sessions.POST("/:id/answer", handlers.Practice.SelectAnswer)
			sessions.POST("/:id/navigate", handlers.Practice.Navigate)
			sessions.POST("/:id/flag", handlers.Practice.ToggleFlag)
			sessions.POST("/:id/pause", handlers.Practice.PauseSession)
			sessions.POST("/:id/resume", handlers.Practice.ResumeSession)
			sessions.POST("/:id/submit", handlers.Practice.SubmitSession)
			sessions.GET("/:id/result", handlers.Practice.GetResult)
			sessions.GET("/:id/events", handlers.Events.SessionEventsSSE)
		}

		practice.GET("/history", handlers.Practice.GetHistory)

		comprehensive := practice.Group("/comprehensive")
		{
			comprehensive.POST("", handlers.Comprehensive.StartRun)
			comprehensive.GET("/:run_id", handlers.Comprehensive.GetSummary)
			comprehensive.POST("/:run_id/days/:day", handlers.Comprehensive.StartDay)
			comprehensive.POST("/:run_id/days/:day/restore", handlers.Comprehensive.RestoreDay)
		}
	}

	// ─── 2. WebSocket (token in query) ─────────────────────────────────
	ws := router.Group("/ws/v1/practice")
	ws.Use(requireStudent)
	{
		ws.GET("/sessions/:id/stream", handlers.WS.SessionStream)
	}

	return router
}
