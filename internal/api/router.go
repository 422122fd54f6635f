package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/notely-dev/notely/internal/api/handlers"
	"github.com/notely-dev/notely/internal/api/middleware"
	"github.com/notely-dev/notely/internal/auth"
	"github.com/notely-dev/notely/internal/config"
	"github.com/notely-dev/notely/internal/service"
)

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *gorm.DB, authenticator auth.Authenticator) *gin.Engine {
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware())
	router.Use(corsMiddleware())

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/health", handlers.HealthCheck)
		public.GET("/version", handlers.GetVersion)
		public.POST("/auth/login", handlers.Login(authenticator, db))
	}

	if oidcAuth, ok := authenticator.(*auth.OIDCAuthenticator); ok {
		public.GET("/auth/oidc/login", handlers.OIDCLogin(oidcAuth))
		public.GET("/auth/oidc/callback", handlers.OIDCCallback(oidcAuth))
	}

	// Initialize handlers
	noteSvc := service.New(db)
	noteHandler := handlers.NewNoteHandler(noteSvc)
	adminNoteHandler := handlers.NewAdminNoteHandler(noteSvc, db)
	adminUserHandler := handlers.NewAdminUserHandler(db)

	// Protected routes (require authentication)
	protected := router.Group("/api/v1")
	protected.Use(authenticator.Middleware())
	{
		protected.GET("/auth/me", handlers.GetCurrentUser(authenticator))

		// Note endpoints, scoped to the caller
		protected.GET("/notes", noteHandler.ListNotes)
		protected.POST("/notes", noteHandler.CreateNote)
		protected.GET("/notes/:id", noteHandler.GetNote)
		protected.PUT("/notes/:id", noteHandler.UpdateNote)
		protected.PATCH("/notes/:id", noteHandler.PatchNote)
		protected.DELETE("/notes/:id", noteHandler.DeleteNote)

		// Admin endpoints, spanning all users
		admin := protected.Group("/admin")
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/notes", adminNoteHandler.ListNotes)
			admin.POST("/notes", adminNoteHandler.CreateNote)
			admin.GET("/notes/:id", adminNoteHandler.GetNote)
			admin.PUT("/notes/:id", adminNoteHandler.UpdateNote)
			admin.PATCH("/notes/:id", adminNoteHandler.PatchNote)
			admin.DELETE("/notes/:id", adminNoteHandler.DeleteNote)

			admin.GET("/users", adminUserHandler.ListUsers)
			admin.POST("/users", adminUserHandler.CreateUser)
			admin.GET("/users/:id", adminUserHandler.GetUser)
			admin.PATCH("/users/:id", adminUserHandler.UpdateUser)
			admin.DELETE("/users/:id", adminUserHandler.DeleteUser)

			admin.GET("/audit-logs", adminUserHandler.ListAuditLogs)
		}
	}

	// Swagger documentation
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	slog.Info("API router initialized", "mode", cfg.Server.Mode)
	return router
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		slog.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"ip", c.ClientIP(),
		)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
