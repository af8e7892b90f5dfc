// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/compass-coaching/compass-go/internal/application/container"
	"github.com/compass-coaching/compass-go/internal/presentation/http/handlers"
	"github.com/compass-coaching/compass-go/internal/presentation/http/middleware"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	// Initialize handlers
	authHandlers := handlers.NewAuthHandlers(container.AuthService, container.Logger, container.PerfTracker)
	preferenceHandlers := handlers.NewPreferenceHandlers(container.PreferenceService, container.Logger, container.PerfTracker)
	rankingHandlers := handlers.NewSkillsRankingHandlers(container.SkillsRankingService, container.Logger, container.PerfTracker)
	broadcastHandlers := handlers.NewBroadcastHandlers(container.Broadcaster, container.Logger)
	storageHandlers := handlers.NewStorageHandlers(container.StorageService, container.Logger)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"cache":  container.CacheManager.Status(),
		})
	})

	api := r.Group("/api/v1")
	{
		// Public authentication routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandlers.PostLogin)
			auth.POST("/register", authHandlers.PostRegister)
			auth.GET("/session", authHandlers.GetSession)
			auth.GET("/verify-email", authHandlers.GetVerifyEmail)
			auth.POST("/resend-verification", authHandlers.PostResendVerification)
			auth.POST("/password-reset/request", authHandlers.PostPasswordResetRequest)
			auth.POST("/password-reset", authHandlers.PostPasswordReset)

			// Authenticated auth routes
			auth.POST("/logout", middleware.AuthMiddleware(), authHandlers.PostLogout)
			auth.GET("/events", middleware.AuthMiddleware(), broadcastHandlers.GetAuthEvents)
		}

		// Flow configuration is public: the briefing screen needs it before
		// a session exists.
		api.GET("/skills-ranking/config", rankingHandlers.GetConfig)

		authenticated := api.Group("")
		authenticated.Use(middleware.AuthMiddleware())
		{
			preferences := authenticated.Group("/preferences")
			{
				preferences.GET("", preferenceHandlers.GetPreferences)
				preferences.POST("/accept-terms", preferenceHandlers.PostAcceptTerms)
				preferences.PUT("/language", preferenceHandlers.PutLanguage)
				preferences.PUT("/sensitive-data", preferenceHandlers.PutSensitiveData)
				preferences.POST("/feedback", preferenceHandlers.PostFeedbackAnswers)
			}

			ranking := authenticated.Group("/skills-ranking")
			{
				ranking.POST("", rankingHandlers.PostStart)
				ranking.GET("/:sessionId", rankingHandlers.GetState)
				ranking.PATCH("/:sessionId", rankingHandlers.PatchState)
			}

			storage := authenticated.Group("/storage")
			{
				storage.GET("/:key", storageHandlers.GetEntry)
				storage.PUT("/:key", storageHandlers.PutEntry)
				storage.DELETE("/:key", storageHandlers.DeleteEntry)
			}
		}
	}

	return r
}
