package api

import (
	"net/http"

	"kithbook-backend/internal/auth/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *Handler) {
	authMiddleware := delivery.AuthMiddleware(h.authUsecase)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/google", h.authHandler.GoogleSignIn)
			auth.POST("/refresh", h.authHandler.RefreshToken)
			auth.POST("/logout", h.authHandler.Logout)
			auth.GET("/me", authMiddleware, h.authHandler.Me)
		}

		// Contact routes (protected)
		contacts := api.Group("/contacts")
		contacts.Use(authMiddleware)
		{
			contacts.GET("", h.contactHandler.ListContacts)
			contacts.GET("/search", h.contactHandler.SearchContacts)
			contacts.POST("/recalculate", h.contactHandler.RecalculateCounts)
			contacts.PATCH("/:id", h.contactHandler.UpdateContact)
			contacts.POST("/:id/archive", h.contactHandler.ArchiveContact)
			contacts.POST("/:id/unarchive", h.contactHandler.UnarchiveContact)
			contacts.GET("/:id/timeline", h.contactHandler.GetTimeline)
		}

		api.GET("/network", authMiddleware, h.contactHandler.GetNetwork)

		// Sync routes (protected)
		sync := api.Group("/sync")
		sync.Use(authMiddleware)
		{
			sync.POST("", h.syncHandler.StartSync)
			sync.GET("/status", h.syncHandler.GetStatus)
			sync.GET("/jobs/:id", h.syncHandler.GetJob)
		}
	}
}
