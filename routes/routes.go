package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"lexbook/handlers"
	"lexbook/middleware"
)

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	if hb.Health != nil {
		r.GET("/health", hb.Health)
		return
	}
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// RegisterLawyerRoutes registers lawyer listing and availability endpoints.
func RegisterLawyerRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/lawyers")
	{
		api.GET("", hb.ListLawyers)
		api.GET("/:id/availability", hb.GetAvailability)

		protected := api.Group("")
		protected.Use(middleware.JWTAuthMiddleware(hb.Verifier))
		protected.PUT("/:id/availability", middleware.RequireSelf("id"), hb.SetAvailability)
	}
}

// RegisterConsultationRoutes sets up the endpoints for the booking engine.
func RegisterConsultationRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/consultations")
	{
		api.Use(middleware.JWTAuthMiddleware(hb.Verifier))
		api.POST("", hb.CreateConsultation)
		api.GET("/:id", hb.GetConsultation)
		api.PATCH("/:id/status", hb.UpdateStatus)
	}
}

// RegisterNotificationRoutes registers the caller's notification inbox.
func RegisterNotificationRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/notifications")
	{
		api.Use(middleware.JWTAuthMiddleware(hb.Verifier))
		api.GET("", hb.ListNotifications)
		api.PATCH("/:id/read", hb.MarkNotification)
	}
}

// RegisterRoutes centralizes registration of all endpoints and CORS. CORS
// runs first so preflight requests are answered before middlewares such as
// the rate limiter see them.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle, allowedOrigins []string, middlewares ...gin.HandlerFunc) {
	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowedOrigins
		corsConfig.AllowCredentials = true
	}
	r.Use(cors.New(corsConfig))
	r.Use(middlewares...)

	RegisterHealthRoute(r, hb)
	RegisterLawyerRoutes(r, hb)
	RegisterConsultationRoutes(r, hb)
	RegisterNotificationRoutes(r, hb)
}
