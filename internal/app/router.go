package app

import (
	"testwise_attempt/docs"
	"testwise_attempt/internal/config"
	"testwise_attempt/internal/middleware"
	"testwise_attempt/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerSessionRoutes(authGroup, c)
	}
}

func (a *App) registerSessionRoutes(group *gin.RouterGroup, c *controllers) {
	session := group.Group("/tests/:testId/session")
	{
		session.GET("", c.attempt.GetSession)
		session.POST("/resume", c.attempt.Resume)
		session.POST("/start", c.attempt.Start)
		session.POST("/answers", c.attempt.Answer)
		session.POST("/next", c.attempt.Next)
		session.POST("/previous", c.attempt.Previous)
		session.POST("/submit", c.attempt.Submit)
		session.POST("/reset", c.attempt.Reset)
		session.POST("/redirect/cancel", c.attempt.CancelRedirect)
		session.GET("/ws", c.attempt.Stream)
	}
}
